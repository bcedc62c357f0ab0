package pointsdb

import (
	"context"

	"github.com/uptrace/bun"
)

// FakeRepository is a fake implementation of Repository for testing.
type FakeRepository struct {
	AcquireAssignmentLockFn func(ctx context.Context, db bun.IDB, serverID, userID int64) error
	GetAssignmentFn         func(ctx context.Context, db bun.IDB, userID, serverID int64) (*Assignment, error)
	GetAssignmentsByUserFn  func(ctx context.Context, db bun.IDB, userID int64) ([]Assignment, error)
	GetHolderDiscordIDsFn   func(ctx context.Context, db bun.IDB, roleID int64) ([]string, error)
	InsertAssignmentFn      func(ctx context.Context, db bun.IDB, assignment *Assignment) error
	UpdateAssignmentFn      func(ctx context.Context, db bun.IDB, assignment *Assignment) error
}

var _ Repository = (*FakeRepository)(nil)

func (f *FakeRepository) AcquireAssignmentLock(ctx context.Context, db bun.IDB, serverID, userID int64) error {
	if f.AcquireAssignmentLockFn != nil {
		return f.AcquireAssignmentLockFn(ctx, db, serverID, userID)
	}
	return nil
}

func (f *FakeRepository) GetAssignment(ctx context.Context, db bun.IDB, userID, serverID int64) (*Assignment, error) {
	if f.GetAssignmentFn != nil {
		return f.GetAssignmentFn(ctx, db, userID, serverID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) GetAssignmentsByUser(ctx context.Context, db bun.IDB, userID int64) ([]Assignment, error) {
	if f.GetAssignmentsByUserFn != nil {
		return f.GetAssignmentsByUserFn(ctx, db, userID)
	}
	return nil, nil
}

func (f *FakeRepository) GetHolderDiscordIDs(ctx context.Context, db bun.IDB, roleID int64) ([]string, error) {
	if f.GetHolderDiscordIDsFn != nil {
		return f.GetHolderDiscordIDsFn(ctx, db, roleID)
	}
	return nil, nil
}

func (f *FakeRepository) InsertAssignment(ctx context.Context, db bun.IDB, assignment *Assignment) error {
	if f.InsertAssignmentFn != nil {
		return f.InsertAssignmentFn(ctx, db, assignment)
	}
	return nil
}

func (f *FakeRepository) UpdateAssignment(ctx context.Context, db bun.IDB, assignment *Assignment) error {
	if f.UpdateAssignmentFn != nil {
		return f.UpdateAssignmentFn(ctx, db, assignment)
	}
	return nil
}
