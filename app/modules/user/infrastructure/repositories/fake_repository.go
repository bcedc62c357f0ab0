package userdb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// FakeRepository is a fake implementation of Repository for testing.
type FakeRepository struct {
	GetUserByIDFn        func(ctx context.Context, db bun.IDB, id int64) (*User, error)
	GetUserByOsuIDFn     func(ctx context.Context, db bun.IDB, osuID int64) (*User, error)
	GetUserByDiscordIDFn func(ctx context.Context, db bun.IDB, discordID string) (*User, error)
	CreateUserFn         func(ctx context.Context, db bun.IDB, user *User) error
	UpdatePointsFn       func(ctx context.Context, db bun.IDB, id int64, update PointsUpdate) error
	GetStaleUsersFn      func(ctx context.Context, db bun.IDB, before time.Time, limit int) ([]User, error)
}

var _ Repository = (*FakeRepository)(nil)

func (f *FakeRepository) GetUserByID(ctx context.Context, db bun.IDB, id int64) (*User, error) {
	if f.GetUserByIDFn != nil {
		return f.GetUserByIDFn(ctx, db, id)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) GetUserByOsuID(ctx context.Context, db bun.IDB, osuID int64) (*User, error) {
	if f.GetUserByOsuIDFn != nil {
		return f.GetUserByOsuIDFn(ctx, db, osuID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) GetUserByDiscordID(ctx context.Context, db bun.IDB, discordID string) (*User, error) {
	if f.GetUserByDiscordIDFn != nil {
		return f.GetUserByDiscordIDFn(ctx, db, discordID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) CreateUser(ctx context.Context, db bun.IDB, user *User) error {
	if f.CreateUserFn != nil {
		return f.CreateUserFn(ctx, db, user)
	}
	return nil
}

func (f *FakeRepository) UpdatePoints(ctx context.Context, db bun.IDB, id int64, update PointsUpdate) error {
	if f.UpdatePointsFn != nil {
		return f.UpdatePointsFn(ctx, db, id, update)
	}
	return nil
}

func (f *FakeRepository) GetStaleUsers(ctx context.Context, db bun.IDB, before time.Time, limit int) ([]User, error) {
	if f.GetStaleUsersFn != nil {
		return f.GetStaleUsersFn(ctx, db, before, limit)
	}
	return nil, nil
}
