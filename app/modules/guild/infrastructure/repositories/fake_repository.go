package guilddb

import (
	"context"

	"github.com/uptrace/bun"
)

// FakeRepository is a fake implementation of Repository for testing.
type FakeRepository struct {
	GetServerByDiscordIDFn func(ctx context.Context, db bun.IDB, guildID string) (*Server, error)
	GetServerByIDFn        func(ctx context.Context, db bun.IDB, id int64) (*Server, error)
	CreateServerFn         func(ctx context.Context, db bun.IDB, server *Server) (bool, error)
	UpdateServerFn         func(ctx context.Context, db bun.IDB, guildID string, updates *UpdateFields) error
	GetRolesFn             func(ctx context.Context, db bun.IDB, serverID int64) ([]Role, error)
	UpsertRoleFn           func(ctx context.Context, db bun.IDB, role *Role) error
	DeleteRoleFn           func(ctx context.Context, db bun.IDB, serverID int64, discordRoleID string) error
}

var _ Repository = (*FakeRepository)(nil)

func (f *FakeRepository) GetServerByDiscordID(ctx context.Context, db bun.IDB, guildID string) (*Server, error) {
	if f.GetServerByDiscordIDFn != nil {
		return f.GetServerByDiscordIDFn(ctx, db, guildID)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) GetServerByID(ctx context.Context, db bun.IDB, id int64) (*Server, error) {
	if f.GetServerByIDFn != nil {
		return f.GetServerByIDFn(ctx, db, id)
	}
	return nil, ErrNotFound
}

func (f *FakeRepository) CreateServer(ctx context.Context, db bun.IDB, server *Server) (bool, error) {
	if f.CreateServerFn != nil {
		return f.CreateServerFn(ctx, db, server)
	}
	return true, nil
}

func (f *FakeRepository) UpdateServer(ctx context.Context, db bun.IDB, guildID string, updates *UpdateFields) error {
	if f.UpdateServerFn != nil {
		return f.UpdateServerFn(ctx, db, guildID, updates)
	}
	return nil
}

func (f *FakeRepository) GetRoles(ctx context.Context, db bun.IDB, serverID int64) ([]Role, error) {
	if f.GetRolesFn != nil {
		return f.GetRolesFn(ctx, db, serverID)
	}
	return nil, nil
}

func (f *FakeRepository) UpsertRole(ctx context.Context, db bun.IDB, role *Role) error {
	if f.UpsertRoleFn != nil {
		return f.UpsertRoleFn(ctx, db, role)
	}
	return nil
}

func (f *FakeRepository) DeleteRole(ctx context.Context, db bun.IDB, serverID int64, discordRoleID string) error {
	if f.DeleteRoleFn != nil {
		return f.DeleteRoleFn(ctx, db, serverID, discordRoleID)
	}
	return nil
}
