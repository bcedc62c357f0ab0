package guildservice

import (
	"context"
	"errors"
	"testing"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func strPtr(s string) *string { return &s }

func newTestService(repo guilddb.Repository) (*GuildService, *database.FakeTxRunner) {
	tx := &database.FakeTxRunner{}
	return NewGuildService(tx, repo, NewCaches(), observability.NewTestTelemetry("test")), tx
}

func TestGuildService_EnsureServer(t *testing.T) {
	tests := []struct {
		name          string
		created       bool
		existingRoles []guilddb.Role
		wantFloor     bool
	}{
		{name: "new guild gets a floor role", created: true, wantFloor: true},
		{
			name:          "known guild with floor is untouched",
			existingRoles: []guilddb.Role{{ID: 1, ServerID: 10, MinPoints: 0}},
		},
		{
			name:          "known guild missing floor is repaired",
			existingRoles: []guilddb.Role{{ID: 2, ServerID: 10, MinPoints: 5000, DiscordID: strPtr("r")}},
			wantFloor:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var upserted []*guilddb.Role
			repo := &guilddb.FakeRepository{
				CreateServerFn: func(_ context.Context, _ bun.IDB, server *guilddb.Server) (bool, error) {
					server.ID = 10
					return tt.created, nil
				},
				GetRolesFn: func(context.Context, bun.IDB, int64) ([]guilddb.Role, error) {
					return tt.existingRoles, nil
				},
				UpsertRoleFn: func(_ context.Context, _ bun.IDB, role *guilddb.Role) error {
					upserted = append(upserted, role)
					return nil
				},
			}
			svc, tx := newTestService(repo)

			server, err := svc.EnsureServer(context.Background(), "guild-1")
			require.NoError(t, err)
			assert.Equal(t, int64(10), server.ID)
			assert.Equal(t, 1, tx.Calls)

			if !tt.wantFloor {
				assert.Empty(t, upserted)
				return
			}
			require.Len(t, upserted, 1)
			assert.Equal(t, 0, upserted[0].MinPoints)
			assert.Nil(t, upserted[0].DiscordID)
			assert.Equal(t, guilddb.FloorRoleName, upserted[0].Name)
		})
	}
}

func TestGuildService_GetServerCaches(t *testing.T) {
	calls := 0
	repo := &guilddb.FakeRepository{
		GetServerByDiscordIDFn: func(_ context.Context, _ bun.IDB, guildID string) (*guilddb.Server, error) {
			calls++
			if guildID != "guild-1" {
				return nil, guilddb.ErrNotFound
			}
			return &guilddb.Server{ID: 10, DiscordID: guildID}, nil
		},
	}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	for range 3 {
		server, err := svc.GetServer(ctx, "guild-1")
		require.NoError(t, err)
		assert.Equal(t, int64(10), server.ID)
	}
	assert.Equal(t, 1, calls)

	byID, err := svc.GetServerByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "guild-1", byID.DiscordID)

	svc.InvalidateServer("guild-1")
	_, err = svc.GetServer(ctx, "guild-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = svc.GetServer(ctx, "unknown")
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestGuildService_GetRolesReturnsCopy(t *testing.T) {
	calls := 0
	repo := &guilddb.FakeRepository{
		GetRolesFn: func(context.Context, bun.IDB, int64) ([]guilddb.Role, error) {
			calls++
			return []guilddb.Role{{ID: 1, Name: "No points"}, {ID: 2, Name: "Silver", MinPoints: 5000}}, nil
		},
	}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	roles, err := svc.GetRoles(ctx, 10)
	require.NoError(t, err)
	roles[0].Name = "mutated"

	again, err := svc.GetRoles(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "No points", again[0].Name)
	assert.Equal(t, 1, calls)
}

func TestGuildService_SetRole(t *testing.T) {
	rolesCalls := 0
	repo := &guilddb.FakeRepository{
		GetServerByDiscordIDFn: func(context.Context, bun.IDB, string) (*guilddb.Server, error) {
			return &guilddb.Server{ID: 10, DiscordID: "guild-1"}, nil
		},
		GetRolesFn: func(context.Context, bun.IDB, int64) ([]guilddb.Role, error) {
			rolesCalls++
			return nil, nil
		},
	}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.GetRoles(ctx, 10)
	require.NoError(t, err)

	change, err := svc.SetRole(ctx, "guild-1", "role-9", "Gold", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10), change.Role.ServerID)
	assert.Equal(t, "role-9", *change.Role.DiscordID)
	assert.Nil(t, change.Previous)
	assert.False(t, change.Rebound())

	// The write must drop the cached tiers.
	_, err = svc.GetRoles(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, rolesCalls)

	_, err = svc.SetRole(ctx, "guild-1", "role-9", "Gold", -1)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestGuildService_SetRole_ExistingThreshold(t *testing.T) {
	tests := []struct {
		name        string
		roleID      string
		minPoints   int
		wantRebound bool
		wantPrev    string
	}{
		{name: "different discord role at a held threshold", roleID: "gold-new", minPoints: 5000, wantRebound: true, wantPrev: "gold"},
		{name: "same discord role renamed", roleID: "gold", minPoints: 5000, wantRebound: false, wantPrev: "gold"},
		{name: "discord role attached to the floor", roleID: "newbie", minPoints: 0, wantRebound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &guilddb.FakeRepository{
				GetServerByDiscordIDFn: func(context.Context, bun.IDB, string) (*guilddb.Server, error) {
					return &guilddb.Server{ID: 10, DiscordID: "guild-1"}, nil
				},
				GetRolesFn: func(context.Context, bun.IDB, int64) ([]guilddb.Role, error) {
					return []guilddb.Role{
						{ID: 1, ServerID: 10, Name: guilddb.FloorRoleName, MinPoints: 0},
						{ID: 2, ServerID: 10, DiscordID: strPtr("gold"), Name: "Gold", MinPoints: 5000},
					}, nil
				},
				UpsertRoleFn: func(_ context.Context, _ bun.IDB, role *guilddb.Role) error {
					if role.MinPoints == 0 {
						role.ID = 1
					} else {
						role.ID = 2
					}
					return nil
				},
			}
			svc, _ := newTestService(repo)

			change, err := svc.SetRole(context.Background(), "guild-1", tt.roleID, "Gold", tt.minPoints)
			require.NoError(t, err)
			require.NotNil(t, change.Previous)
			assert.Equal(t, change.Previous.ID, change.Role.ID)
			assert.Equal(t, tt.wantRebound, change.Rebound())
			if tt.wantPrev == "" {
				assert.Nil(t, change.Previous.DiscordID)
			} else {
				assert.Equal(t, tt.wantPrev, *change.Previous.DiscordID)
			}
		})
	}
}

func TestGuildService_RemoveRole(t *testing.T) {
	roles := []guilddb.Role{
		{ID: 1, ServerID: 10, DiscordID: strPtr("floor"), MinPoints: 0},
		{ID: 2, ServerID: 10, DiscordID: strPtr("silver"), MinPoints: 5000},
	}
	tests := []struct {
		name      string
		roleID    string
		deleteErr error
		wantErr   error
	}{
		{name: "removes threshold role", roleID: "silver"},
		{name: "floor role is protected", roleID: "floor", wantErr: ErrFloorRole},
		{name: "unknown role", roleID: "gold", wantErr: ErrRoleNotFound},
		{name: "role still assigned", roleID: "silver", deleteErr: guilddb.ErrRoleInUse, wantErr: guilddb.ErrRoleInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted := false
			repo := &guilddb.FakeRepository{
				GetServerByDiscordIDFn: func(context.Context, bun.IDB, string) (*guilddb.Server, error) {
					return &guilddb.Server{ID: 10, DiscordID: "guild-1"}, nil
				},
				GetRolesFn: func(context.Context, bun.IDB, int64) ([]guilddb.Role, error) {
					return roles, nil
				},
				DeleteRoleFn: func(context.Context, bun.IDB, int64, string) error {
					deleted = true
					return tt.deleteErr
				},
			}
			svc, _ := newTestService(repo)

			err := svc.RemoveRole(context.Background(), "guild-1", tt.roleID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, deleted)
		})
	}
}
