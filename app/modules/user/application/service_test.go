package userservice

import (
	"context"
	"errors"
	"testing"

	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fakeServers struct {
	server *guilddb.Server
}

func (f fakeServers) GetServer(context.Context, string) (*guilddb.Server, error) {
	if f.server == nil {
		return nil, guildservice.ErrServerNotFound
	}
	return f.server, nil
}

type fakeOsu struct {
	users map[int64]osu.User
	err   error
}

func (f fakeOsu) GetUser(_ context.Context, id int64) (*osu.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, osu.ErrUserNotFound
	}
	return &u, nil
}

func strPtr(s string) *string { return &s }

func TestUserService_LinkUser(t *testing.T) {
	profiles := fakeOsu{users: map[int64]osu.User{
		2:   {ID: 2, Username: "peppy", CountryCode: "AU"},
		100: {ID: 100, Username: "Shigeru22", CountryCode: "id"},
	}}

	tests := []struct {
		name         string
		server       *guilddb.Server
		osuID        int64
		existing     *userdb.User
		createErr    error
		wantErr      error
		wantVerified *string
	}{
		{
			name:         "links and returns verified role",
			server:       &guilddb.Server{ID: 1, DiscordID: "g", Country: strPtr("ID"), VerifiedRoleID: strPtr("verified")},
			osuID:        100,
			wantVerified: strPtr("verified"),
		},
		{
			name:   "no country restriction",
			server: &guilddb.Server{ID: 1, DiscordID: "g"},
			osuID:  2,
		},
		{
			name:    "country mismatch",
			server:  &guilddb.Server{ID: 1, DiscordID: "g", Country: strPtr("ID")},
			osuID:   2,
			wantErr: ErrCountryMismatch,
		},
		{
			name:     "discord account already linked",
			server:   &guilddb.Server{ID: 1, DiscordID: "g"},
			osuID:    2,
			existing: &userdb.User{ID: 5, DiscordID: "member", OsuID: 3},
			wantErr:  ErrAlreadyLinked,
		},
		{
			name:      "osu account already linked",
			server:    &guilddb.Server{ID: 1, DiscordID: "g"},
			osuID:     2,
			createErr: userdb.ErrAlreadyExists,
			wantErr:   ErrAlreadyLinked,
		},
		{
			name:    "unknown osu user",
			server:  &guilddb.Server{ID: 1, DiscordID: "g"},
			osuID:   404,
			wantErr: ErrOsuUserNotFound,
		},
		{
			name:    "unknown server",
			osuID:   2,
			wantErr: guildservice.ErrServerNotFound,
		},
		{
			name:    "invalid osu id",
			server:  &guilddb.Server{ID: 1, DiscordID: "g"},
			osuID:   0,
			wantErr: ErrInvalidOsuID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *userdb.User
			repo := &userdb.FakeRepository{
				GetUserByDiscordIDFn: func(context.Context, bun.IDB, string) (*userdb.User, error) {
					if tt.existing != nil {
						return tt.existing, nil
					}
					return nil, userdb.ErrNotFound
				},
				CreateUserFn: func(_ context.Context, _ bun.IDB, u *userdb.User) error {
					if tt.createErr != nil {
						return tt.createErr
					}
					u.ID = 42
					created = u
					return nil
				},
			}
			users := cache.New[userdb.User]()
			svc := NewUserService(repo, fakeServers{server: tt.server}, profiles, users, observability.NewTestTelemetry("test"))

			res, err := svc.LinkUser(context.Background(), "g", "member", tt.osuID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				assert.Nil(t, created)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, created)
			assert.Equal(t, int64(42), res.User.ID)
			assert.Equal(t, tt.wantVerified, res.VerifiedRoleID)
			assert.True(t, users.Contains(cache.UserKey(tt.osuID)), "linked user should be cached")
		})
	}
}

func TestUserService_GetUserByOsuIDCaches(t *testing.T) {
	calls := 0
	repo := &userdb.FakeRepository{
		GetUserByOsuIDFn: func(_ context.Context, _ bun.IDB, osuID int64) (*userdb.User, error) {
			calls++
			if osuID != 2 {
				return nil, userdb.ErrNotFound
			}
			return &userdb.User{ID: 1, OsuID: 2, Username: "peppy"}, nil
		},
	}
	svc := NewUserService(repo, fakeServers{}, fakeOsu{}, cache.New[userdb.User](), observability.NewTestTelemetry("test"))
	ctx := context.Background()

	for range 2 {
		u, err := svc.GetUserByOsuID(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "peppy", u.Username)
	}
	assert.Equal(t, 1, calls)

	svc.InvalidateUser(2)
	_, err := svc.GetUserByOsuID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = svc.GetUserByOsuID(ctx, 3)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
