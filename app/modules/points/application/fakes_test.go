package pointsservice

import (
	"context"
	"sync"

	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osustats"
	"github.com/uptrace/bun"
)

func strPtr(s string) *string { return &s }

type fakeGuilds struct {
	servers      map[string]*guilddb.Server
	roles        map[int64][]guilddb.Role
	invalidated  int
	onInvalidate func()
}

func (f *fakeGuilds) GetServer(_ context.Context, guildID string) (*guilddb.Server, error) {
	s, ok := f.servers[guildID]
	if !ok {
		return nil, guildservice.ErrServerNotFound
	}
	return s, nil
}

func (f *fakeGuilds) GetServerByID(_ context.Context, id int64) (*guilddb.Server, error) {
	for _, s := range f.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, guildservice.ErrServerNotFound
}

func (f *fakeGuilds) GetRoles(_ context.Context, serverID int64) ([]guilddb.Role, error) {
	return f.roles[serverID], nil
}

func (f *fakeGuilds) InvalidateRoles(int64) {
	f.invalidated++
	if f.onInvalidate != nil {
		f.onInvalidate()
	}
}

type fakeUsers struct {
	byOsuID     map[int64]*userdb.User
	mu          sync.Mutex
	invalidated []int64
}

func (f *fakeUsers) GetUserByOsuID(_ context.Context, osuID int64) (*userdb.User, error) {
	u, ok := f.byOsuID[osuID]
	if !ok {
		return nil, userservice.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByDiscordID(_ context.Context, discordID string) (*userdb.User, error) {
	for _, u := range f.byOsuID {
		if u.DiscordID == discordID {
			return u, nil
		}
	}
	return nil, userservice.ErrUserNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*userdb.User, error) {
	for _, u := range f.byOsuID {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, userservice.ErrUserNotFound
}

func (f *fakeUsers) InvalidateUser(osuID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, osuID)
}

type fakeRanks struct {
	counts map[string][]int
}

func (f fakeRanks) RankCounts(_ context.Context, username string, thresholds []int) ([]osustats.RankCount, error) {
	out := make([]osustats.RankCount, len(thresholds))
	for i, r := range thresholds {
		out[i] = osustats.RankCount{Rank: r, Count: f.counts[username][i]}
	}
	return out, nil
}

type fakeOsu map[int64]string

func (f fakeOsu) GetUser(_ context.Context, id int64) (*osu.User, error) {
	name, ok := f[id]
	if !ok {
		return nil, osu.ErrUserNotFound
	}
	return &osu.User{ID: id, Username: name}, nil
}

// memoryAssignments backs a pointsdb.FakeRepository with a map.
type memoryAssignments struct {
	mu      sync.Mutex
	rows    map[[2]int64]pointsdb.Assignment
	nextID  int64
	inserts int
	updates int
}

func newMemoryAssignments() *memoryAssignments {
	return &memoryAssignments{rows: make(map[[2]int64]pointsdb.Assignment)}
}

func (m *memoryAssignments) repository() *pointsdb.FakeRepository {
	return &pointsdb.FakeRepository{
		GetAssignmentFn: func(_ context.Context, _ bun.IDB, userID, serverID int64) (*pointsdb.Assignment, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			a, ok := m.rows[[2]int64{userID, serverID}]
			if !ok {
				return nil, pointsdb.ErrNotFound
			}
			return &a, nil
		},
		GetAssignmentsByUserFn: func(_ context.Context, _ bun.IDB, userID int64) ([]pointsdb.Assignment, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var out []pointsdb.Assignment
			for k, a := range m.rows {
				if k[0] == userID {
					out = append(out, a)
				}
			}
			return out, nil
		},
		InsertAssignmentFn: func(_ context.Context, _ bun.IDB, a *pointsdb.Assignment) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.nextID++
			a.ID = m.nextID
			m.rows[[2]int64{a.UserID, a.ServerID}] = *a
			m.inserts++
			return nil
		},
		UpdateAssignmentFn: func(_ context.Context, _ bun.IDB, a *pointsdb.Assignment) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.rows[[2]int64{a.UserID, a.ServerID}] = *a
			m.updates++
			return nil
		},
	}
}
