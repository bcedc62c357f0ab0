package pointsservice

import (
	"context"
	"sync"
	"testing"
	"time"

	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	pointsdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/database"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type harness struct {
	svc     *PointsService
	tx      *database.FakeTxRunner
	store   *memoryAssignments
	guilds  *fakeGuilds
	users   *fakeUsers
	mu      sync.Mutex
	updates []userdb.PointsUpdate
	clock   time.Time
}

func testRoles() []guilddb.Role {
	return []guilddb.Role{
		{ID: 10, ServerID: 1, Name: guilddb.FloorRoleName, MinPoints: 0},
		{ID: 11, ServerID: 1, DiscordID: strPtr("role-1k"), Name: "1k", MinPoints: 1000},
		{ID: 12, ServerID: 1, DiscordID: strPtr("role-5k"), Name: "5k", MinPoints: 5000},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		tx:    &database.FakeTxRunner{},
		store: newMemoryAssignments(),
		guilds: &fakeGuilds{
			servers: map[string]*guilddb.Server{
				"g1": {ID: 1, DiscordID: "g1"},
			},
			roles: map[int64][]guilddb.Role{1: testRoles()},
		},
		users: &fakeUsers{byOsuID: map[int64]*userdb.User{
			100: {ID: 7, DiscordID: "d7", OsuID: 100, Username: "Shigeru22"},
		}},
		clock: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}

	userRepo := &userdb.FakeRepository{
		UpdatePointsFn: func(_ context.Context, _ bun.IDB, _ int64, u userdb.PointsUpdate) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.updates = append(h.updates, u)
			return nil
		},
	}

	h.svc = NewPointsService(
		h.tx,
		h.store.repository(),
		userRepo,
		h.guilds,
		h.users,
		fakeRanks{counts: map[string][]int{"Shigeru22": {10, 20, 30, 40, 50}}},
		fakeOsu{100: "Shigeru22"},
		observability.NewTestTelemetry("test"),
	)
	h.svc.now = func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.clock = h.clock.Add(time.Minute)
		return h.clock
	}
	return h
}

func TestPointsService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("unlinked player is skipped without writes", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.Reconcile(ctx, "g1", 999, 1234)
		require.NoError(t, err)
		require.True(t, res.IsSkipped())
		assert.Nil(t, res.Assigned)
		assert.Equal(t, SkipUpdate{GuildID: "g1", OsuID: 999, Points: 1234}, *res.Skipped)
		assert.Zero(t, h.tx.Calls)
		assert.Zero(t, h.store.inserts)
		assert.Empty(t, h.updates)
	})

	t.Run("first assignment below every threshold holds the floor role", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.Reconcile(ctx, "g1", 100, 500)
		require.NoError(t, err)
		require.NotNil(t, res.Assigned)

		a := res.Assigned
		assert.Nil(t, a.Transition.Old)
		assert.Equal(t, int64(10), a.Transition.New.ID)
		assert.False(t, a.Transition.Changed())
		assert.Equal(t, 500, a.Delta)
		assert.Nil(t, a.PreviousUpdate)
		assert.Equal(t, "d7", a.DiscordUserID)
		assert.Equal(t, "Shigeru22", a.Username)
		assert.Equal(t, 1, h.store.inserts)
		require.Len(t, h.updates, 1)
		assert.Equal(t, 500, h.updates[0].Points)
		assert.Equal(t, []int64{100}, h.users.invalidated)
	})

	t.Run("crossing a threshold changes role and reports delta", func(t *testing.T) {
		h := newHarness(t)

		first, err := h.svc.Reconcile(ctx, "g1", 100, 500)
		require.NoError(t, err)

		res, err := h.svc.Reconcile(ctx, "g1", 100, 1200)
		require.NoError(t, err)

		a := res.Assigned
		require.NotNil(t, a.Transition.Old)
		assert.Equal(t, int64(10), a.Transition.Old.ID)
		assert.Equal(t, int64(11), a.Transition.New.ID)
		assert.True(t, a.Transition.Changed())
		assert.Equal(t, 700, a.Delta)
		require.NotNil(t, a.PreviousUpdate)
		assert.Nil(t, first.Assigned.PreviousUpdate)
		assert.Equal(t, 1, h.store.inserts)
		assert.Equal(t, 1, h.store.updates)

		stored := h.store.rows[[2]int64{7, 1}]
		assert.Equal(t, int64(11), stored.RoleID)
		assert.Equal(t, 1200, stored.Points)
	})

	t.Run("same points twice is a no-op transition", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Reconcile(ctx, "g1", 100, 6000)
		require.NoError(t, err)
		res, err := h.svc.Reconcile(ctx, "g1", 100, 6000)
		require.NoError(t, err)

		a := res.Assigned
		assert.Zero(t, a.Delta)
		assert.False(t, a.Transition.Changed())
		assert.Equal(t, a.Transition.Old.ID, a.Transition.New.ID)
		assert.Equal(t, int64(12), a.Transition.New.ID)
	})

	t.Run("unknown guild", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Reconcile(ctx, "missing", 100, 10)
		require.ErrorIs(t, err, ErrServerNotFound)
		assert.Zero(t, h.tx.Calls)
	})

	t.Run("negative points are rejected before any lookup", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Reconcile(ctx, "g1", 100, -1)
		require.ErrorIs(t, err, ErrNegativePoints)
		assert.NotErrorIs(t, err, ErrConfiguration)
		assert.Zero(t, h.tx.Calls)
		assert.Zero(t, h.store.inserts)
		assert.Empty(t, h.updates)
	})

	t.Run("guild without floor role", func(t *testing.T) {
		h := newHarness(t)
		h.guilds.roles[1] = testRoles()[1:]

		_, err := h.svc.Reconcile(ctx, "g1", 100, 10)
		require.ErrorIs(t, err, ErrConfiguration)
		assert.Zero(t, h.tx.Calls)
		assert.Zero(t, h.store.inserts)
	})

	t.Run("stale role cache is reloaded", func(t *testing.T) {
		h := newHarness(t)
		h.store.rows[[2]int64{7, 1}] = pointsdb.Assignment{ID: 1, UserID: 7, ServerID: 1, RoleID: 13, Points: 2500}
		h.guilds.onInvalidate = func() {
			h.guilds.roles[1] = append(testRoles(), guilddb.Role{ID: 13, ServerID: 1, DiscordID: strPtr("role-2k"), Name: "2k", MinPoints: 2000})
		}

		res, err := h.svc.Reconcile(ctx, "g1", 100, 2600)
		require.NoError(t, err)

		assert.Equal(t, 1, h.guilds.invalidated)
		require.NotNil(t, res.Assigned.Transition.Old)
		assert.Equal(t, "2k", res.Assigned.Transition.Old.Name)
		assert.Equal(t, "2k", res.Assigned.Transition.New.Name)
		assert.Equal(t, 100, res.Assigned.Delta)
	})

	t.Run("write completes after the caller gives up", func(t *testing.T) {
		h := newHarness(t)
		repo := h.store.repository()
		insert := repo.InsertAssignmentFn
		var txErr error
		repo.InsertAssignmentFn = func(ctx context.Context, db bun.IDB, a *pointsdb.Assignment) error {
			txErr = ctx.Err()
			return insert(ctx, db, a)
		}
		h.svc.repo = repo

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		res, err := h.svc.Reconcile(cancelled, "g1", 100, 10)
		require.NoError(t, err)
		require.NotNil(t, res.Assigned)
		assert.NoError(t, txErr)
		assert.Equal(t, 1, h.store.inserts)
	})

	t.Run("concurrent updates insert once", func(t *testing.T) {
		h := newHarness(t)

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.svc.Reconcile(ctx, "g1", 100, 1000+i)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, h.store.inserts)
		assert.Equal(t, 9, h.store.updates)
		assert.Zero(t, h.svc.locks.size())
	})
}

func TestPointsService_ReconcileRanks(t *testing.T) {
	ctx := context.Background()

	t.Run("scores the table before reconciling", func(t *testing.T) {
		h := newHarness(t)
		ranks := []pointsdomain.RankCount{{Rank: 1, Count: 100}, {Rank: 8, Count: 200}, {Rank: 15, Count: 300}, {Rank: 25, Count: 400}, {Rank: 50, Count: 500}}

		res, err := h.svc.ReconcileRanks(ctx, "g1", 100, ranks, pointsdomain.SchemeStandard)
		require.NoError(t, err)
		// 5*100 + 3*100 + 2*100 + 100 + 100
		assert.Equal(t, 1200, res.Assigned.Points)
		assert.Equal(t, "1k", res.Assigned.Transition.New.Name)
	})

	t.Run("decreasing counts are still scored", func(t *testing.T) {
		h := newHarness(t)
		ranks := []pointsdomain.RankCount{{Rank: 1, Count: 10}, {Rank: 8, Count: 0}, {Rank: 15, Count: 0}, {Rank: 25, Count: 0}, {Rank: 50, Count: 0}}

		res, err := h.svc.ReconcileRanks(ctx, "g1", 100, ranks, pointsdomain.SchemeStandard)
		require.NoError(t, err)
		// 5*10 - 3*10
		assert.Equal(t, 20, res.Assigned.Points)
		assert.Equal(t, int64(10), res.Assigned.Transition.New.ID)
	})

	t.Run("invalid table writes nothing", func(t *testing.T) {
		h := newHarness(t)
		ranks := []pointsdomain.RankCount{{Rank: 8, Count: 1}, {Rank: 1, Count: 1}}

		_, err := h.svc.ReconcileRanks(ctx, "g1", 100, ranks, pointsdomain.SchemeStandard)
		require.ErrorIs(t, err, pointsdomain.ErrInvalidRankData)
		assert.Zero(t, h.tx.Calls)
	})
}

func TestPointsService_UpdateLinkedUser(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches ranks and stores the current username", func(t *testing.T) {
		h := newHarness(t)

		res, err := h.svc.UpdateLinkedUser(ctx, "g1", "d7")
		require.NoError(t, err)
		// 5*10 + 3*10 + 2*10 + 10 + 10
		assert.Equal(t, 120, res.Assigned.Points)
		require.Len(t, h.updates, 1)
		assert.Equal(t, "Shigeru22", h.updates[0].Username)
	})

	t.Run("unlinked member", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.UpdateLinkedUser(ctx, "g1", "nobody")
		require.ErrorIs(t, err, ErrUserNotLinked)
	})
}

func TestPointsService_PreviewPoints(t *testing.T) {
	h := newHarness(t)

	p, err := h.svc.PreviewPoints(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 120, p.Points)
	assert.Equal(t, "Shigeru22", p.Username)
	assert.Len(t, p.Ranks, 5)
	assert.Zero(t, h.tx.Calls)
}

func TestPointsService_RefreshUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.guilds.servers["g2"] = &guilddb.Server{ID: 2, DiscordID: "g2"}
	h.guilds.roles[2] = []guilddb.Role{{ID: 20, ServerID: 2, DiscordID: strPtr("r"), Name: "100", MinPoints: 100}}
	h.store.rows[[2]int64{7, 1}] = pointsdb.Assignment{ID: 1, UserID: 7, ServerID: 1, RoleID: 10, Points: 50}
	h.store.rows[[2]int64{7, 2}] = pointsdb.Assignment{ID: 2, UserID: 7, ServerID: 2, RoleID: 20, Points: 150}

	results, err := h.svc.RefreshUser(ctx, 7)
	require.ErrorIs(t, err, ErrConfiguration)
	require.Len(t, results, 1)
	assert.Equal(t, "g1", results[0].GuildID)
	assert.Equal(t, 70, results[0].Delta)
}
