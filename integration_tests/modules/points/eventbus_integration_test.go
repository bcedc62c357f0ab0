package points_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointshandlers "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/handlers"
	pointsrouter "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/router"
	"github.com/shigeru22/snipeid-calc-bot-sub001/integration_tests/testutils"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/eventbus"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingRoles struct {
	applied chan pointsservice.AssignmentResult
}

func (r *recordingRoles) ApplyAssignment(_ context.Context, res *pointsservice.AssignmentResult) error {
	r.applied <- *res
	return nil
}

func TestReconcileOverNATS(t *testing.T) {
	env := testutils.NewTestEnvironment(t, testutils.WithNATS())
	ctx, cancel := context.WithTimeout(env.Ctx, 60*time.Second)
	defer cancel()

	h := newHarness(env)
	guildID := h.setupGuild(t, ctx)
	user := h.link(t, ctx, guildID)

	bus, err := eventbus.New(env.NatsURL, observability.NoOpLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	require.NoError(t, err)

	roles := &recordingRoles{applied: make(chan pointsservice.AssignmentResult, 1)}
	pr := pointsrouter.NewPointsRouter(observability.NoOpLogger, router, bus, eventbus.WithMetadataTopics(bus), noop.NewTracerProvider().Tracer("test"), nil)
	require.NoError(t, pr.Configure(ctx, pointshandlers.NewPointsHandlers(h.points, roles, observability.NoOpLogger)))

	reconciled, err := bus.Subscribe(ctx, pointshandlers.ReconciledV1)
	require.NoError(t, err)

	go func() { _ = router.Run(ctx) }()
	<-router.Running()
	t.Cleanup(func() { _ = pr.Close() })

	req, err := eventbus.NewMessage(pointshandlers.ReconcileRequestedV1, pointshandlers.ReconcileRequestedPayload{
		GuildID: guildID,
		OsuID:   user.OsuID,
		Ranks: []pointshandlers.RankCountPayload{
			{Rank: 1, Count: 100}, {Rank: 8, Count: 200}, {Rank: 15, Count: 300}, {Rank: 25, Count: 400}, {Rank: 50, Count: 500},
		},
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(pointshandlers.ReconcileRequestedV1, req))

	select {
	case msg := <-reconciled:
		msg.Ack()
		payload, err := eventbus.Decode[pointshandlers.ReconciledPayload](msg)
		require.NoError(t, err)
		assert.Equal(t, guildID, payload.GuildID)
		assert.Equal(t, user.DiscordID, payload.DiscordUserID)
		assert.Equal(t, 1200, payload.Points)
		assert.Equal(t, "1k", payload.NewRoleName)
		assert.True(t, payload.RoleChanged)
		assert.True(t, payload.RoleSynced)
	case <-ctx.Done():
		t.Fatal("timed out waiting for reconciled event")
	}

	select {
	case res := <-roles.applied:
		assert.Equal(t, guildID, res.GuildID)
	case <-ctx.Done():
		t.Fatal("role sync was not invoked")
	}
}
