package pointshandlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/eventbus"
)

// PointsHandlers handles points-related events.
type PointsHandlers struct {
	service Reconciler
	roles   RoleApplier
	logger  *slog.Logger
}

// NewPointsHandlers creates a new instance of PointsHandlers.
func NewPointsHandlers(service Reconciler, roles RoleApplier, logger *slog.Logger) Handlers {
	return &PointsHandlers{
		service: service,
		roles:   roles,
		logger:  logger,
	}
}

// HandleReconcileRequested scores the rank table, reconciles it and syncs the
// member's role before announcing the outcome.
//
// Requests that can never succeed are acked with a failure event; anything
// else is returned so the router retries.
func (h *PointsHandlers) HandleReconcileRequested(msg *message.Message) ([]*message.Message, error) {
	ctx := msg.Context()
	correlationID := middleware.MessageCorrelationID(msg)

	payload, err := eventbus.Decode[ReconcileRequestedPayload](msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Dropping malformed reconcile request",
			slog.String("correlation_id", correlationID),
			slog.Any("error", err),
		)
		return nil, nil
	}

	h.logger.InfoContext(ctx, "Received reconcile request",
		slog.String("correlation_id", correlationID),
		slog.String("guild_id", payload.GuildID),
		slog.Int64("osu_id", payload.OsuID),
	)

	scheme, err := pointsdomain.ParseScheme(payload.Scheme)
	if err != nil {
		return h.failed(msg, payload, err)
	}

	ranks := make([]pointsdomain.RankCount, len(payload.Ranks))
	for i, r := range payload.Ranks {
		ranks[i] = pointsdomain.RankCount{Rank: r.Rank, Count: r.Count}
	}

	result, err := h.service.ReconcileRanks(ctx, payload.GuildID, payload.OsuID, ranks, scheme)
	if err != nil {
		if isPermanent(err) {
			return h.failed(msg, payload, err)
		}
		return nil, fmt.Errorf("failed to reconcile: %w", err)
	}

	if result.IsSkipped() {
		out, err := eventbus.NewResultMessage(msg, ReconcileSkippedV1, ReconcileSkippedPayload{
			GuildID: result.Skipped.GuildID,
			OsuID:   result.Skipped.OsuID,
			Points:  result.Skipped.Points,
		})
		if err != nil {
			return nil, err
		}
		return []*message.Message{out}, nil
	}

	synced := true
	if err := h.roles.ApplyAssignment(ctx, result.Assigned); err != nil {
		synced = false
		h.logger.WarnContext(ctx, "Failed to sync member role",
			slog.String("correlation_id", correlationID),
			slog.String("guild_id", result.Assigned.GuildID),
			slog.String("member_id", result.Assigned.DiscordUserID),
			slog.Any("error", err),
		)
	}

	out, err := eventbus.NewResultMessage(msg, ReconciledV1, reconciledPayload(result.Assigned, synced))
	if err != nil {
		return nil, err
	}
	return []*message.Message{out}, nil
}

func (h *PointsHandlers) failed(msg *message.Message, payload ReconcileRequestedPayload, cause error) ([]*message.Message, error) {
	h.logger.WarnContext(msg.Context(), "Reconcile request rejected",
		slog.String("correlation_id", middleware.MessageCorrelationID(msg)),
		slog.String("guild_id", payload.GuildID),
		slog.Int64("osu_id", payload.OsuID),
		slog.Any("error", cause),
	)
	out, err := eventbus.NewResultMessage(msg, ReconcileFailedV1, ReconcileFailedPayload{
		GuildID: payload.GuildID,
		OsuID:   payload.OsuID,
		Reason:  cause.Error(),
	})
	if err != nil {
		return nil, err
	}
	return []*message.Message{out}, nil
}

func isPermanent(err error) bool {
	return errors.Is(err, pointsservice.ErrServerNotFound) ||
		errors.Is(err, pointsservice.ErrConfiguration) ||
		errors.Is(err, pointsservice.ErrNegativePoints) ||
		errors.Is(err, pointsdomain.ErrInvalidRankData)
}

func reconciledPayload(a *pointsservice.AssignmentResult, synced bool) ReconciledPayload {
	p := ReconciledPayload{
		GuildID:        a.GuildID,
		DiscordUserID:  a.DiscordUserID,
		OsuID:          a.OsuID,
		Username:       a.Username,
		Points:         a.Points,
		Delta:          a.Delta,
		PreviousUpdate: a.PreviousUpdate,
		NewRoleID:      a.Transition.New.DiscordID,
		NewRoleName:    a.Transition.New.Name,
		RoleChanged:    a.Transition.Changed(),
		RoleSynced:     synced,
	}
	if old := a.Transition.Old; old != nil {
		p.OldRoleID = old.DiscordID
		p.OldRoleName = old.Name
	}
	return p
}
