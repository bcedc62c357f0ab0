package pointsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	pointsdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/infrastructure/repositories"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
	"github.com/uptrace/bun"
)

// Reconcile resolves the role points earn in the guild and persists the
// assignment and the user's points in one transaction.
//
// An unlinked player yields a SkipUpdate and writes nothing. Once the
// transaction starts it runs to completion even if ctx is cancelled.
func (s *PointsService) Reconcile(ctx context.Context, guildID string, osuID int64, points int) (ReconcileResult, error) {
	return observability.Observe(ctx, s.telemetry, "Reconcile", guildID, func(ctx context.Context) (ReconcileResult, error) {
		return s.reconcile(ctx, guildID, osuID, points, "")
	})
}

func (s *PointsService) reconcile(ctx context.Context, guildID string, osuID int64, points int, username string) (ReconcileResult, error) {
	if points < 0 {
		return ReconcileResult{}, fmt.Errorf("%w: %d", ErrNegativePoints, points)
	}

	server, err := s.guilds.GetServer(ctx, guildID)
	if err != nil {
		if errors.Is(err, guildservice.ErrServerNotFound) {
			return ReconcileResult{}, fmt.Errorf("%w: %s", ErrServerNotFound, guildID)
		}
		return ReconcileResult{}, err
	}

	user, err := s.users.GetUserByOsuID(ctx, osuID)
	if err != nil {
		if errors.Is(err, userservice.ErrUserNotFound) {
			s.logger.InfoContext(ctx, "Skipping update for unlinked player",
				slog.String("guild_id", guildID),
				slog.Int64("osu_id", osuID),
				slog.Int("points", points),
			)
			return ReconcileResult{Skipped: &SkipUpdate{GuildID: guildID, OsuID: osuID, Points: points}}, nil
		}
		return ReconcileResult{}, err
	}

	assigned, err := s.assign(ctx, server, user, points, username)
	if err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Assigned: assigned}, nil
}

// assign serializes on (server, user) in-process and through an advisory
// lock so concurrent updates for the same member cannot both insert.
func (s *PointsService) assign(ctx context.Context, server *guilddb.Server, user *userdb.User, points int, username string) (*AssignmentResult, error) {
	roles, err := s.guilds.GetRoles(ctx, server.ID)
	if err != nil {
		return nil, err
	}
	if !pointsdomain.HasFloorRole(toDomainRoles(roles)) {
		return nil, fmt.Errorf("%w: guild %s has no zero-points role", ErrConfiguration, server.DiscordID)
	}

	unlock := s.locks.Lock(assignmentKey(server.ID, user.ID))
	defer unlock()

	var result *AssignmentResult
	err = s.db.RunInTx(context.WithoutCancel(ctx), nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		result, err = s.assignInTx(ctx, tx, server, user, roles, points, username)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.users.InvalidateUser(user.OsuID)
	s.metrics.RecordRoleTransition(result.Transition.Changed())

	s.logger.InfoContext(ctx, "Assignment reconciled",
		slog.String("guild_id", server.DiscordID),
		slog.Int64("osu_id", user.OsuID),
		slog.Int("points", points),
		slog.Int("delta", result.Delta),
		slog.String("role", result.Transition.New.Name),
		slog.Bool("role_changed", result.Transition.Changed()),
	)
	return result, nil
}

func (s *PointsService) assignInTx(
	ctx context.Context,
	tx bun.Tx,
	server *guilddb.Server,
	user *userdb.User,
	roles []guilddb.Role,
	points int,
	username string,
) (*AssignmentResult, error) {
	if err := s.repo.AcquireAssignmentLock(ctx, tx, server.ID, user.ID); err != nil {
		return nil, err
	}

	current, err := s.repo.GetAssignment(ctx, tx, user.ID, server.ID)
	if errors.Is(err, pointsdb.ErrNotFound) {
		current = nil
	} else if err != nil {
		return nil, err
	}

	var old *pointsdomain.Role
	if current != nil {
		r, ok := findRole(roles, current.RoleID)
		if !ok {
			// Tiers changed since they were cached.
			s.guilds.InvalidateRoles(server.ID)
			roles, err = s.guilds.GetRoles(ctx, server.ID)
			if err != nil {
				return nil, err
			}
			r, ok = findRole(roles, current.RoleID)
		}
		if ok {
			old = &r
		}
	}

	target, ok := pointsdomain.ResolveRole(toDomainRoles(roles), points)
	if !ok {
		return nil, fmt.Errorf("%w: guild %s has no zero-points role", ErrConfiguration, server.DiscordID)
	}

	now := s.now().UTC()
	result := &AssignmentResult{
		GuildID:       server.DiscordID,
		DiscordUserID: user.DiscordID,
		OsuID:         user.OsuID,
		Username:      username,
		Points:        points,
		Delta:         points,
		Transition:    pointsdomain.RoleTransition{Old: old, New: target},
	}
	if result.Username == "" {
		result.Username = user.Username
	}

	if current == nil {
		err = s.repo.InsertAssignment(ctx, tx, &pointsdb.Assignment{
			UserID:     user.ID,
			ServerID:   server.ID,
			RoleID:     target.ID,
			Points:     points,
			LastUpdate: now,
		})
	} else {
		previous := current.LastUpdate
		result.PreviousUpdate = &previous
		result.Delta = points - current.Points

		current.RoleID = target.ID
		current.Points = points
		current.LastUpdate = now
		err = s.repo.UpdateAssignment(ctx, tx, current)
	}
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdatePoints(ctx, tx, user.ID, userdb.PointsUpdate{
		Username: username,
		Points:   points,
		At:       now,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func assignmentKey(serverID, userID int64) string {
	return strconv.FormatInt(serverID, 10) + ":" + strconv.FormatInt(userID, 10)
}

func findRole(roles []guilddb.Role, id int64) (pointsdomain.Role, bool) {
	for _, r := range roles {
		if r.ID == id {
			return toDomainRole(r), true
		}
	}
	return pointsdomain.Role{}, false
}

func toDomainRole(r guilddb.Role) pointsdomain.Role {
	return pointsdomain.Role{
		ID:        r.ID,
		DiscordID: r.DiscordID,
		Name:      r.Name,
		MinPoints: r.MinPoints,
	}
}

func toDomainRoles(roles []guilddb.Role) []pointsdomain.Role {
	out := make([]pointsdomain.Role, len(roles))
	for i, r := range roles {
		out[i] = toDomainRole(r)
	}
	return out
}
