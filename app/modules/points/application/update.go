package pointsservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/observability"
)

// ReconcileRanks scores ranks under scheme and reconciles the total.
func (s *PointsService) ReconcileRanks(
	ctx context.Context,
	guildID string,
	osuID int64,
	ranks []pointsdomain.RankCount,
	scheme pointsdomain.Scheme,
) (ReconcileResult, error) {
	return observability.Observe(ctx, s.telemetry, "ReconcileRanks", guildID, func(ctx context.Context) (ReconcileResult, error) {
		points, err := s.calculate(ctx, osuID, ranks, scheme)
		if err != nil {
			return ReconcileResult{}, err
		}
		return s.reconcile(ctx, guildID, osuID, points, "")
	})
}

// UpdateLinkedUser fetches the member's current rank table from osu!stats and
// reconciles it under the standard scheme.
func (s *PointsService) UpdateLinkedUser(ctx context.Context, guildID, discordID string) (ReconcileResult, error) {
	return observability.Observe(ctx, s.telemetry, "UpdateLinkedUser", guildID, func(ctx context.Context) (ReconcileResult, error) {
		user, err := s.users.GetUserByDiscordID(ctx, discordID)
		if err != nil {
			if errors.Is(err, userservice.ErrUserNotFound) {
				return ReconcileResult{}, ErrUserNotLinked
			}
			return ReconcileResult{}, err
		}

		preview, err := s.preview(ctx, user.OsuID)
		if err != nil {
			return ReconcileResult{}, err
		}
		return s.reconcile(ctx, guildID, user.OsuID, preview.Points, preview.Username)
	})
}

// PreviewPoints computes a player's standard points. Nothing is persisted.
func (s *PointsService) PreviewPoints(ctx context.Context, osuID int64) (*Preview, error) {
	return observability.Observe(ctx, s.telemetry, "PreviewPoints", "", func(ctx context.Context) (*Preview, error) {
		return s.preview(ctx, osuID)
	})
}

// RefreshUser recomputes the user's points once and reconciles them in every
// server holding an assignment. A failing server does not stop the others;
// the joined error is returned with the results that succeeded.
func (s *PointsService) RefreshUser(ctx context.Context, userID int64) ([]AssignmentResult, error) {
	return observability.Observe(ctx, s.telemetry, "RefreshUser", "", func(ctx context.Context) ([]AssignmentResult, error) {
		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		assignments, err := s.repo.GetAssignmentsByUser(ctx, nil, user.ID)
		if err != nil {
			return nil, err
		}
		if len(assignments) == 0 {
			return nil, nil
		}

		preview, err := s.preview(ctx, user.OsuID)
		if err != nil {
			return nil, err
		}

		var (
			results []AssignmentResult
			errs    []error
		)
		for _, a := range assignments {
			server, err := s.guilds.GetServerByID(ctx, a.ServerID)
			if err != nil {
				errs = append(errs, fmt.Errorf("server %d: %w", a.ServerID, err))
				continue
			}
			res, err := s.assign(ctx, server, user, preview.Points, preview.Username)
			if err != nil {
				errs = append(errs, fmt.Errorf("guild %s: %w", server.DiscordID, err))
				continue
			}
			results = append(results, *res)
		}
		return results, errors.Join(errs...)
	})
}

// StaleUsers lists users with an assignment that were never updated or last
// updated before the cut-off.
func (s *PointsService) StaleUsers(ctx context.Context, before time.Time, limit int) ([]userdb.User, error) {
	users, err := s.userRepo.GetStaleUsers(ctx, nil, before, limit)
	if err != nil {
		return nil, fmt.Errorf("PointsService.StaleUsers: %w", err)
	}
	return users, nil
}

func (s *PointsService) preview(ctx context.Context, osuID int64) (*Preview, error) {
	profile, err := s.osu.GetUser(ctx, osuID)
	if err != nil {
		return nil, err
	}

	scheme := pointsdomain.SchemeStandard
	counts, err := s.ranks.RankCounts(ctx, profile.Username, scheme.Thresholds())
	if err != nil {
		return nil, err
	}

	ranks := make([]pointsdomain.RankCount, len(counts))
	for i, c := range counts {
		ranks[i] = pointsdomain.RankCount{Rank: c.Rank, Count: c.Count}
	}

	points, err := s.calculate(ctx, osuID, ranks, scheme)
	if err != nil {
		return nil, err
	}
	return &Preview{OsuID: osuID, Username: profile.Username, Ranks: ranks, Points: points}, nil
}

func (s *PointsService) calculate(ctx context.Context, osuID int64, ranks []pointsdomain.RankCount, scheme pointsdomain.Scheme) (int, error) {
	points, err := pointsdomain.CalculatePoints(ranks, scheme)
	if err != nil {
		return 0, err
	}
	if !pointsdomain.IsMonotonic(ranks) {
		s.logger.WarnContext(ctx, "Rank counts decrease with rank",
			slog.Int64("osu_id", osuID),
			slog.Any("ranks", ranks),
			slog.Int("points", points),
		)
	}
	return points, nil
}

// RoleHolders returns the Discord ids of members currently assigned the role.
func (s *PointsService) RoleHolders(ctx context.Context, roleID int64) ([]string, error) {
	ids, err := s.repo.GetHolderDiscordIDs(ctx, nil, roleID)
	if err != nil {
		return nil, fmt.Errorf("PointsService.RoleHolders: %w", err)
	}
	return ids, nil
}
