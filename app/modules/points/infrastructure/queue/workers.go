package pointsqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	userdb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/infrastructure/repositories"
)

// Refresher is the points service surface the workers use.
type Refresher interface {
	StaleUsers(ctx context.Context, before time.Time, limit int) ([]userdb.User, error)
	RefreshUser(ctx context.Context, userID int64) ([]pointsservice.AssignmentResult, error)
}

// RoleApplier mirrors an assignment onto Discord.
type RoleApplier interface {
	ApplyAssignment(ctx context.Context, res *pointsservice.AssignmentResult) error
}

// Inserter enqueues jobs. *river.Client[pgx.Tx] satisfies it.
type Inserter interface {
	InsertMany(ctx context.Context, params []river.InsertManyParams) ([]*rivertype.JobInsertResult, error)
}

// SweepWorker lists stale users and fans out one refresh job per user.
type SweepWorker struct {
	river.WorkerDefaults[RefreshSweepJob]

	logger     *slog.Logger
	refresher  Refresher
	inserter   Inserter
	staleAfter time.Duration
	batchSize  int
	now        func() time.Time
}

// NewSweepWorker creates the sweep worker. The inserter is usually attached
// with SetInserter once the river client exists.
func NewSweepWorker(logger *slog.Logger, refresher Refresher, staleAfter time.Duration, batchSize int) *SweepWorker {
	return &SweepWorker{
		logger:     logger,
		refresher:  refresher,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// SetInserter attaches the client used to enqueue per-user jobs.
func (w *SweepWorker) SetInserter(inserter Inserter) {
	w.inserter = inserter
}

func (w *SweepWorker) Work(ctx context.Context, job *river.Job[RefreshSweepJob]) error {
	if w.inserter == nil {
		return errors.New("sweep worker has no inserter")
	}

	cutoff := w.now().Add(-w.staleAfter)
	users, err := w.refresher.StaleUsers(ctx, cutoff, w.batchSize)
	if err != nil {
		return fmt.Errorf("list stale users: %w", err)
	}
	if len(users) == 0 {
		w.logger.DebugContext(ctx, "No stale users to refresh")
		return nil
	}

	params := make([]river.InsertManyParams, 0, len(users))
	for _, u := range users {
		params = append(params, river.InsertManyParams{
			Args: RefreshUserJob{UserID: u.ID},
			InsertOpts: &river.InsertOpts{
				Queue:      QueuePoints,
				UniqueOpts: river.UniqueOpts{ByArgs: true},
			},
		})
	}

	if _, err := w.inserter.InsertMany(ctx, params); err != nil {
		return fmt.Errorf("enqueue refresh jobs: %w", err)
	}

	w.logger.InfoContext(ctx, "Enqueued stale user refreshes",
		slog.Int("users", len(users)),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// UserWorker refreshes one user and syncs any role transitions to Discord.
type UserWorker struct {
	river.WorkerDefaults[RefreshUserJob]

	logger    *slog.Logger
	refresher Refresher
	roles     RoleApplier
}

// NewUserWorker creates the per-user refresh worker.
func NewUserWorker(logger *slog.Logger, refresher Refresher, roles RoleApplier) *UserWorker {
	return &UserWorker{logger: logger, refresher: refresher, roles: roles}
}

func (w *UserWorker) Work(ctx context.Context, job *river.Job[RefreshUserJob]) error {
	logger := w.logger.With(slog.Int64("user_id", job.Args.UserID))

	results, refreshErr := w.refresher.RefreshUser(ctx, job.Args.UserID)
	for i := range results {
		if err := w.roles.ApplyAssignment(ctx, &results[i]); err != nil {
			logger.WarnContext(ctx, "Role sync failed after refresh",
				slog.String("guild_id", results[i].GuildID),
				slog.Any("error", err),
			)
		}
	}

	if refreshErr != nil {
		logger.ErrorContext(ctx, "User refresh finished with errors",
			slog.Int("refreshed", len(results)),
			slog.Any("error", refreshErr),
		)
		if len(results) > 0 {
			// Partial success. Retrying would repeat the servers that
			// already reconciled.
			return nil
		}
		return refreshErr
	}

	logger.InfoContext(ctx, "User refreshed", slog.Int("servers", len(results)))
	return nil
}
