package pointsqueue

// RefreshSweepJob finds users whose points have gone stale and enqueues a
// RefreshUserJob for each of them.
type RefreshSweepJob struct{}

// Kind returns the job type identifier for River
func (RefreshSweepJob) Kind() string { return "points_refresh_sweep" }

// RefreshUserJob recomputes a single user's points in every server they hold
// an assignment in.
type RefreshUserJob struct {
	UserID int64 `json:"user_id"`
}

// Kind returns the job type identifier for River
func (RefreshUserJob) Kind() string { return "points_refresh_user" }
