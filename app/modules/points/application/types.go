package pointsservice

import (
	"time"

	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
)

// AssignmentResult describes a persisted reconciliation. It is what RoleSync
// and reply formatting consume.
type AssignmentResult struct {
	GuildID       string
	DiscordUserID string
	OsuID         int64
	Username      string
	Points        int
	// Delta is Points minus the points previously stored for this server,
	// or Points when there was no previous assignment.
	Delta      int
	Transition pointsdomain.RoleTransition
	// PreviousUpdate is the prior assignment's timestamp, nil on first
	// assignment.
	PreviousUpdate *time.Time
}

// SkipUpdate is returned when the player has no linked Discord account.
// Nothing was persisted; callers report the would-be points only.
type SkipUpdate struct {
	GuildID string
	OsuID   int64
	Points  int
}

// ReconcileResult holds exactly one of Assigned or Skipped when the
// reconciliation returned no error.
type ReconcileResult struct {
	Assigned *AssignmentResult
	Skipped  *SkipUpdate
}

// IsSkipped reports whether the reconciliation was skipped.
func (r ReconcileResult) IsSkipped() bool {
	return r.Skipped != nil
}

// Preview is a computed but unpersisted points value.
type Preview struct {
	OsuID    int64
	Username string
	Ranks    []pointsdomain.RankCount
	Points   int
}
