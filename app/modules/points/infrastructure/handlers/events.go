package pointshandlers

import "time"

// Topics served and produced by the points module.
const (
	ReconcileRequestedV1 = "points.reconcile.requested.v1"
	ReconciledV1         = "points.reconciled.v1"
	ReconcileSkippedV1   = "points.reconcile.skipped.v1"
	ReconcileFailedV1    = "points.reconcile.failed.v1"
)

// RankCountPayload is one row of a top-N rank table.
type RankCountPayload struct {
	Rank  int `json:"rank"`
	Count int `json:"count"`
}

// ReconcileRequestedPayload asks for a player's rank table to be scored and
// reconciled in a guild. Scheme is "standard" (default) or "reduced".
type ReconcileRequestedPayload struct {
	GuildID string             `json:"guild_id"`
	OsuID   int64              `json:"osu_id"`
	Scheme  string             `json:"scheme,omitempty"`
	Ranks   []RankCountPayload `json:"ranks"`
}

// ReconciledPayload reports a persisted assignment.
type ReconciledPayload struct {
	GuildID        string     `json:"guild_id"`
	DiscordUserID  string     `json:"discord_user_id"`
	OsuID          int64      `json:"osu_id"`
	Username       string     `json:"username"`
	Points         int        `json:"points"`
	Delta          int        `json:"delta"`
	PreviousUpdate *time.Time `json:"previous_update,omitempty"`
	OldRoleID      *string    `json:"old_role_id,omitempty"`
	OldRoleName    string     `json:"old_role_name,omitempty"`
	NewRoleID      *string    `json:"new_role_id,omitempty"`
	NewRoleName    string     `json:"new_role_name"`
	RoleChanged    bool       `json:"role_changed"`
	// RoleSynced is false when Discord rejected the role change.
	RoleSynced bool `json:"role_synced"`
}

// ReconcileSkippedPayload reports an unlinked player's would-be points.
type ReconcileSkippedPayload struct {
	GuildID string `json:"guild_id"`
	OsuID   int64  `json:"osu_id"`
	Points  int    `json:"points"`
}

// ReconcileFailedPayload reports a request that cannot succeed as sent.
type ReconcileFailedPayload struct {
	GuildID string `json:"guild_id"`
	OsuID   int64  `json:"osu_id"`
	Reason  string `json:"reason"`
}
