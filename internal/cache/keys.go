package cache

import "fmt"

// Key namespaces. Each namespace maps to one typed Cache.
const (
	NamespaceServer   = "SERVER"
	NamespaceGuild    = "GUILD"
	NamespaceUser     = "USER"
	NamespaceRoles    = "ROLES"
	NamespaceOsuAPI   = "OSU_API"
	NamespaceOsuStats = "OSU_STATS"
)

// ServerKey keys a server row by its internal id.
func ServerKey(serverID int64) string {
	return fmt.Sprintf("%s_%d", NamespaceServer, serverID)
}

// GuildKey keys a server row by its Discord guild id.
func GuildKey(guildID string) string {
	return NamespaceGuild + "_" + guildID
}

// UserKey keys a user row by osu! id.
func UserKey(osuID int64) string {
	return fmt.Sprintf("%s_%d", NamespaceUser, osuID)
}

// RolesKey keys the ordered role tiers of a server.
func RolesKey(serverID int64) string {
	return fmt.Sprintf("%s_%d", NamespaceRoles, serverID)
}

// OsuAPIKey keys an osu! API user response.
func OsuAPIKey(osuID int64) string {
	return fmt.Sprintf("%s_%d", NamespaceOsuAPI, osuID)
}

// OsuStatsKey keys an osu!stats top-N count for a username.
func OsuStatsKey(username string, maxRank int) string {
	return fmt.Sprintf("%s_%s_%d", NamespaceOsuStats, username, maxRank)
}
