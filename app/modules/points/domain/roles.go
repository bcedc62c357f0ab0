package pointsdomain

// Role is a guild points threshold. DiscordID is nil for a role that exists
// only in the bot, such as the floor role.
type Role struct {
	ID        int64
	DiscordID *string
	Name      string
	MinPoints int
}

// ResolveRole returns the role with the highest MinPoints not above points.
// roles need not be sorted. ok is false when no role qualifies, which means
// the guild has no floor role.
func ResolveRole(roles []Role, points int) (role Role, ok bool) {
	for _, r := range roles {
		if r.MinPoints > points {
			continue
		}
		if !ok || r.MinPoints > role.MinPoints {
			role, ok = r, true
		}
	}
	return role, ok
}

// HasFloorRole reports whether some role starts at zero points.
func HasFloorRole(roles []Role) bool {
	for _, r := range roles {
		if r.MinPoints == 0 {
			return true
		}
	}
	return false
}

// RoleTransition is the change in held role for one member.
type RoleTransition struct {
	// Old is nil when the member had no assignment in the guild.
	Old *Role
	New Role
}

// Changed reports whether the external role differs. Two roles without an
// external id, or no previous role and a new one without an external id,
// are the same.
func (t RoleTransition) Changed() bool {
	return !sameID(externalID(t.Old), t.New.DiscordID)
}

func externalID(r *Role) *string {
	if r == nil {
		return nil
	}
	return r.DiscordID
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
