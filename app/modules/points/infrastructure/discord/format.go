package pointsdiscord

import (
	"errors"
	"fmt"
	"strings"

	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/osu"
)

const dateLayout = "2006-01-02 15:04 UTC"

func formatAssignment(res *pointsservice.AssignmentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** has %d points", res.Username, res.Points)
	if res.PreviousUpdate != nil {
		fmt.Fprintf(&b, " (%+d since %s)", res.Delta, res.PreviousUpdate.UTC().Format(dateLayout))
	}
	b.WriteString(".\n")

	t := res.Transition
	switch {
	case t.Changed() && t.Old != nil:
		fmt.Fprintf(&b, "Role changed from %s to %s.", t.Old.Name, t.New.Name)
	case t.Changed():
		fmt.Fprintf(&b, "Role granted: %s.", t.New.Name)
	default:
		fmt.Fprintf(&b, "Role: %s.", t.New.Name)
	}
	return b.String()
}

func formatSkip(s *pointsservice.SkipUpdate) string {
	return fmt.Sprintf("osu! user %d is not linked here. They would have %d points.", s.OsuID, s.Points)
}

func formatPreview(p *pointsservice.Preview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** would have %d points.\n", p.Username, p.Points)
	for i, r := range p.Ranks {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "top %d: %d", r.Rank, r.Count)
	}
	return b.String()
}

func formatSettings(s *guilddb.Server) string {
	return fmt.Sprintf("Country: %s\nVerified role: %s\nCommands channel: %s\nLeaderboard channel: %s",
		orNone(s.Country, "%s"),
		orNone(s.VerifiedRoleID, "<@&%s>"),
		orNone(s.CommandsChannelID, "<#%s>"),
		orNone(s.LeaderboardChannelID, "<#%s>"),
	)
}

func orNone(v *string, format string) string {
	if v == nil || *v == "" {
		return "none"
	}
	return fmt.Sprintf(format, *v)
}

// userMessage turns an error into the text shown to the member. Unknown
// errors are not described.
func userMessage(err error) string {
	switch {
	case errors.Is(err, userservice.ErrAlreadyLinked):
		return "That Discord or osu! account is already linked."
	case errors.Is(err, userservice.ErrCountryMismatch):
		return "This server only accepts players from its country."
	case errors.Is(err, userservice.ErrOsuUserNotFound), errors.Is(err, osu.ErrUserNotFound):
		return "No osu! user has that id."
	case errors.Is(err, userservice.ErrInvalidOsuID):
		return "osu! ids are positive numbers."
	case errors.Is(err, pointsservice.ErrUserNotLinked):
		return "Link your osu! account first with /link."
	case errors.Is(err, pointsservice.ErrConfiguration):
		return "This server has no zero-points role. Ask an admin to check the role settings."
	case errors.Is(err, pointsservice.ErrServerNotFound), errors.Is(err, guildservice.ErrServerNotFound):
		return "This server is not registered yet. Try again in a moment."
	case errors.Is(err, guildservice.ErrFloorRole):
		return "The zero-points role cannot be removed."
	case errors.Is(err, guildservice.ErrRoleNotFound):
		return "That role is not a points role."
	case errors.Is(err, guildservice.ErrInvalidThreshold):
		return "Thresholds cannot be negative."
	case errors.Is(err, pointsdomain.ErrInvalidRankData):
		return "osu!stats returned incomplete rank data. Try again later."
	case errors.Is(err, osu.ErrAuth):
		return "The osu! API is unavailable right now. Try again later."
	default:
		return "Something went wrong. Try again later."
	}
}
