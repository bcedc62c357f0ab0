package pointsdomain

import (
	"fmt"
	"strings"
)

// Scheme selects the rank thresholds and weights used to score a rank table.
type Scheme int

const (
	// SchemeStandard scores top 1, 8, 15, 25 and 50 counts.
	SchemeStandard Scheme = iota
	// SchemeReduced is for sources that cannot report a top 15 count.
	SchemeReduced
)

type tier struct {
	rank   int
	weight int
}

var schemeTiers = map[Scheme][]tier{
	SchemeStandard: {{1, 5}, {8, 3}, {15, 2}, {25, 1}, {50, 1}},
	SchemeReduced:  {{1, 5}, {8, 3}, {25, 1}, {50, 1}},
}

func (s Scheme) String() string {
	switch s {
	case SchemeStandard:
		return "standard"
	case SchemeReduced:
		return "reduced"
	default:
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
}

// Thresholds returns the ranks the scheme requires, ascending.
func (s Scheme) Thresholds() []int {
	tiers := schemeTiers[s]
	out := make([]int, len(tiers))
	for i, t := range tiers {
		out[i] = t.rank
	}
	return out
}

// ParseScheme parses "standard" or "reduced". An empty string is standard.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return SchemeStandard, nil
	case "reduced":
		return SchemeReduced, nil
	default:
		return 0, fmt.Errorf("unknown points scheme %q", s)
	}
}
