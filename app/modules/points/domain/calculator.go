// Package pointsdomain holds the pure points and role-tier rules.
package pointsdomain

import (
	"cmp"
	"slices"
)

// RankCount is the number of leaderboard placements at or above Rank.
type RankCount struct {
	Rank  int
	Count int
}

// CalculatePoints scores a rank table under scheme.
//
// ranks must be sorted ascending by Rank and contain every threshold the
// scheme requires; extra thresholds are ignored. Each tier contributes its
// weight times the placements gained since the previous tier:
//
//	standard: 5·c1 + 3·(c8−c1) + 2·(c15−c8) + (c25−c15) + (c50−c25)
//	reduced:  5·c1 + 3·(c8−c1) + (c25−c8) + (c50−c25)
//
// Counts are not required to be monotonic; a decreasing count yields a
// negative term. Use IsMonotonic to detect that case.
func CalculatePoints(ranks []RankCount, scheme Scheme) (int, error) {
	tiers, ok := schemeTiers[scheme]
	if !ok {
		return 0, &InvalidRankDataError{Reason: "unknown scheme " + scheme.String()}
	}

	if !slices.IsSortedFunc(ranks, compareRank) {
		return 0, &InvalidRankDataError{Reason: "ranks are not sorted ascending"}
	}

	points := 0
	previous := 0
	for _, t := range tiers {
		count, err := countAt(ranks, t.rank)
		if err != nil {
			return 0, err
		}
		points += t.weight * (count - previous)
		previous = count
	}
	return points, nil
}

// IsMonotonic reports whether counts never decrease as the rank grows.
func IsMonotonic(ranks []RankCount) bool {
	for i := 1; i < len(ranks); i++ {
		if ranks[i].Count < ranks[i-1].Count {
			return false
		}
	}
	return true
}

func countAt(ranks []RankCount, rank int) (int, error) {
	i, found := slices.BinarySearchFunc(ranks, rank, func(rc RankCount, target int) int {
		return cmp.Compare(rc.Rank, target)
	})
	if !found {
		return 0, &InvalidRankDataError{Rank: rank, Reason: "threshold missing"}
	}
	if ranks[i].Count < 0 {
		return 0, &InvalidRankDataError{Rank: rank, Reason: "negative count"}
	}
	return ranks[i].Count, nil
}

func compareRank(a, b RankCount) int {
	return cmp.Compare(a.Rank, b.Rank)
}
