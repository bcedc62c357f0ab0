package pointsdomain

import (
	"errors"
	"fmt"
)

// ErrInvalidRankData is matched by every *InvalidRankDataError.
var ErrInvalidRankData = errors.New("invalid rank data")

// InvalidRankDataError reports a malformed rank table.
type InvalidRankDataError struct {
	Rank   int
	Reason string
}

func (e *InvalidRankDataError) Error() string {
	if e.Rank > 0 {
		return fmt.Sprintf("invalid rank data: top %d: %s", e.Rank, e.Reason)
	}
	return "invalid rank data: " + e.Reason
}

func (e *InvalidRankDataError) Is(target error) bool {
	return target == ErrInvalidRankData
}
