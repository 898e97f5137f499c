package chatqueue

import (
	"fmt"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// RoutingStrategy selects the best attendant for a chat among eligible candidates.
// Candidates arrive in registration order; implementations must be deterministic.
type RoutingStrategy interface {
	SelectAttendant(candidates []types.Attendant) *types.Attendant
}

// LeastLoaded picks the attendant with the fewest open chats, then the lowest
// load ratio, then the one idle longest
type LeastLoaded struct{}

// SelectAttendant implements RoutingStrategy
func (LeastLoaded) SelectAttendant(candidates []types.Attendant) *types.Attendant {
	if len(candidates) == 0 {
		return nil
	}

	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		c := &candidates[i]
		if len(c.CurrentChats) != len(best.CurrentChats) {
			if len(c.CurrentChats) < len(best.CurrentChats) {
				best = c
			}
			continue
		}
		if lc, lb := loadRatio(c), loadRatio(best); lc != lb {
			if lc < lb {
				best = c
			}
			continue
		}
		if idleSince(c).Before(idleSince(best)) {
			best = c
		}
	}
	return best
}

// LongestIdleFirst selects the attendant whose last assignment is the oldest
type LongestIdleFirst struct{}

// SelectAttendant implements RoutingStrategy
func (LongestIdleFirst) SelectAttendant(candidates []types.Attendant) *types.Attendant {
	if len(candidates) == 0 {
		return nil
	}

	oldest := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if idleSince(&candidates[i]).Before(idleSince(oldest)) {
			oldest = &candidates[i]
		}
	}
	return oldest
}

// NewRoutingStrategy returns the strategy registered under name
func NewRoutingStrategy(name string) (RoutingStrategy, error) {
	switch name {
	case "", "least_loaded":
		return LeastLoaded{}, nil
	case "longest_idle":
		return LongestIdleFirst{}, nil
	default:
		return nil, fmt.Errorf("unknown routing strategy %q", name)
	}
}

func loadRatio(a *types.Attendant) float64 {
	return float64(len(a.CurrentChats)) / float64(a.MaxConcurrentChats)
}

// idleSince is the last assignment time, or the moment the attendant
// entered its current status if it never received a chat
func idleSince(a *types.Attendant) time.Time {
	if a.LastAssignedAt != nil {
		return *a.LastAssignedAt
	}
	return a.StatusSince
}
