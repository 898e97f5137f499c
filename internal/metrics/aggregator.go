package metrics

import (
	"math"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

const (
	volumeTarget       = 20     // chats per day for a full volume score
	responseCeilingMs  = 300000 // five minutes scores zero on speed
	volumeWeight       = 0.3
	speedWeight        = 0.3
	satisfactionWeight = 0.4
)

// AttendantEfficiency scores an attendant from 0 to 100 on volume, speed and
// satisfaction. A speed or satisfaction term has data when its sample counter
// is positive or its average is non-zero; terms without data contribute nothing,
// so a fresh attendant is not rewarded for a zero response time.
func AttendantEfficiency(a types.Attendant) float64 {
	volume := clamp01(float64(a.TotalChatsToday) / volumeTarget)

	speed := 0.0
	if a.ResponseSamples > 0 || a.AvgResponseTime > 0 {
		speed = clamp01(1 - a.AvgResponseTime/responseCeilingMs)
	}

	satisfaction := 0.0
	if a.SatisfactionVotes > 0 || a.SatisfactionScore > 0 {
		satisfaction = clamp01(a.SatisfactionScore / 5)
	}

	score := (volumeWeight*volume + speedWeight*speed + satisfactionWeight*satisfaction) * 100
	return math.Max(0, math.Min(100, score))
}

// QueueSnapshot summarizes waiting items. Every priority band is present in ByPriority.
func QueueSnapshot(items []types.QueueItem, now time.Time) types.QueueSnapshot {
	snap := types.QueueSnapshot{
		TotalInQueue: len(items),
		ByPriority:   make(map[types.Priority]int, len(types.AllPriorities)),
	}
	for _, p := range types.AllPriorities {
		snap.ByPriority[p] = 0
	}

	for i := range items {
		snap.ByPriority[items[i].Priority]++
		if wait := items[i].WaitTime(now); wait > snap.OldestWaitTime {
			snap.OldestWaitTime = wait
		}
	}
	snap.OldestWaitSecs = snap.OldestWaitTime.Seconds()
	return snap
}

// Utilization is the percentage of online attendants at full capacity.
// Offline attendants are ignored; with nobody online it is 0.
func Utilization(attendants []types.Attendant) float64 {
	online, full := 0, 0
	for i := range attendants {
		if attendants[i].Status == types.StatusOffline {
			continue
		}
		online++
		if attendants[i].AtCapacity() {
			full++
		}
	}
	if online == 0 {
		return 0
	}
	return float64(full) / float64(online) * 100
}

// Summarize builds the dashboard payload from an engine snapshot
func Summarize(snap types.EngineSnapshot, now time.Time) types.DashboardSummary {
	attendants := make([]types.AttendantEfficiency, len(snap.Attendants))
	for i, a := range snap.Attendants {
		attendants[i] = types.AttendantEfficiency{
			AttendantID: a.ID,
			Name:        a.Name,
			Status:      a.Status,
			ActiveChats: len(a.CurrentChats),
			Efficiency:  AttendantEfficiency(a),
		}
	}

	return types.DashboardSummary{
		Type:        "summary",
		Timestamp:   now,
		Queue:       QueueSnapshot(snap.Queue, now),
		Utilization: Utilization(snap.Attendants),
		ActiveChats: len(snap.Active),
		Completed:   snap.Completed,
		Abandoned:   snap.Abandoned,
		Attendants:  attendants,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
