package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

func TestAttendantEfficiency(t *testing.T) {
	tests := []struct {
		name string
		a    types.Attendant
		want float64
	}{
		{"no data", types.Attendant{}, 0},
		{
			name: "perfect",
			a: types.Attendant{
				TotalChatsToday: 25, ResponseSamples: 3, AvgResponseTime: 0,
				SatisfactionScore: 5, SatisfactionVotes: 2,
			},
			want: 100,
		},
		{
			name: "half of everything",
			a: types.Attendant{
				TotalChatsToday: 10, ResponseSamples: 1, AvgResponseTime: 150000,
				SatisfactionScore: 2.5, SatisfactionVotes: 1,
			},
			want: 50,
		},
		{
			name: "slow response contributes nothing",
			a: types.Attendant{
				TotalChatsToday: 20, ResponseSamples: 1, AvgResponseTime: 900000,
			},
			want: 30,
		},
		{
			name: "averages without sample counters",
			a: types.Attendant{
				TotalChatsToday: 10, AvgResponseTime: 150000, SatisfactionScore: 2.5,
			},
			want: 50,
		},
		{
			name: "zero response time without samples is no data",
			a:    types.Attendant{TotalChatsToday: 20},
			want: 30,
		},
		{
			name: "nan score ignored",
			a: types.Attendant{
				TotalChatsToday: 20, SatisfactionScore: math.NaN(), SatisfactionVotes: 1,
			},
			want: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AttendantEfficiency(tt.a)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestQueueSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	empty := QueueSnapshot(nil, now)
	if empty.TotalInQueue != 0 || len(empty.ByPriority) != 3 || empty.OldestWaitTime != 0 {
		t.Errorf("unexpected empty snapshot %+v", empty)
	}

	items := []types.QueueItem{
		{ChatID: "a", Priority: types.PriorityUrgent, EnqueueTime: now.Add(-30 * time.Second)},
		{ChatID: "b", Priority: types.PriorityNormal, EnqueueTime: now.Add(-2 * time.Minute)},
		{ChatID: "c", Priority: types.PriorityNormal, EnqueueTime: now.Add(-time.Minute)},
	}
	snap := QueueSnapshot(items, now)
	if snap.TotalInQueue != 3 {
		t.Errorf("expected 3, got %d", snap.TotalInQueue)
	}
	if snap.ByPriority[types.PriorityUrgent] != 1 || snap.ByPriority[types.PriorityHigh] != 0 || snap.ByPriority[types.PriorityNormal] != 2 {
		t.Errorf("unexpected bands %v", snap.ByPriority)
	}
	if snap.OldestWaitTime != 2*time.Minute || snap.OldestWaitSecs != 120 {
		t.Errorf("expected 2m oldest wait, got %v", snap.OldestWaitTime)
	}
}

func TestUtilization(t *testing.T) {
	full := types.Attendant{Status: types.StatusBusy, MaxConcurrentChats: 1, CurrentChats: []string{"c1"}}
	free := types.Attendant{Status: types.StatusAvailable, MaxConcurrentChats: 2, CurrentChats: []string{"c2"}}
	away := types.Attendant{Status: types.StatusAway, MaxConcurrentChats: 1}
	offline := types.Attendant{Status: types.StatusOffline, MaxConcurrentChats: 1}

	tests := []struct {
		name       string
		attendants []types.Attendant
		want       float64
	}{
		{"nobody", nil, 0},
		{"only offline", []types.Attendant{offline}, 0},
		{"one of three online", []types.Attendant{full, free, away, offline}, 100.0 / 3},
		{"all full", []types.Attendant{full, full}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Utilization(tt.attendants); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %.2f, got %.2f", tt.want, got)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	snap := types.EngineSnapshot{
		Attendants: []types.Attendant{
			{ID: "a1", Name: "Ana", Status: types.StatusBusy, MaxConcurrentChats: 1, CurrentChats: []string{"c1"}, TotalChatsToday: 20},
		},
		Queue:     []types.QueueItem{{ChatID: "c2", Priority: types.PriorityHigh, EnqueueTime: now.Add(-time.Minute)}},
		Active:    []types.ActiveChat{{ChatID: "c1", AttendantID: "a1"}},
		Completed: 4,
		Abandoned: 1,
	}

	sum := Summarize(snap, now)
	if sum.Type != "summary" || sum.ActiveChats != 1 || sum.Completed != 4 || sum.Abandoned != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if sum.Utilization != 100 {
		t.Errorf("expected 100%% utilization, got %.1f", sum.Utilization)
	}
	if len(sum.Attendants) != 1 || math.Abs(sum.Attendants[0].Efficiency-30) > 1e-9 || sum.Attendants[0].ActiveChats != 1 {
		t.Errorf("unexpected attendant efficiency %+v", sum.Attendants)
	}
	if sum.Queue.ByPriority[types.PriorityHigh] != 1 {
		t.Errorf("unexpected queue snapshot %+v", sum.Queue)
	}
}
