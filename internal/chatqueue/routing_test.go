package chatqueue

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

func TestLeastLoadedSelection(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-10 * time.Minute)

	tests := []struct {
		name       string
		candidates []types.Attendant
		want       string
	}{
		{
			name: "fewest chats",
			candidates: []types.Attendant{
				{ID: "a", MaxConcurrentChats: 3, CurrentChats: []string{"1", "2"}, StatusSince: now},
				{ID: "b", MaxConcurrentChats: 3, CurrentChats: []string{"3"}, StatusSince: now},
			},
			want: "b",
		},
		{
			name: "lowest load ratio",
			candidates: []types.Attendant{
				{ID: "a", MaxConcurrentChats: 2, CurrentChats: []string{"1"}, StatusSince: now},
				{ID: "b", MaxConcurrentChats: 4, CurrentChats: []string{"2"}, StatusSince: now},
			},
			want: "b",
		},
		{
			name: "longest idle",
			candidates: []types.Attendant{
				{ID: "a", MaxConcurrentChats: 2, StatusSince: earlier, LastAssignedAt: &now},
				{ID: "b", MaxConcurrentChats: 2, StatusSince: now},
				{ID: "c", MaxConcurrentChats: 2, StatusSince: now, LastAssignedAt: &earlier},
			},
			want: "c",
		},
		{
			name: "registration order on full tie",
			candidates: []types.Attendant{
				{ID: "a", MaxConcurrentChats: 2, StatusSince: now},
				{ID: "b", MaxConcurrentChats: 2, StatusSince: now},
			},
			want: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LeastLoaded{}.SelectAttendant(tt.candidates)
			if got == nil || got.ID != tt.want {
				t.Errorf("expected %s, got %+v", tt.want, got)
			}
		})
	}
}

func TestLongestIdleFirstSelection(t *testing.T) {
	now := time.Now()
	candidates := []types.Attendant{
		{ID: "agent-1", StatusSince: now.Add(-5 * time.Minute)},
		{ID: "agent-2", StatusSince: now.Add(-10 * time.Minute)},
		{ID: "agent-3", StatusSince: now.Add(-2 * time.Minute)},
	}

	selected := LongestIdleFirst{}.SelectAttendant(candidates)
	if selected == nil {
		t.Fatal("expected attendant to be selected")
	}
	if selected.ID != "agent-2" {
		t.Errorf("expected agent-2 (longest idle), got %s", selected.ID)
	}
}

func TestStrategiesEmpty(t *testing.T) {
	if (LeastLoaded{}).SelectAttendant(nil) != nil {
		t.Error("expected nil for empty list")
	}
	if (LongestIdleFirst{}).SelectAttendant(nil) != nil {
		t.Error("expected nil for empty list")
	}
}

func TestNewRoutingStrategy(t *testing.T) {
	for _, name := range []string{"", "least_loaded", "longest_idle"} {
		if _, err := NewRoutingStrategy(name); err != nil {
			t.Errorf("%q: unexpected error %v", name, err)
		}
	}
	if _, err := NewRoutingStrategy("random"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
