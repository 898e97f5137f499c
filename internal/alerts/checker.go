package alerts

import (
	"fmt"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

const (
	// minChatsForEfficiency avoids flagging attendants early in their day
	minChatsForEfficiency = 5
	lowEfficiency         = 40.0
)

// Check evaluates the alert rules against an engine snapshot.
// A MaxWaitSecs of 0 disables the wait rule.
func Check(snap types.EngineSnapshot, cfg types.QueueConfig, now time.Time) []types.Alert {
	var alerts []types.Alert

	if maxWait := cfg.MaxWaitTime(); maxWait > 0 {
		for i := range snap.Queue {
			item := &snap.Queue[i]
			wait := item.WaitTime(now)
			if wait <= maxWait {
				continue
			}
			severity := types.SeverityWarning
			if wait > 2*maxWait {
				severity = types.SeverityCritical
			}
			alerts = append(alerts, types.Alert{
				Rule:     "wait_long",
				Severity: severity,
				Message:  fmt.Sprintf("Waiting for %s (%s)", formatDuration(wait), item.Priority),
				ChatID:   item.ChatID,
			})
		}
	}

	for _, a := range snap.Attendants {
		if a.Status == types.StatusOffline || a.TotalChatsToday < minChatsForEfficiency {
			continue
		}
		if eff := metrics.AttendantEfficiency(a); eff < lowEfficiency {
			alerts = append(alerts, types.Alert{
				Rule:        "efficiency_low",
				Severity:    types.SeverityWarning,
				Message:     fmt.Sprintf("%s efficiency at %.0f%%", a.Name, eff),
				AttendantID: a.ID,
			})
		}
	}

	return alerts
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		hours := mins / 60
		mins = mins % 60
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
