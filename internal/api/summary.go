package api

import (
	"encoding/json"
	"net/http"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// SummarySource builds the current dashboard summary; implemented by aggregator.Aggregator
type SummarySource interface {
	Current() types.DashboardSummary
}

// SummaryHandler handles GET /api/summary, the polling twin of the websocket feed
func SummaryHandler(source SummarySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(source.Current())
	}
}
