package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// Metrics holds the process counters exposed on /metrics
type Metrics struct {
	mu sync.RWMutex

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Aggregation metrics
	AggregationCyclesTotal  int64
	lastAggregationDuration time.Duration

	// Engine metrics
	AssignmentsTotal   int64
	InboundMessages    int64
	dispatchDelivered  map[string]int64 // sink -> count
	dispatchFailed     map[string]int64 // sink -> count
	DispatchDropped    int64
	attendantsByStatus map[types.AttendantStatus]int
	queueByPriority    map[types.Priority]int
	activeChats        int
	utilization        float64

	// HTTP metrics
	httpRequestsTotal map[string]map[int]int64 // endpoint -> status -> count

	startTime time.Time
}

// New creates an empty metrics set
func New() *Metrics {
	return &Metrics{
		dispatchDelivered:  make(map[string]int64),
		dispatchFailed:     make(map[string]int64),
		attendantsByStatus: make(map[types.AttendantStatus]int),
		queueByPriority:    make(map[types.Priority]int),
		httpRequestsTotal:  make(map[string]map[int]int64),
		startTime:          time.Now(),
	}
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// RecordAggregationCycle records one dashboard summary and refreshes the gauges from it
func (m *Metrics) RecordAggregationCycle(duration time.Duration, summary types.DashboardSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AggregationCyclesTotal++
	m.lastAggregationDuration = duration

	m.attendantsByStatus = make(map[types.AttendantStatus]int)
	for _, a := range summary.Attendants {
		m.attendantsByStatus[a.Status]++
	}
	m.queueByPriority = make(map[types.Priority]int, len(summary.Queue.ByPriority))
	for p, n := range summary.Queue.ByPriority {
		m.queueByPriority[p] = n
	}
	m.activeChats = summary.ActiveChats
	m.utilization = summary.Utilization
}

// IncAssignments counts chats handed to attendants
func (m *Metrics) IncAssignments(n int) {
	m.mu.Lock()
	m.AssignmentsTotal += int64(n)
	m.mu.Unlock()
}

// RecordInboundMessage counts gateway webhook messages
func (m *Metrics) RecordInboundMessage() {
	m.mu.Lock()
	m.InboundMessages++
	m.mu.Unlock()
}

// RecordDelivery counts a sink delivery attempt
func (m *Metrics) RecordDelivery(sink string, ok bool) {
	m.mu.Lock()
	if ok {
		m.dispatchDelivered[sink]++
	} else {
		m.dispatchFailed[sink]++
	}
	m.mu.Unlock()
}

// RecordDispatchDropped counts event batches dropped because the buffer was full
func (m *Metrics) RecordDispatchDropped() {
	m.mu.Lock()
	m.DispatchDropped++
	m.mu.Unlock()
}

// DispatchFailures returns the failure count for a sink
func (m *Metrics) DispatchFailures(sink string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispatchFailed[sink]
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		var b strings.Builder
		write := func(name string, value interface{}, labels ...string) {
			b.WriteString(name)
			if len(labels) > 0 {
				b.WriteByte('{')
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						b.WriteByte(',')
					}
					b.WriteString(labels[i] + "=\"" + labels[i+1] + "\"")
				}
				b.WriteByte('}')
			}
			b.WriteByte(' ')
			switch v := value.(type) {
			case int:
				b.WriteString(strconv.Itoa(v))
			case int64:
				b.WriteString(strconv.FormatInt(v, 10))
			case float64:
				b.WriteString(strconv.FormatFloat(v, 'f', 6, 64))
			}
			b.WriteByte('\n')
		}

		write("supportdesk_uptime_seconds", time.Since(m.startTime).Seconds())

		write("supportdesk_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("supportdesk_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("supportdesk_websocket_active_connections", m.activeConnections)
		write("supportdesk_websocket_messages_total", m.WebSocketMessagesTotal)
		write("supportdesk_websocket_errors_total", m.WebSocketErrorsTotal)

		write("supportdesk_aggregation_cycles_total", m.AggregationCyclesTotal)
		write("supportdesk_aggregation_duration_seconds", m.lastAggregationDuration.Seconds())

		write("supportdesk_assignments_total", m.AssignmentsTotal)
		write("supportdesk_inbound_messages_total", m.InboundMessages)
		write("supportdesk_active_chats", m.activeChats)
		write("supportdesk_utilization_percent", m.utilization)
		write("supportdesk_dispatch_dropped_total", m.DispatchDropped)

		for _, sink := range sortedKeys(m.dispatchDelivered) {
			write("supportdesk_dispatch_delivered_total", m.dispatchDelivered[sink], "sink", sink)
		}
		for _, sink := range sortedKeys(m.dispatchFailed) {
			write("supportdesk_dispatch_failed_total", m.dispatchFailed[sink], "sink", sink)
		}

		for _, p := range types.AllPriorities {
			write("supportdesk_queue_depth", m.queueByPriority[p], "priority", string(p))
		}
		for status, count := range m.attendantsByStatus {
			write("supportdesk_attendants_by_status", count, "status", string(status))
		}

		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("supportdesk_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}

		w.Write([]byte(b.String()))
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
