package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// MemoryStore keeps history in process, keyed like the DynamoDB tables
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]types.ChatRecord          // DateKey -> RecordKey -> record
	stats   map[string]map[string]types.AttendantDailyStats // AttendantID -> Date -> stats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]types.ChatRecord),
		stats:   make(map[string]map[string]types.AttendantDailyStats),
	}
}

func (s *MemoryStore) SaveChatRecord(_ context.Context, record types.ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[record.DateKey] == nil {
		s.records[record.DateKey] = make(map[string]types.ChatRecord)
	}
	s.records[record.DateKey][record.RecordKey] = record
	return nil
}

func (s *MemoryStore) SaveAttendantDailyStats(_ context.Context, stats types.AttendantDailyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats[stats.AttendantID] == nil {
		s.stats[stats.AttendantID] = make(map[string]types.AttendantDailyStats)
	}
	s.stats[stats.AttendantID][stats.Date] = stats
	return nil
}

// GetChatRecords returns the day's records in sort-key order, as a DynamoDB query would
func (s *MemoryStore) GetChatRecords(_ context.Context, dateKey string) ([]types.ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsFor(dateKey, ""), nil
}

func (s *MemoryStore) GetAttendantDailyStats(_ context.Context, attendantID string) ([]types.AttendantDailyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.AttendantDailyStats
	for _, st := range s.stats[attendantID] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *MemoryStore) GetAttendantChatsByDate(_ context.Context, attendantID, date string) ([]types.ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsFor(date, attendantID), nil
}

func (s *MemoryStore) TruncateAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]map[string]types.ChatRecord)
	s.stats = make(map[string]map[string]types.AttendantDailyStats)
	return nil
}

func (s *MemoryStore) recordsFor(dateKey, attendantID string) []types.ChatRecord {
	var out []types.ChatRecord
	for _, r := range s.records[dateKey] {
		if attendantID == "" || r.AttendantID == attendantID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordKey < out[j].RecordKey })
	return out
}
