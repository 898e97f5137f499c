package storage

import (
	"context"

	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
)

// Store persists chat history and daily attendant stats
type Store interface {
	SaveChatRecord(ctx context.Context, record types.ChatRecord) error
	SaveAttendantDailyStats(ctx context.Context, stats types.AttendantDailyStats) error
	GetChatRecords(ctx context.Context, dateKey string) ([]types.ChatRecord, error)
	GetAttendantDailyStats(ctx context.Context, attendantID string) ([]types.AttendantDailyStats, error)
	GetAttendantChatsByDate(ctx context.Context, attendantID, date string) ([]types.ChatRecord, error)
	TruncateAll(ctx context.Context) error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveChatRecord(context.Context, types.ChatRecord) error { return nil }
func (s *NoopStore) SaveAttendantDailyStats(context.Context, types.AttendantDailyStats) error {
	return nil
}
func (s *NoopStore) GetChatRecords(context.Context, string) ([]types.ChatRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetAttendantDailyStats(context.Context, string) ([]types.AttendantDailyStats, error) {
	return nil, nil
}
func (s *NoopStore) GetAttendantChatsByDate(context.Context, string, string) ([]types.ChatRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll(context.Context) error { return nil }
