package types

import "time"

// ChatRecord represents a closed chat for DynamoDB persistence
type ChatRecord struct {
	DateKey     string  `json:"dateKey" dynamodbav:"DateKey"`     // YYYY-MM-DD (partition key)
	RecordKey   string  `json:"recordKey" dynamodbav:"RecordKey"` // endTime#chatId (sort key)
	ChatID      string  `json:"chatId" dynamodbav:"ChatID"`
	AttendantID string  `json:"attendantId" dynamodbav:"AttendantID"`
	Priority    string  `json:"priority" dynamodbav:"Priority"`
	Contact     string  `json:"contact" dynamodbav:"Contact"`
	EnqueueTime string  `json:"enqueueTime" dynamodbav:"EnqueueTime"` // RFC3339
	StartTime   string  `json:"startTime" dynamodbav:"StartTime"`     // RFC3339
	EndTime     string  `json:"endTime" dynamodbav:"EndTime"`         // RFC3339
	WaitTime    float64 `json:"waitTime" dynamodbav:"WaitTime"`       // seconds
	Duration    float64 `json:"duration" dynamodbav:"Duration"`       // seconds
	Transfers   int     `json:"transfers" dynamodbav:"Transfers"`
}

// NewChatRecord builds the history row for a chat.ended event. Dates are UTC.
func NewChatRecord(ev Event) ChatRecord {
	end := ev.Timestamp.UTC()
	rec := ChatRecord{
		DateKey:     end.Format("2006-01-02"),
		RecordKey:   end.Format(time.RFC3339Nano) + "#" + ev.ChatID,
		ChatID:      ev.ChatID,
		AttendantID: ev.AttendantID,
		Priority:    string(ev.Priority),
		Contact:     ev.Contact,
		EndTime:     end.Format(time.RFC3339),
		Duration:    float64(ev.DurationMs) / 1000,
		Transfers:   ev.Transfers,
	}
	if ev.StartTime != nil {
		rec.StartTime = ev.StartTime.UTC().Format(time.RFC3339)
	}
	if ev.EnqueueTime != nil {
		rec.EnqueueTime = ev.EnqueueTime.UTC().Format(time.RFC3339)
		if ev.StartTime != nil {
			rec.WaitTime = ev.StartTime.Sub(*ev.EnqueueTime).Seconds()
		}
	}
	return rec
}

// AttendantDailyStats represents an attendant's daily counters for DynamoDB
type AttendantDailyStats struct {
	AttendantID       string  `json:"attendantId" dynamodbav:"AttendantID"` // partition key
	Date              string  `json:"date" dynamodbav:"Date"`               // YYYY-MM-DD (sort key)
	Name              string  `json:"name" dynamodbav:"Name"`
	TotalChats        int     `json:"totalChats" dynamodbav:"TotalChats"`
	AvgResponseTime   float64 `json:"avgResponseTime" dynamodbav:"AvgResponseTime"` // milliseconds
	SatisfactionScore float64 `json:"satisfactionScore" dynamodbav:"SatisfactionScore"`
	Efficiency        float64 `json:"efficiency" dynamodbav:"Efficiency"` // 0-100
}
