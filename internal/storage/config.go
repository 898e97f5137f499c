package storage

import "os"

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal  DynamoMode = "local"
	DynamoModeAWS    DynamoMode = "aws"
	DynamoModeMemory DynamoMode = "memory" // in-process tables, lost on restart
	DynamoModeNone   DynamoMode = "none"
)

// DynamoConfig holds DynamoDB configuration
type DynamoConfig struct {
	Mode             DynamoMode
	Endpoint         string // for local mode
	Region           string
	ChatRecordsTable string
	DailyStatsTable  string
}

// LoadDynamoConfig loads DynamoDB config from environment
func LoadDynamoConfig() DynamoConfig {
	mode := DynamoMode(getEnv("DYNAMO_MODE", "none"))
	switch mode {
	case DynamoModeLocal, DynamoModeAWS, DynamoModeMemory:
	default:
		mode = DynamoModeNone
	}

	return DynamoConfig{
		Mode:             mode,
		Endpoint:         getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		Region:           getEnv("DYNAMO_REGION", "sa-east-1"),
		ChatRecordsTable: getEnv("DYNAMO_CHAT_RECORDS_TABLE", "supportdesk-chat-records"),
		DailyStatsTable:  getEnv("DYNAMO_DAILY_STATS_TABLE", "supportdesk-attendant-daily-stats"),
	}
}

// tableSpec names a table and its string hash and range keys
type tableSpec struct {
	name string
	pk   string
	sk   string
}

func (c DynamoConfig) tables() []tableSpec {
	return []tableSpec{
		{c.ChatRecordsTable, "DateKey", "RecordKey"},
		{c.DailyStatsTable, "AttendantID", "Date"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
