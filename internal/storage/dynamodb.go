package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dennisdiepolder/monti/supportdesk/internal/types"
	"github.com/rs/zerolog"
)

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config DynamoConfig
	logger zerolog.Logger
}

// NewDynamoClient builds a client for cfg.Mode
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	if cfg.Mode == DynamoModeLocal {
		// LoadDefaultConfig queries the EC2 IMDS endpoint, which hangs when
		// static credentials are intended
		return dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		}), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

// NewDynamoDBStore creates a new DynamoDB store. Tables are created automatically in local mode.
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	client, err := NewDynamoClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Mode == DynamoModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Msg("DynamoDB store initialized")

	return &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// NewStore creates the appropriate store based on configuration
func NewStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Mode {
	case DynamoModeLocal, DynamoModeAWS:
		return NewDynamoDBStore(ctx, cfg, logger)
	case DynamoModeMemory:
		logger.Info().Msg("using in-memory history store")
		return NewMemoryStore(), nil
	default:
		logger.Info().Msg("DynamoDB disabled (DYNAMO_MODE=none)")
		return NewNoopStore(), nil
	}
}

func (s *DynamoDBStore) SaveChatRecord(ctx context.Context, record types.ChatRecord) error {
	return s.put(ctx, s.config.ChatRecordsTable, record)
}

func (s *DynamoDBStore) SaveAttendantDailyStats(ctx context.Context, stats types.AttendantDailyStats) error {
	return s.put(ctx, s.config.DailyStatsTable, stats)
}

func (s *DynamoDBStore) put(ctx context.Context, table string, v interface{}) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s item: %w", table, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", table, err)
	}
	return nil
}

func (s *DynamoDBStore) GetChatRecords(ctx context.Context, dateKey string) ([]types.ChatRecord, error) {
	keyCond := expression.Key("DateKey").Equal(expression.Value(dateKey))
	var records []types.ChatRecord
	if err := s.query(ctx, s.config.ChatRecordsTable, expression.NewBuilder().WithKeyCondition(keyCond), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *DynamoDBStore) GetAttendantDailyStats(ctx context.Context, attendantID string) ([]types.AttendantDailyStats, error) {
	keyCond := expression.Key("AttendantID").Equal(expression.Value(attendantID))
	var stats []types.AttendantDailyStats
	if err := s.query(ctx, s.config.DailyStatsTable, expression.NewBuilder().WithKeyCondition(keyCond), &stats); err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date > stats[j].Date })
	return stats, nil
}

func (s *DynamoDBStore) GetAttendantChatsByDate(ctx context.Context, attendantID, date string) ([]types.ChatRecord, error) {
	keyCond := expression.Key("DateKey").Equal(expression.Value(date))
	filter := expression.Name("AttendantID").Equal(expression.Value(attendantID))
	var records []types.ChatRecord
	builder := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter)
	if err := s.query(ctx, s.config.ChatRecordsTable, builder, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// query follows LastEvaluatedKey until the result set is complete
func (s *DynamoDBStore) query(ctx context.Context, table string, builder expression.Builder, out interface{}) error {
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var items []map[string]dbtypes.AttributeValue
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		items = append(items, page.Items...)
	}

	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s items: %w", table, err)
	}
	return nil
}

// TruncateAll deletes all items from both tables (scan + batch delete)
func (s *DynamoDBStore) TruncateAll(ctx context.Context) error {
	for _, table := range s.config.tables() {
		if err := s.truncateTable(ctx, table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table.name, err)
		}
	}
	return nil
}

func (s *DynamoDBStore) truncateTable(ctx context.Context, table tableSpec) error {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(table.name),
		ProjectionExpression: aws.String("#pk, #sk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": table.pk,
			"#sk": table.sk,
		},
		Limit: aws.Int32(500),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}

		// BatchWriteItem takes at most 25 requests
		for i := 0; i < len(page.Items); i += 25 {
			end := i + 25
			if end > len(page.Items) {
				end = len(page.Items)
			}

			requests := make([]dbtypes.WriteRequest, 0, end-i)
			for _, item := range page.Items[i:end] {
				requests = append(requests, dbtypes.WriteRequest{
					DeleteRequest: &dbtypes.DeleteRequest{
						Key: map[string]dbtypes.AttributeValue{
							table.pk: item[table.pk],
							table.sk: item[table.sk],
						},
					},
				})
			}

			_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]dbtypes.WriteRequest{
					table.name: requests,
				},
			})
			if err != nil {
				return err
			}
			deleted += len(requests)
		}
	}

	s.logger.Info().Str("table", table.name).Int("deleted", deleted).Msg("table truncated")
	return nil
}
