package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/instalens/internal/models"
)

const (
	RECORDS_TABLE_NAME = "EngagementRecords"
	MAX_BATCH_SIZE     = 25
	MAX_WRITE_RETRIES  = 3
	RECORD_TTL         = 7 * 24 * time.Hour
)

// DynamoDBAPI is the part of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// RecordStore persists canonical datasets, one item per record, partitioned
// by account handle.
type RecordStore struct {
	client  DynamoDBAPI
	table   string
	backoff time.Duration
	now     func() time.Time
}

func NewRecordStore(client DynamoDBAPI, table string) *RecordStore {
	if table == "" {
		table = RECORDS_TABLE_NAME
	}
	return &RecordStore{
		client:  client,
		table:   table,
		backoff: 500 * time.Millisecond,
		now:     time.Now,
	}
}

type recordItem struct {
	Handle           string   `dynamodbav:"handle"`
	RowKey           string   `dynamodbav:"row_key"`
	Kind             string   `dynamodbav:"kind"`
	URL              string   `dynamodbav:"url"`
	Commentor        string   `dynamodbav:"commentor,omitempty"`
	Date             string   `dynamodbav:"date,omitempty"`
	Time             string   `dynamodbav:"time,omitempty"`
	Likes            *int64   `dynamodbav:"likes,omitempty"`
	Caption          *string  `dynamodbav:"caption,omitempty"`
	CleanCaption     *string  `dynamodbav:"clean_caption,omitempty"`
	Hashtags         *string  `dynamodbav:"hashtags,omitempty"`
	ReportedComments *int64   `dynamodbav:"reported_comments,omitempty"`
	Comment          *string  `dynamodbav:"comment,omitempty"`
	SentimentLabel   *string  `dynamodbav:"sentiment_label,omitempty"`
	SentimentScore   *float64 `dynamodbav:"sentiment_score,omitempty"`
	ExpiresAt        int64    `dynamodbav:"expires_at"`
}

// rowKey keeps dataset order when items are read back in sort key order.
func rowKey(i int, r models.Record) string {
	return fmt.Sprintf("%06d#%s#%s", i, r.Kind, r.URL)
}

func toItem(i int, handle string, r models.Record, expiresAt int64) recordItem {
	item := recordItem{
		Handle:           handle,
		RowKey:           rowKey(i, r),
		Kind:             r.Kind.String(),
		URL:              r.URL,
		Commentor:        r.Commentor,
		Likes:            r.Likes,
		Caption:          r.Caption,
		CleanCaption:     r.CleanCaption,
		Hashtags:         r.Hashtags,
		ReportedComments: r.ReportedComments,
		Comment:          r.Comment,
		SentimentScore:   r.SentimentScore,
		ExpiresAt:        expiresAt,
	}
	if r.Date != nil {
		item.Date = r.Date.String()
	}
	if r.Time != nil {
		item.Time = r.Time.String()
	}
	if r.SentimentLabel != nil {
		label := string(*r.SentimentLabel)
		item.SentimentLabel = &label
	}
	return item
}

func (item recordItem) toRecord() (models.Record, error) {
	r := models.Record{
		Kind:             models.RecordComment,
		Handle:           item.Handle,
		Commentor:        item.Commentor,
		URL:              item.URL,
		Likes:            item.Likes,
		Caption:          item.Caption,
		CleanCaption:     item.CleanCaption,
		Hashtags:         item.Hashtags,
		ReportedComments: item.ReportedComments,
		Comment:          item.Comment,
		SentimentScore:   item.SentimentScore,
	}
	if item.Kind == models.RecordPost.String() {
		r.Kind = models.RecordPost
	}
	if item.Date != "" {
		d, err := civil.ParseDate(item.Date)
		if err != nil {
			return r, fmt.Errorf("item %s: %w", item.RowKey, err)
		}
		r.Date = &d
	}
	if item.Time != "" {
		t, err := civil.ParseTime(item.Time)
		if err != nil {
			return r, fmt.Errorf("item %s: %w", item.RowKey, err)
		}
		r.Time = &t
	}
	if item.SentimentLabel != nil {
		label := models.SentimentLabel(*item.SentimentLabel)
		r.SentimentLabel = &label
	}
	return r, nil
}

// StoreRecords replaces the stored dataset for handle. Records are written
// in batches of 25, retrying unprocessed items with exponential backoff, and
// rows left over from an earlier dataset are deleted afterwards.
func (s *RecordStore) StoreRecords(ctx context.Context, handle string, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		slog.Warn("[DynamoDB] context canceled")
		return err
	}

	existing, err := s.rowKeys(ctx, handle)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(RECORD_TTL).Unix()
	written := make(map[string]struct{}, len(records))

	puts := make([]types.WriteRequest, 0, len(records))
	for i, r := range records {
		item := toItem(i, handle, r, expiresAt)
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to marshal record %d: %w", i, err)
		}
		written[item.RowKey] = struct{}{}
		puts = append(puts, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}
	if err := s.writeInBatches(ctx, puts); err != nil {
		return err
	}

	var deletes []types.WriteRequest
	for _, key := range existing {
		if _, ok := written[key]; ok {
			continue
		}
		deletes = append(deletes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
				"handle":  &types.AttributeValueMemberS{Value: handle},
				"row_key": &types.AttributeValueMemberS{Value: key},
			}},
		})
	}
	if err := s.writeInBatches(ctx, deletes); err != nil {
		return err
	}

	slog.Info("[DynamoDB] Successfully stored records",
		slog.String("handle", handle),
		slog.Int("count", len(records)),
		slog.Int("stale_removed", len(deletes)))
	return nil
}

func (s *RecordStore) writeInBatches(ctx context.Context, requests []types.WriteRequest) error {
	for i := 0; i < len(requests); i += MAX_BATCH_SIZE {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled")
			return ctx.Err()
		default:
		}

		end := min(i+MAX_BATCH_SIZE, len(requests))
		if err := s.batchWrite(ctx, requests[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// rowKeys lists the sort keys currently stored for handle.
func (s *RecordStore) rowKeys(ctx context.Context, handle string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("handle = :handle"),
		ProjectionExpression:     aws.String("#rk"),
		ExpressionAttributeNames: map[string]string{"#rk": "row_key"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":handle": &types.AttributeValueMemberS{Value: handle},
		},
	}

	var keys []string
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Query for existing rows failed: %w", err)
		}

		var page []struct {
			RowKey string `dynamodbav:"row_key"`
		}
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("[DynamoDB] Unable to unmarshal row keys: %w", err)
		}
		for _, item := range page {
			keys = append(keys, item.RowKey)
		}
	}
	return keys, nil
}

func (s *RecordStore) batchWrite(ctx context.Context, writeRequests []types.WriteRequest) error {
	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			s.table: writeRequests,
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write records: %w", err)
	}

	retryCount := 0
	backoff := s.backoff
	for len(out.UnprocessedItems) > 0 && retryCount < MAX_WRITE_RETRIES {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		slog.Warn("[DynamoDB] Retrying unprocessed items...",
			slog.Int("retry_attempt", retryCount+1),
			slog.Int("remaining_items", len(out.UnprocessedItems[s.table])))

		out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to retry batch write: %w", err)
		}
		retryCount++
	}

	if remaining := len(out.UnprocessedItems[s.table]); remaining > 0 {
		slog.Error("[DynamoDB] Some items were not written even after retries",
			slog.Int("remaining_items", remaining))
		return fmt.Errorf("[DynamoDB] %d items left unprocessed", remaining)
	}
	return nil
}

// LoadRecords returns the stored dataset for handle in its original order.
func (s *RecordStore) LoadRecords(ctx context.Context, handle string) ([]models.Record, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("handle = :handle"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":handle": &types.AttributeValueMemberS{Value: handle},
		},
	}

	var records []models.Record
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Query for records failed: %w", err)
		}

		var page []recordItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal record page", slog.String("error", err.Error()))
			return nil, err
		}
		for _, item := range page {
			r, err := item.toRecord()
			if err != nil {
				return nil, err
			}
			records = append(records, r)
		}
	}

	slog.Info("[DynamoDB] Successfully retrieved records",
		slog.String("handle", handle),
		slog.Int("count", len(records)))
	return records, nil
}
