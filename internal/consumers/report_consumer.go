package consumers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
	"github.com/spacesedan/instalens/internal/clients/kafka_client"
	"github.com/spacesedan/instalens/internal/models"
	"github.com/spacesedan/instalens/internal/pipeline"
	"github.com/spacesedan/instalens/internal/utils"
)

type ReportPublisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type RecordStore interface {
	StoreRecords(ctx context.Context, handle string, records []models.Record) error
}

type MessageSource interface {
	Next() (*kafka.Message, error)
}

type Committer interface {
	Commit(msg *kafka.Message) error
}

type pendingDataset struct {
	requestID string
	handle    string
	records   []models.Record
}

// ReportConsumer turns report requests into engagement reports. Each report
// is published as soon as it is computed; the datasets behind them are
// written to the record store in batches, and a request's offset is
// committed once its dataset has been flushed.
type ReportConsumer struct {
	service     *pipeline.Service
	publisher   ReportPublisher
	store       RecordStore
	reportTopic string

	pending *utils.BatchBuffer[pendingDataset]
	tracker *utils.MessageTracker
}

func NewReportConsumer(service *pipeline.Service, publisher ReportPublisher, store RecordStore, reportTopic string) *ReportConsumer {
	if reportTopic == "" {
		reportTopic = kafka_client.KAFKA_TOPIC_ENGAGEMENT_REPORTS
	}
	return &ReportConsumer{
		service:     service,
		publisher:   publisher,
		store:       store,
		reportTopic: reportTopic,
		pending:     utils.NewBatchBuffer[pendingDataset](utils.BATCH_SIZE),
		tracker:     &utils.MessageTracker{},
	}
}

// HandleReportRequest decodes one request, computes its report and
// publishes it. queued reports whether the dataset was queued for storage.
func (rc *ReportConsumer) HandleReportRequest(ctx context.Context, payload []byte) (requestID string, queued bool, err error) {
	var req models.ReportRequest
	if err := utils.DeserializeFromJSON(payload, &req); err != nil {
		return "", false, fmt.Errorf("[ReportConsumer] malformed report request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Capture.Handle == "" {
		req.Capture.Handle = req.Query.Handle
	}

	start := time.Now()
	report, ds, err := rc.service.Run(ctx, req.Capture, req.Query)
	if err != nil {
		return req.RequestID, false, fmt.Errorf("[ReportConsumer] request %s failed: %w", req.RequestID, err)
	}
	report.ID = req.RequestID

	if err := rc.publisher.Publish(ctx, rc.reportTopic, req.RequestID, report); err != nil {
		return req.RequestID, false, fmt.Errorf("[ReportConsumer] failed to publish report %s: %w", req.RequestID, err)
	}

	slog.Info("[ReportConsumer] Report published",
		slog.String("request_id", req.RequestID),
		slog.String("handle", report.Overview.Handle),
		slog.Int("posts", report.Overview.TotalPosts),
		slog.Bool("from_cache", report.FromCache),
		slog.Duration("elapsed", time.Since(start)))

	if rc.store == nil || ds.FromCache {
		return req.RequestID, false, nil
	}
	rc.pending.Add(pendingDataset{requestID: req.RequestID, handle: ds.Handle, records: ds.Records})
	return req.RequestID, true, nil
}

// Flush writes queued datasets and commits the offsets waiting on them.
func (rc *ReportConsumer) Flush(ctx context.Context, committer Committer) {
	if !rc.pending.HasData() {
		return
	}
	rc.pending.LogBatchProcessing("datasets")

	batch := rc.pending.GetAndClear()
	for _, p := range batch {
		if err := rc.store.StoreRecords(ctx, p.handle, p.records); err != nil {
			slog.Error("[ReportConsumer] Failed to store dataset",
				slog.String("request_id", p.requestID),
				slog.String("handle", p.handle),
				slog.String("error", err.Error()))
		}
		rc.commit(committer, p.requestID)
	}
}

func (rc *ReportConsumer) commit(committer Committer, requestID string) {
	msg, ok := rc.tracker.Release(requestID)
	if !ok {
		return
	}
	if err := committer.Commit(msg); err != nil {
		slog.Warn("[ReportConsumer] Failed to commit offset",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
	}
}

// Handler processes one consumed message. Messages that cannot succeed on
// retry are committed right away; messages whose dataset is queued are
// committed by the next Flush.
func (rc *ReportConsumer) Handler(committer Committer) MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		requestID, queued, err := rc.HandleReportRequest(ctx, msg.Value)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			utils.HandleConsumerError(err)
			return committer.Commit(msg)
		}

		if !queued {
			return committer.Commit(msg)
		}
		rc.tracker.Track(requestID, msg)
		if rc.pending.Size() >= utils.BATCH_SIZE {
			rc.Flush(ctx, committer)
		}
		return nil
	}
}

// Run consumes until ctx ends, flushing queued datasets every BATCH_TIMEOUT
// and once more on shutdown.
func (rc *ReportConsumer) Run(ctx context.Context, source MessageSource, committer Committer, handle MessageHandler) {
	slog.Info("[ReportConsumer] Listening for messages...")

	lastFlush := time.Now()
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		rc.Flush(flushCtx, committer)
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[ReportConsumer] Stopping consumer...")
			return
		default:
		}

		if time.Since(lastFlush) >= utils.BATCH_TIMEOUT {
			rc.Flush(ctx, committer)
			lastFlush = time.Now()
		}

		msg, err := source.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			utils.HandleConsumerError(err)
			continue
		}

		if err := handle(ctx, msg); err != nil {
			utils.HandleConsumerError(err)
		}
	}
}

// Start is the kafka_client.ConsumerFunc for the report request topic.
func (rc *ReportConsumer) Start(wrap func(MessageHandler) MessageHandler) kafka_client.ConsumerFunc {
	return func(ctx context.Context, consumer *kafka.Consumer) {
		iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
		committer := kafka_client.NewCommitHandler(ctx, consumer)

		handler := rc.Handler(committer)
		if wrap != nil {
			handler = wrap(handler)
		}
		rc.Run(ctx, iterator, committer, handler)
	}
}
