package kafka_client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/instalens/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedReader struct {
	results []error
	msg     *kafka.Message
	calls   int
}

func (r *scriptedReader) ReadMessage(time.Duration) (*kafka.Message, error) {
	r.calls++
	if len(r.results) == 0 {
		return r.msg, nil
	}
	err := r.results[0]
	r.results = r.results[1:]
	if err == nil {
		return r.msg, nil
	}
	return nil, err
}

func newTestIterator(ctx context.Context, r MessageReader) *KafkaMessageIterator {
	it := NewKafkaMessageIterator(ctx, r)
	it.retryDelay = time.Millisecond
	return it
}

func TestIterator_SkipsPollTimeouts(t *testing.T) {
	msg := &kafka.Message{Value: []byte("x")}
	timeout := kafka.NewError(kafka.ErrTimedOut, "timed out", false)
	r := &scriptedReader{results: []error{timeout, timeout, timeout, timeout, timeout, timeout}, msg: msg}

	got, err := newTestIterator(context.Background(), r).Next()
	require.NoError(t, err)
	assert.Same(t, msg, got)
	assert.Equal(t, 7, r.calls)
}

func TestIterator_RetriesThenGivesUp(t *testing.T) {
	boom := errors.New("transient")
	r := &scriptedReader{results: []error{boom, boom, boom, boom, boom}}

	_, err := newTestIterator(context.Background(), r).Next()
	assert.ErrorContains(t, err, "after retries")
	assert.Equal(t, MAX_RETRIES, r.calls)
}

func TestIterator_AllBrokersDown(t *testing.T) {
	down := kafka.NewError(kafka.ErrAllBrokersDown, "down", false)
	r := &scriptedReader{results: []error{down}}

	_, err := newTestIterator(context.Background(), r).Next()
	require.Error(t, err)
	assert.Equal(t, 1, r.calls)
}

func TestIterator_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &scriptedReader{}
	_, err := newTestIterator(ctx, r).Next()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.calls)
}

type flakyCommitter struct {
	failures int
	calls    int
}

func (c *flakyCommitter) CommitMessage(*kafka.Message) ([]kafka.TopicPartition, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("coordinator moved")
	}
	return nil, nil
}

func TestCommitHandler_Retries(t *testing.T) {
	c := &flakyCommitter{failures: 2}
	ch := NewCommitHandler(context.Background(), c)
	ch.retryDelay = time.Millisecond

	require.NoError(t, ch.Commit(&kafka.Message{}))
	assert.Equal(t, 3, c.calls)
}

func TestCommitHandler_GivesUp(t *testing.T) {
	c := &flakyCommitter{failures: MAX_RETRIES}
	ch := NewCommitHandler(context.Background(), c)
	ch.retryDelay = time.Millisecond

	assert.Error(t, ch.Commit(&kafka.Message{}))
	assert.Equal(t, MAX_RETRIES, c.calls)
}

type fakeProducer struct {
	produced   []*kafka.Message
	produceErr error
	commitErr  error
	begun      int
	committed  int
	aborted    int
	closed     bool
}

func (f *fakeProducer) BeginTransaction() error { f.begun++; return nil }

func (f *fakeProducer) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	if f.produceErr != nil {
		return f.produceErr
	}
	f.produced = append(f.produced, msg)
	return nil
}

func (f *fakeProducer) CommitTransaction(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed++
	return nil
}

func (f *fakeProducer) AbortTransaction(context.Context) error { f.aborted++; return nil }
func (f *fakeProducer) Flush(int) int                          { return 0 }
func (f *fakeProducer) Close()                                 { f.closed = true }

func TestProducer_Publish(t *testing.T) {
	fake := &fakeProducer{}
	p := &Producer{producer: fake}

	err := p.Publish(context.Background(), KAFKA_TOPIC_ENGAGEMENT_REPORTS, "req-1", map[string]int{"total_posts": 2})
	require.NoError(t, err)

	require.Len(t, fake.produced, 1)
	msg := fake.produced[0]
	assert.Equal(t, KAFKA_TOPIC_ENGAGEMENT_REPORTS, *msg.TopicPartition.Topic)
	assert.Equal(t, "req-1", string(msg.Key))

	var body map[string]int
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, 2, body["total_posts"])
	assert.Equal(t, 1, fake.committed)
	assert.Zero(t, fake.aborted)

	p.Close()
	assert.True(t, fake.closed)
}

func TestProducer_AbortsOnFailure(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeProducer
	}{
		{"produce", &fakeProducer{produceErr: errors.New("queue full")}},
		{"commit", &fakeProducer{commitErr: errors.New("fenced")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Producer{producer: tt.fake}
			err := p.Publish(context.Background(), "topic", "k", "v")
			require.Error(t, err)
			assert.Equal(t, 1, tt.fake.aborted)
		})
	}
}

func TestProducer_RejectsUnmarshalableValue(t *testing.T) {
	fake := &fakeProducer{}
	p := &Producer{producer: fake}

	err := p.Publish(context.Background(), "topic", "k", make(chan int))
	require.Error(t, err)
	assert.Zero(t, fake.begun)
}

func TestConfigMaps(t *testing.T) {
	cfg := config.KafkaConfig{Broker: "broker:9092", GroupID: "g", TransactionID: "tx-1"}

	consumer := consumerConfigMap(cfg)
	assert.Equal(t, "g", (*consumer)["group.id"])
	assert.Equal(t, false, (*consumer)["enable.auto.commit"])

	producer := producerConfigMap(cfg)
	assert.Equal(t, "tx-1", (*producer)["transactional.id"])
	assert.Equal(t, "broker:9092", (*producer)["bootstrap.servers"])
}

func TestConsumerRegistry(t *testing.T) {
	r := NewConsumerRegistry()
	r.Register(KAFKA_TOPIC_REPORT_REQUESTS, func(context.Context, *kafka.Consumer) {})

	_, ok := r.Lookup(KAFKA_TOPIC_REPORT_REQUESTS)
	assert.True(t, ok)

	err := r.Start(context.Background(), config.KafkaConfig{}, "unknown")
	assert.ErrorContains(t, err, "No consumer found")
}
