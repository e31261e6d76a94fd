package utils

import (
	"sync"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchBuffer(t *testing.T) {
	b := NewBatchBuffer[int](3)
	assert.False(t, b.HasData())
	assert.Nil(t, b.GetAndClear())

	assert.False(t, b.Add(1))
	assert.False(t, b.Add(2))
	assert.True(t, b.HasData())
	assert.Equal(t, 2, b.Size())
	assert.True(t, b.Add(3))

	assert.Equal(t, []int{1, 2, 3}, b.GetAndClear())
	assert.Zero(t, b.Size())
}

func TestBatchBuffer_ConcurrentAdds(t *testing.T) {
	b := NewBatchBuffer[int](0)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Add(i)
		}()
	}
	wg.Wait()

	assert.Len(t, b.GetAndClear(), 100)
}

func TestMessageTracker(t *testing.T) {
	var tracker MessageTracker
	msg := &kafka.Message{Key: []byte("req-1")}

	tracker.Track("req-1", msg)
	got, ok := tracker.Release("req-1")
	require.True(t, ok)
	assert.Same(t, msg, got)

	_, ok = tracker.Release("req-1")
	assert.False(t, ok)
}

func TestDeserializeFromJSON(t *testing.T) {
	var out map[string]int
	require.NoError(t, DeserializeFromJSON([]byte(`{"a":1}`), &out))
	assert.Equal(t, 1, out["a"])

	assert.Error(t, DeserializeFromJSON([]byte(`{`), &out))

	data, err := SerializeToJSON(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}
