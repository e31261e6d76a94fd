package utils

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// MessageTracker holds consumed messages until the work they carried is
// done and their offsets can be committed.
type MessageTracker struct {
	messages sync.Map
}

func (t *MessageTracker) Track(key string, msg *kafka.Message) {
	t.messages.Store(key, msg)
}

// Release returns the message tracked under key and forgets it.
func (t *MessageTracker) Release(key string) (*kafka.Message, bool) {
	msg, ok := t.messages.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return msg.(*kafka.Message), true
}
