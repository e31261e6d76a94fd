package consumers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

const UNHEALTHY_WAIT = 5 * time.Second

type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// ConsumerWrapper holds messages back while any attached health flag is
// down.
type ConsumerWrapper struct {
	fn     MessageHandler
	health []*atomic.Bool
	wait   time.Duration
}

func WrapHandler(fn MessageHandler, health ...*atomic.Bool) ConsumerWrapper {
	return ConsumerWrapper{
		fn:     fn,
		health: health,
		wait:   UNHEALTHY_WAIT,
	}
}

func (cw ConsumerWrapper) WithHealthCheck(health *atomic.Bool) ConsumerWrapper {
	cw.health = append(cw.health, health)
	return cw
}

func (cw ConsumerWrapper) healthy() bool {
	for _, h := range cw.health {
		if h != nil && !h.Load() {
			return false
		}
	}
	return true
}

func (cw ConsumerWrapper) Handler() MessageHandler {
	return func(ctx context.Context, msg *kafka.Message) error {
		for !cw.healthy() {
			slog.Warn("[ConsumerWrapper] Dependency unhealthy, holding message",
				slog.Duration("wait", cw.wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cw.wait):
			}
		}
		return cw.fn(ctx, msg)
	}
}
