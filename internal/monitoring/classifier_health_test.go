package monitoring

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type toggleChecker struct {
	up atomic.Bool
}

func (c *toggleChecker) AnalyzerHealthCheck(context.Context) bool {
	return c.up.Load()
}

func TestMonitorClassifierHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := &toggleChecker{}
	healthy := &atomic.Bool{}
	healthy.Store(true)

	done := make(chan struct{})
	go func() {
		MonitorClassifierHealth(ctx, checker, healthy, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !healthy.Load() }, time.Second, time.Millisecond)

	checker.up.Store(true)
	assert.Eventually(t, healthy.Load, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
