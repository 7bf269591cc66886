package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/AronSwan/onlinestore-sub023/config"
)

// stubOrderFlow records sweep calls. The embedded interface covers the
// methods the sweeper never touches.
type stubOrderFlow struct {
	businessflow.PaymentOrderFlow

	mu            sync.Mutex
	expireBatches []int
	pollAges      []time.Duration
	pollBatches   []int

	expired   int
	expireErr error
	polled    int
	pollErr   error
}

func (s *stubOrderFlow) ExpireStaleOrders(ctx context.Context, batchSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireBatches = append(s.expireBatches, batchSize)
	return s.expired, s.expireErr
}

func (s *stubOrderFlow) PollProcessingOrders(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollAges = append(s.pollAges, olderThan)
	s.pollBatches = append(s.pollBatches, batchSize)
	return s.polled, s.pollErr
}

func (s *stubOrderFlow) runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expireBatches)
}

type stubCallbackFlow struct {
	businessflow.CallbackFlow

	mu             sync.Mutex
	recoverAges    []time.Duration
	recoverBatches []int

	recovered  int
	recoverErr error
}

func (s *stubCallbackFlow) RecoverUnappliedEvents(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoverAges = append(s.recoverAges, olderThan)
	s.recoverBatches = append(s.recoverBatches, batchSize)
	return s.recovered, s.recoverErr
}

func TestNewPaymentSweeperDefaults(t *testing.T) {
	t.Run("ZeroIntervalFallsBackToOneMinute", func(t *testing.T) {
		s := NewPaymentSweeper(&stubOrderFlow{}, &stubCallbackFlow{}, nil, config.SchedulerConfig{})
		assert.Equal(t, time.Minute, s.interval)
		assert.Equal(t, log.Default(), s.logger)
	})

	t.Run("ConfiguredIntervalKept", func(t *testing.T) {
		s := NewPaymentSweeper(&stubOrderFlow{}, &stubCallbackFlow{}, nil, config.SchedulerConfig{Interval: 5 * time.Second})
		assert.Equal(t, 5*time.Second, s.interval)
	})
}

func TestPaymentSweeperRunOnce(t *testing.T) {
	cfg := config.SchedulerConfig{
		Interval:          time.Hour,
		ProcessingPollAge: 10 * time.Minute,
		RecoverAge:        5 * time.Minute,
		BatchSize:         25,
	}

	t.Run("DispatchesAllThreeTasks", func(t *testing.T) {
		orders := &stubOrderFlow{expired: 3, polled: 2}
		callbacks := &stubCallbackFlow{recovered: 1}
		var buf bytes.Buffer
		s := NewPaymentSweeper(orders, callbacks, log.New(&buf, "", 0), cfg)

		s.runOnce(context.Background())

		assert.Equal(t, []int{25}, orders.expireBatches)
		assert.Equal(t, []time.Duration{10 * time.Minute}, orders.pollAges)
		assert.Equal(t, []int{25}, orders.pollBatches)
		assert.Equal(t, []time.Duration{5 * time.Minute}, callbacks.recoverAges)
		assert.Equal(t, []int{25}, callbacks.recoverBatches)

		logged := buf.String()
		assert.Contains(t, logged, "expired 3 stale orders")
		assert.Contains(t, logged, "re-polled 2 processing orders")
		assert.Contains(t, logged, "recovered 1 unapplied callback events")
	})

	t.Run("QuietPassLogsNothing", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewPaymentSweeper(&stubOrderFlow{}, &stubCallbackFlow{}, log.New(&buf, "", 0), cfg)

		s.runOnce(context.Background())

		assert.Empty(t, buf.String())
	})

	t.Run("TaskFailureDoesNotStopTheOthers", func(t *testing.T) {
		orders := &stubOrderFlow{expireErr: errors.New("database gone away"), polled: 4}
		callbacks := &stubCallbackFlow{recovered: 2}
		var buf bytes.Buffer
		s := NewPaymentSweeper(orders, callbacks, log.New(&buf, "", 0), cfg)

		s.runOnce(context.Background())

		assert.Len(t, orders.pollBatches, 1)
		assert.Len(t, callbacks.recoverBatches, 1)

		logged := buf.String()
		assert.Contains(t, logged, "expire stale orders failed")
		assert.Contains(t, logged, "re-polled 4 processing orders")
		assert.Contains(t, logged, "recovered 2 unapplied callback events")
	})
}

func TestPaymentSweeperStart(t *testing.T) {
	orders := &stubOrderFlow{}
	callbacks := &stubCallbackFlow{}
	cfg := config.SchedulerConfig{Interval: 10 * time.Millisecond, BatchSize: 10}
	s := NewPaymentSweeper(orders, callbacks, log.New(&bytes.Buffer{}, "", 0), cfg)

	stop := s.Start(context.Background())

	// One pass runs immediately, the ticker drives the rest
	require.Eventually(t, func() bool { return orders.runs() >= 3 }, 2*time.Second, 5*time.Millisecond)

	stop()
	time.Sleep(50 * time.Millisecond)
	settled := orders.runs()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, orders.runs())
}
