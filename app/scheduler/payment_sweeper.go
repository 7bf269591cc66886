// Package scheduler
package scheduler

import (
	"context"
	"log"
	"time"

	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/AronSwan/onlinestore-sub023/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweeperRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sweeper_runs_total",
		Help: "Completed sweeper passes",
	})

	ordersExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_orders_expired_total",
		Help: "Orders moved to EXPIRED by the sweep",
	})

	ordersPolledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_orders_polled_total",
		Help: "PROCESSING orders re-polled against their gateway",
	})

	eventsRecoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_callback_events_recovered_total",
		Help: "Recorded-but-unapplied callback events replayed to completion",
	})

	sweeperErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_sweeper_errors_total",
		Help: "Sweeper task failures by task",
	}, []string{"task"})
)

// PaymentSweeper is the reconciliation backstop: on every tick it expires
// overdue PENDING orders, re-polls PROCESSING orders whose callbacks may have
// been lost, and replays callback events that were recorded but never
// applied. Every path goes through the same transition table the callbacks
// use, so the sweep can never produce a state a callback could not.
type PaymentSweeper struct {
	orderFlow    businessflow.PaymentOrderFlow
	callbackFlow businessflow.CallbackFlow
	logger       *log.Logger
	interval     time.Duration
	cfg          config.SchedulerConfig
}

func NewPaymentSweeper(
	orderFlow businessflow.PaymentOrderFlow,
	callbackFlow businessflow.CallbackFlow,
	logger *log.Logger,
	cfg config.SchedulerConfig,
) *PaymentSweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}

	return &PaymentSweeper{
		orderFlow:    orderFlow,
		callbackFlow: callbackFlow,
		logger:       logger,
		interval:     interval,
		cfg:          cfg,
	}
}

// Start launches the sweeper loop in a background goroutine and returns a stop function
func (s *PaymentSweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *PaymentSweeper) runOnce(ctx context.Context) {
	sweeperRunsTotal.Inc()

	expired, err := s.orderFlow.ExpireStaleOrders(ctx, s.cfg.BatchSize)
	if err != nil {
		sweeperErrorsTotal.WithLabelValues("expire").Inc()
		s.logger.Printf("sweeper: expire stale orders failed: %v", err)
	} else if expired > 0 {
		ordersExpiredTotal.Add(float64(expired))
		s.logger.Printf("sweeper: expired %d stale orders", expired)
	}

	polled, err := s.orderFlow.PollProcessingOrders(ctx, s.cfg.ProcessingPollAge, s.cfg.BatchSize)
	if err != nil {
		sweeperErrorsTotal.WithLabelValues("poll").Inc()
		s.logger.Printf("sweeper: poll processing orders failed: %v", err)
	} else if polled > 0 {
		ordersPolledTotal.Add(float64(polled))
		s.logger.Printf("sweeper: re-polled %d processing orders", polled)
	}

	recovered, err := s.callbackFlow.RecoverUnappliedEvents(ctx, s.cfg.RecoverAge, s.cfg.BatchSize)
	if err != nil {
		sweeperErrorsTotal.WithLabelValues("recover").Inc()
		s.logger.Printf("sweeper: recover unapplied events failed: %v", err)
	} else if recovered > 0 {
		eventsRecoveredTotal.Add(float64(recovered))
		s.logger.Printf("sweeper: recovered %d unapplied callback events", recovered)
	}
}
