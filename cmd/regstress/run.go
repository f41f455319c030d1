package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/saylorsolutions/intercept/bus"
	"github.com/saylorsolutions/intercept/events"
	"golang.org/x/sync/errgroup"
)

var ErrMismatch = errors.New("dispatch did not observe the expected handlers")

// workload is dispatched by every worker.
// Before handlers count themselves in Before, and after handlers count through the shared after pointer, since they only see a copy.
type workload struct {
	Before   int
	Executed bool
	after    *int
}

func (w *workload) Execute(context.Context, events.BusTag) error {
	w.Executed = true
	return nil
}

// Report summarizes a completed run.
type Report struct {
	Policy     events.DispatchPolicy
	Buses      int
	Handlers   int
	Dispatched int64
	Mismatched int64
	Churned    int64
	Elapsed    time.Duration
}

// Rate is the number of dispatches per second across all buses.
func (r Report) Rate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Dispatched) / r.Elapsed.Seconds()
}

// Run creates the configured buses on hub, subscribes counting handlers to each, and dispatches from concurrent workers.
// Every dispatch is checked against the expected handler counts, and any mismatch makes Run return [ErrMismatch] along with the report.
func Run(ctx context.Context, cfg Config, hub *bus.Hub, log *slog.Logger) (Report, error) {
	report := Report{
		Policy:   cfg.DispatchPolicy(),
		Buses:    cfg.Buses,
		Handlers: cfg.Handlers,
	}
	buses := make([]*bus.Bus, cfg.Buses)
	for i := range buses {
		b, err := hub.NewBus(fmt.Sprintf("bus-%d", i))
		if err != nil {
			return report, err
		}
		defer func() {
			_ = b.Close()
		}()
		if err := subscribeCounters(b, cfg.Handlers); err != nil {
			return report, err
		}
		buses[i] = b
	}
	log.Info("Starting run", "buses", cfg.Buses, "handlers", cfg.Handlers, "dispatches", cfg.Dispatches, "workers", cfg.Workers, "policy", report.Policy.String(), "churn", cfg.Churn)

	var (
		dispatched atomic.Int64
		mismatched atomic.Int64
		churned    atomic.Int64
		start      = time.Now()
	)
	churnCtx, stopChurn := context.WithCancel(ctx)
	defer stopChurn()
	var churners errgroup.Group
	if cfg.Churn {
		for _, b := range buses {
			b := b
			churners.Go(func() error {
				return churn(churnCtx, b, &churned)
			})
		}
	}

	dispatchers, dctx := errgroup.WithContext(ctx)
	for _, b := range buses {
		b := b
		for w := 0; w < cfg.Workers; w++ {
			w := w
			dispatchers.Go(func() error {
				for seq := w; seq < cfg.Dispatches; seq += cfg.Workers {
					ev := &workload{after: new(int)}
					if err := bus.Dispatch(dctx, b, ev); err != nil {
						return err
					}
					dispatched.Add(1)
					if ev.Before != cfg.Handlers || *ev.after != cfg.Handlers || !ev.Executed {
						if mismatched.Add(1) == 1 {
							log.Error("Unexpected handler counts", "bus", b.Name(), "seq", seq, "before", ev.Before, "after", *ev.after, "executed", ev.Executed)
						}
					}
				}
				return nil
			})
		}
	}
	err := dispatchers.Wait()
	stopChurn()
	_ = churners.Wait()

	report.Elapsed = time.Since(start)
	report.Dispatched = dispatched.Load()
	report.Mismatched = mismatched.Load()
	report.Churned = churned.Load()
	if err != nil {
		return report, err
	}
	if report.Mismatched > 0 {
		return report, fmt.Errorf("%w: %d of %d dispatches", ErrMismatch, report.Mismatched, report.Dispatched)
	}
	return report, nil
}

func subscribeCounters(b *bus.Bus, n int) error {
	for i := 0; i < n; i++ {
		_, err := bus.Before[workload](b, func(_ context.Context, _ events.BusTag, ev *workload) error {
			ev.Before++
			return nil
		})
		if err != nil {
			return err
		}
		_, err = bus.After[workload](b, func(_ context.Context, _ events.BusTag, ev workload) error {
			*ev.after++
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// churn repeatedly subscribes and disposes handlers that don't affect the counts, until ctx is done.
func churn(ctx context.Context, b *bus.Bus, churned *atomic.Int64) error {
	for ctx.Err() == nil {
		before, err := bus.Before[workload](b, func(context.Context, events.BusTag, *workload) error { return nil })
		if err != nil {
			return err
		}
		after, err := bus.After[workload](b, func(context.Context, events.BusTag, workload) error { return nil })
		if err != nil {
			before.Dispose()
			return err
		}
		before.Dispose()
		after.Dispose()
		churned.Add(1)
	}
	return nil
}
