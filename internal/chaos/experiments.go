// internal/chaos/experiments.go
package chaos

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"sync"
	"sync/atomic"
	"time"

	"eventrental/internal/config"
	"eventrental/internal/inventory"
	"eventrental/internal/notify"
	"eventrental/internal/reports"
	"eventrental/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Target is the slice of the system the experiments exercise.
type Target struct {
	Tx        store.TxRunner
	Ledger    inventory.Ledger
	Inventory inventory.Repository
	Logger    *zap.Logger
}

// Standard registers the predefined experiments with the engine.
func (e *Engine) Standard(t Target, duration time.Duration) {
	e.Register(ConcurrentReservationExperiment(t, 10, 100, duration))
	e.Register(ReserveReleaseChurnExperiment(t, 50, 20, duration))
	e.Register(MailOutageExperiment(t.Logger, duration))
}

// canary tracks one material created by an experiment.
type canary struct {
	mu    sync.Mutex
	ref   inventory.Ref
	total int
	made  bool
}

func (p *canary) create(ctx context.Context, t Target, name string, quantity int) error {
	now := time.Now().UTC()
	m := &inventory.Material{
		ID:        uuid.New(),
		Name:      fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]),
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Tx.InTx(ctx, func(ctx context.Context) error {
		return t.Inventory.CreateMaterial(ctx, m)
	}); err != nil {
		return fmt.Errorf("create canary material: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ref, p.total, p.made = inventory.MaterialRef(m.ID), quantity, true
	return nil
}

// inconsistencies counts broken ledger invariants on the canary row: a
// negative counter or units that appeared or vanished.
func (p *canary) inconsistencies(ctx context.Context, t Target) (float64, error) {
	p.mu.Lock()
	ref, total, made := p.ref, p.total, p.made
	p.mu.Unlock()
	if !made {
		return 0, nil
	}

	var stock *inventory.Stock
	err := t.Tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		stock, err = t.Ledger.Available(ctx, ref)
		return err
	})
	if err != nil {
		return 0, err
	}

	var n float64
	if stock.Quantity < 0 {
		n++
	}
	if stock.Reserved < 0 {
		n++
	}
	if stock.Quantity+stock.Reserved != total {
		n++
	}
	return n, nil
}

func (p *canary) remove(ctx context.Context, t Target) error {
	p.mu.Lock()
	ref, made := p.ref, p.made
	p.made = false
	p.mu.Unlock()
	if !made {
		return nil
	}
	return t.Tx.InTx(ctx, func(ctx context.Context) error {
		return t.Inventory.DeleteMaterial(ctx, ref.ID)
	})
}

// reserveOne reserves a single unit in its own transaction.
func reserveOne(ctx context.Context, t Target, ref inventory.Ref) error {
	return t.Tx.InTx(ctx, func(ctx context.Context) error {
		_, err := t.Ledger.Reserve(ctx, ref, 1)
		return err
	})
}

// ConcurrentReservationExperiment fires more single-unit reservations at
// one material than it has stock.
func ConcurrentReservationExperiment(t Target, stock, concurrency int, duration time.Duration) Experiment {
	p := &canary{}
	var granted atomic.Int64

	return Experiment{
		Name:       "concurrent-reservation-race",
		Hypothesis: "Concurrent reservations never take more units than a material holds",
		SteadyState: []Metric{
			{
				Name:      "stock_inconsistencies",
				Query:     func(ctx context.Context) (float64, error) { return p.inconsistencies(ctx, t) },
				Threshold: Threshold{Operator: "==", Value: 0},
			},
			{
				Name: "oversold_units",
				Query: func(ctx context.Context) (float64, error) {
					return float64(max(0, granted.Load()-int64(stock))), nil
				},
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "concurrent-requests",
				Target: "inventory-ledger",
				Execute: func(ctx context.Context) error {
					if err := p.create(ctx, t, "chaos-race", stock); err != nil {
						return err
					}
					var wg sync.WaitGroup
					for i := 0; i < concurrency; i++ {
						wg.Add(1)
						go func() {
							defer wg.Done()
							// most attempts are expected to fail with insufficient stock
							if err := reserveOne(ctx, t, p.ref); err == nil {
								granted.Add(1)
							}
						}()
					}
					wg.Wait()
					t.Logger.Info("reservation race finished",
						zap.Int64("granted", granted.Load()),
						zap.Int("stock", stock),
						zap.Int("attempts", concurrency))
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:    "restore",
				Target:  "inventory-ledger",
				Execute: func(ctx context.Context) error { return p.remove(ctx, t) },
			},
		},
		Validation: []Assertion{
			{
				Metric:    "stock_inconsistencies",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Available plus reserved must equal the stocked quantity",
			},
			{
				Metric:    "oversold_units",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No more units may be reserved than were stocked",
			},
		},
		Duration:    duration,
		SampleEvery: duration / 4,
	}
}

// ReserveReleaseChurnExperiment runs overlapping reserve and release pairs
// and expects stock to return to where it started.
func ReserveReleaseChurnExperiment(t Target, stock, concurrency int, duration time.Duration) Experiment {
	p := &canary{}

	return Experiment{
		Name:       "reserve-release-churn",
		Hypothesis: "Interleaved reservations and releases conserve stock",
		SteadyState: []Metric{
			{
				Name:      "stock_inconsistencies",
				Query:     func(ctx context.Context) (float64, error) { return p.inconsistencies(ctx, t) },
				Threshold: Threshold{Operator: "==", Value: 0},
			},
			{
				Name: "units_held",
				Query: func(ctx context.Context) (float64, error) {
					p.mu.Lock()
					ref, made := p.ref, p.made
					p.mu.Unlock()
					if !made {
						return 0, nil
					}
					var s *inventory.Stock
					err := t.Tx.InTx(ctx, func(ctx context.Context) error {
						var err error
						s, err = t.Ledger.Available(ctx, ref)
						return err
					})
					if err != nil {
						return 0, err
					}
					return float64(s.Reserved), nil
				},
				Threshold: Threshold{Operator: "==", Value: 0},
			},
		},
		Method: []Action{
			{
				Type:   "concurrent-requests",
				Target: "inventory-ledger",
				Execute: func(ctx context.Context) error {
					if err := p.create(ctx, t, "chaos-churn", stock); err != nil {
						return err
					}
					var wg sync.WaitGroup
					for i := 0; i < concurrency; i++ {
						wg.Add(1)
						go func(qty int) {
							defer wg.Done()
							err := t.Tx.InTx(ctx, func(ctx context.Context) error {
								if _, err := t.Ledger.Reserve(ctx, p.ref, qty); err != nil {
									return err
								}
								_, err := t.Ledger.Release(ctx, p.ref, qty)
								return err
							})
							if err != nil {
								t.Logger.Debug("churn transaction rejected", zap.Error(err))
							}
						}(i%3 + 1)
					}
					wg.Wait()
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:    "restore",
				Target:  "inventory-ledger",
				Execute: func(ctx context.Context) error { return p.remove(ctx, t) },
			},
		},
		Validation: []Assertion{
			{
				Metric:    "stock_inconsistencies",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Churn must not create or lose units",
			},
			{
				Metric:    "units_held",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Every reserved unit must be released again",
			},
		},
		Duration:    duration,
		SampleEvery: duration / 4,
	}
}

var errSMTPDown = errors.New("smtp relay unreachable")

// MailOutageExperiment takes the SMTP relay away and expects the mailer's
// circuit breaker to stop hammering it.
func MailOutageExperiment(logger *zap.Logger, duration time.Duration) Experiment {
	var (
		down     atomic.Bool
		attempts atomic.Int64
	)
	mailer := notify.NewMailer(config.MailConfig{
		Host:      "smtp.chaos.invalid",
		Port:      25,
		From:      "chaos@eventrental.local",
		Recipient: "ops@eventrental.local",
	}, func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		attempts.Add(1)
		if down.Load() {
			return errSMTPDown
		}
		return nil
	}, logger.Named("chaos-mailer"))

	const sends = 10
	report := &reports.Report{
		Name:         "chaos game day",
		EventID:      uuid.New(),
		EventDate:    time.Now().UTC(),
		TotalIncome:  decimal.NewFromInt(100),
		TotalExpense: decimal.Zero,
		Profit:       decimal.NewFromInt(100),
		EmployeeFee:  decimal.Zero,
	}

	return Experiment{
		Name:       "smtp-relay-outage",
		Hypothesis: "The mail circuit breaker opens after repeated failures and sheds further sends",
		SteadyState: []Metric{
			{
				Name:      "smtp_attempts",
				Query:     func(context.Context) (float64, error) { return float64(attempts.Load()), nil },
				Threshold: Threshold{Operator: "<=", Value: 3},
			},
		},
		Method: []Action{
			{
				Type:   "dependency-failure",
				Target: "smtp",
				Execute: func(ctx context.Context) error {
					down.Store(true)
					var failed int
					for i := 0; i < sends; i++ {
						if err := mailer.SendEventReport(ctx, report); err != nil {
							failed++
						}
					}
					logger.Info("mail outage sends finished", zap.Int("failed", failed), zap.Int("sent", sends))
					return nil
				},
			},
		},
		Rollback: []Action{
			{
				Type:    "restore",
				Target:  "smtp",
				Execute: func(context.Context) error { down.Store(false); return nil },
			},
		},
		Validation: []Assertion{
			{
				Metric:    "smtp_attempts",
				Condition: func(v float64) bool { return v <= 3 },
				Message:   "The breaker must stop calling the relay after three consecutive failures",
			},
		},
		Duration:    duration,
		SampleEvery: duration / 4,
	}
}
