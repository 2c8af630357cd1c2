// Package app wires storage, services and the HTTP router together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"eventrental/internal/audit"
	"eventrental/internal/chaos"
	"eventrental/internal/config"
	"eventrental/internal/events"
	"eventrental/internal/httpapi"
	"eventrental/internal/inventory"
	"eventrental/internal/messaging"
	"eventrental/internal/notify"
	"eventrental/internal/observability"
	"eventrental/internal/reports"
	"eventrental/internal/returns"
	"eventrental/internal/store"
	"eventrental/internal/store/memstore"
	"eventrental/internal/users"
	"eventrental/pkg/eventstore"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// logStream is the modification log as both the audit trail and the relay
// source.
type logStream interface {
	audit.Stream
	messaging.Source
}

// backend is one storage implementation of every repository.
type backend struct {
	tx        store.TxRunner
	users     users.Repository
	inventory inventory.Repository
	events    events.Repository
	returns   returns.Repository
	log       logStream
	offsets   messaging.OffsetStore
	close     func() error
}

// Container holds the assembled services.
type Container struct {
	Handler   http.Handler
	Tokens    *httpapi.Tokens
	Users     users.Service
	Inventory inventory.Service
	Events    events.Service
	Returns   returns.Service
	Reports   reports.Service
	Ledger    inventory.Ledger
	Relay     *messaging.Relay

	publisher messaging.Publisher
	backend   *backend
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	// Memory replaces the configured storage with this in-memory store.
	Memory *memstore.Store
	// Send replaces the SMTP dial.
	Send notify.SendFunc
}

// NewContainer opens storage and builds every service.
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics, opts Options) (*Container, error) {
	b, err := openBackend(ctx, cfg, opts.Memory)
	if err != nil {
		return nil, err
	}

	c := &Container{backend: b, Tokens: httpapi.NewTokens(cfg.JWTSecret)}

	userService := users.NewService(b.users, b.tx, logger.Named("users"))
	ledger := inventory.NewLedger(b.inventory, metrics)
	auditLog := audit.NewLog(b.log)
	reportService := reports.NewService(b.events, b.inventory, b.users, userService)
	mailer := notify.NewMailer(cfg.Mail, opts.Send, logger.Named("notify"))

	c.Users = userService
	c.Ledger = ledger
	c.Reports = reportService
	c.Inventory = inventory.NewService(b.inventory, b.tx, userService, logger.Named("inventory"))
	c.Events = events.NewService(events.Deps{
		Repo:    b.events,
		Users:   b.users,
		Returns: b.returns,
		Ledger:  ledger,
		Audit:   auditLog,
		Tx:      b.tx,
		Auth:    userService,
		Logger:  logger.Named("events"),
	})
	c.Returns = returns.NewService(returns.Deps{
		Repo:     b.returns,
		Events:   b.events,
		Ledger:   ledger,
		Audit:    auditLog,
		Tx:       b.tx,
		Auth:     userService,
		Reporter: reportService,
		Notifier: mailer,
		Metrics:  metrics,
		Logger:   logger.Named("returns"),
	})

	if cfg.KafkaBroker != "" {
		c.publisher = messaging.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		c.Relay = messaging.NewRelay(b.log, b.offsets, c.publisher, logger.Named("relay"), cfg.RelayInterval)
	}

	c.Handler = httpapi.NewRouter(httpapi.Options{
		Tokens:  c.Tokens,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateBurst),
		Logger:  logger.Named("http"),
		Handlers: []httpapi.Mounter{
			users.NewHandler(c.Users),
			inventory.NewHandler(c.Inventory),
			events.NewHandler(c.Events),
			returns.NewHandler(c.Returns),
			reports.NewHandler(c.Reports),
		},
	})
	return c, nil
}

// SeedAdmin makes sure the configured admin account exists.
func (c *Container) SeedAdmin(ctx context.Context, cfg *config.Config) (*users.User, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil, nil
	}
	admin, err := c.Users.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	return admin, nil
}

// ChaosTarget exposes the ledger and its storage to the chaos experiments.
func (c *Container) ChaosTarget(logger *zap.Logger) chaos.Target {
	return chaos.Target{
		Tx:        c.backend.tx,
		Ledger:    c.Ledger,
		Inventory: c.backend.inventory,
		Logger:    logger,
	}
}

// Close releases the publisher and the database pool.
func (c *Container) Close() error {
	var errs []error
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if c.backend.close != nil {
		if err := c.backend.close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func openBackend(ctx context.Context, cfg *config.Config, mem *memstore.Store) (*backend, error) {
	if mem == nil && cfg.Storage == config.StorageMemory {
		mem = memstore.New()
	}
	if mem != nil {
		return &backend{
			tx:        mem,
			users:     mem.Users(),
			inventory: mem.Inventory(),
			events:    mem.Events(),
			returns:   mem.Returns(),
			log:       mem.EventLog(),
			offsets:   mem.Offsets(),
		}, nil
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &backend{
		tx:        db,
		users:     users.NewRepository(db),
		inventory: inventory.NewRepository(db),
		events:    events.NewRepository(db),
		returns:   returns.NewRepository(db),
		log:       eventstore.NewEventStore(db),
		offsets:   messaging.NewOffsetStore(db),
		close:     db.Close,
	}, nil
}
