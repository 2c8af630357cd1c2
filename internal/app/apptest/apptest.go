// Package apptest builds the full service container on the in-memory store
// for service and HTTP tests.
package apptest

import (
	"context"
	"net/smtp"
	"sync"
	"testing"
	"time"

	"eventrental/internal/app"
	"eventrental/internal/config"
	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/store/memstore"
	"eventrental/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	AdminEmail    = "admin@eventrental.test"
	AdminPassword = "Sup3r-Secret!"
	JWTSecret     = "test-secret"
)

// Mail is one message captured instead of being sent.
type Mail struct {
	Addr string
	From string
	To   []string
	Body []byte
}

// Outbox collects captured mail.
type Outbox struct {
	mu   sync.Mutex
	sent []Mail
	fail error
}

func (o *Outbox) send(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.sent = append(o.sent, Mail{Addr: addr, From: from, To: to, Body: msg})
	return nil
}

// Sent returns the captured messages.
func (o *Outbox) Sent() []Mail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Mail(nil), o.sent...)
}

// FailWith makes every later send return err.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fail = err
}

// Harness is a container over a fresh memory store with a seeded admin and
// worker.
type Harness struct {
	*app.Container
	Mem    *memstore.Store
	Config *config.Config
	Outbox *Outbox
	Admin  *users.User
	Worker *users.User
}

// Config returns a configuration for memory storage with real (captured)
// mail delivery.
func Config() *config.Config {
	return &config.Config{
		Env:           "test",
		Port:          "0",
		LogLevel:      "debug",
		Storage:       config.StorageMemory,
		JWTSecret:     JWTSecret,
		RateLimitRPS:  1000,
		RateBurst:     1000,
		KafkaTopic:    "event-lifecycle",
		RelayInterval: time.Second,
		AdminEmail:    AdminEmail,
		AdminPassword: AdminPassword,
		AdminName:     "Test Admin",
		Mail: config.MailConfig{
			Host: "smtp.test",
			Port: 25,
			From: "reports@eventrental.test",
		},
	}
}

// New builds a harness. The container is closed with the test.
func New(t testing.TB) *Harness {
	t.Helper()
	return NewWithConfig(t, Config())
}

// NewWithConfig builds a harness from cfg.
func NewWithConfig(t testing.TB, cfg *config.Config) *Harness {
	t.Helper()
	ctx := context.Background()

	h := &Harness{Mem: memstore.New(), Config: cfg, Outbox: &Outbox{}}
	c, err := app.NewContainer(ctx, cfg, zap.NewNop(), nil, app.Options{Memory: h.Mem, Send: h.Outbox.send})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	h.Container = c

	h.Admin, err = c.SeedAdmin(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, h.Admin)

	h.Worker, err = c.Users.CreateUser(ctx, h.Admin.ID, users.CreateUserInput{FullName: "Walter Worker", Role: users.RoleWorker})
	require.NoError(t, err)
	return h
}

// Token issues a bearer token for userID.
func (h *Harness) Token(t testing.TB, userID uuid.UUID) string {
	t.Helper()
	token, err := h.Tokens.Issue(userID, time.Hour)
	require.NoError(t, err)
	return token
}

// Material stocks an owned material.
func (h *Harness) Material(t testing.TB, name string, qty int, price int64) *inventory.Material {
	t.Helper()
	p := decimal.NewFromInt(price)
	m, err := h.Inventory.CreateMaterial(context.Background(), h.Admin.ID, inventory.MaterialInput{
		Name:     &name,
		Quantity: &qty,
		Price:    &p,
	})
	require.NoError(t, err)
	return m
}

// Rental stocks a rental material.
func (h *Harness) Rental(t testing.TB, name string, qty int, cost int64) *inventory.RentalMaterial {
	t.Helper()
	c := decimal.NewFromInt(cost)
	vendor := "Acme Rentals"
	rm, err := h.Inventory.CreateRental(context.Background(), h.Admin.ID, inventory.RentalInput{
		Name:        &name,
		Quantity:    &qty,
		RentingCost: &c,
		VendorName:  &vendor,
	})
	require.NoError(t, err)
	return rm
}

// Stock reads the ledger view of ref.
func (h *Harness) Stock(t testing.TB, ref inventory.Ref) *inventory.Stock {
	t.Helper()
	s, err := h.Mem.Inventory().LockStock(context.Background(), ref)
	require.NoError(t, err)
	return s
}

// Event creates a planning event staffed by the seeded worker for fee.
func (h *Harness) Event(t testing.TB, fee int64, items ...events.LineItemInput) *events.Details {
	t.Helper()
	d, err := h.Events.Create(context.Background(), h.Admin.ID, events.CreateInput{
		Name:    "Summer gala",
		Date:    time.Date(2026, time.June, 12, 18, 0, 0, 0, time.UTC),
		Address: "1 Harbour Road",
		Size:    events.SizeBig,
		Cost:    decimal.NewFromInt(5000),
		Staff:   []events.StaffInput{{WorkerID: &h.Worker.ID, Fee: decimal.NewFromInt(fee)}},
		Items:   items,
	})
	require.NoError(t, err)
	return d
}

// DoneEvent creates an event and moves it to done.
func (h *Harness) DoneEvent(t testing.TB, fee int64, items ...events.LineItemInput) *events.Details {
	t.Helper()
	d := h.Event(t, fee, items...)
	_, err := h.Events.UpdateStatus(context.Background(), h.Admin.ID, d.ID, events.StatusDone)
	require.NoError(t, err)
	d.Status = events.StatusDone
	return d
}

// MaterialItem requests qty units of an owned material.
func MaterialItem(id uuid.UUID, qty int) events.LineItemInput {
	return events.LineItemInput{MaterialID: &id, Quantity: qty}
}

// RentalItem requests qty units of a rental material.
func RentalItem(id uuid.UUID, qty int) events.LineItemInput {
	return events.LineItemInput{RentalMaterialID: &id, Quantity: qty}
}

// CustomItem requests an ad-hoc item.
func CustomItem(names string, typ events.ItemType, price int64, qty int) events.LineItemInput {
	p := decimal.NewFromInt(price)
	return events.LineItemInput{Names: names, Type: typ, Price: &p, Quantity: qty}
}
