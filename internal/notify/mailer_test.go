package notify

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"eventrental/internal/config"
	"eventrental/internal/events"
	"eventrental/internal/reports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capture struct {
	addr  string
	auth  smtp.Auth
	from  string
	to    []string
	msg   []byte
	calls int
	err   error
}

func (c *capture) send(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	c.calls++
	c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, msg
	return c.err
}

func sampleReport() *reports.Report {
	return &reports.Report{
		Name:          "Gala\r\nBcc: attacker@example.com",
		EventID:       uuid.New(),
		EventType:     events.SizeSmall,
		EventDate:     time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC),
		Customers:     3,
		CustomerEmail: "owner@example.com",
		TotalIncome:   decimal.NewFromInt(1000),
		TotalExpense:  decimal.RequireFromString("250.5"),
		Profit:        decimal.RequireFromString("749.5"),
		EmployeeFee:   decimal.NewFromInt(200),
		ItemizedExpenses: []reports.ExpenseLine{
			{Name: "Tent", Quantity: 1, Cost: decimal.RequireFromString("50.5")},
		},
	}
}

func mailConfig() config.MailConfig {
	return config.MailConfig{Host: "smtp.example.com", Port: 587, From: "reports@example.com"}
}

func TestSendEventReport(t *testing.T) {
	c := &capture{}
	cfg := mailConfig()
	cfg.Username, cfg.Password = "user", "pass"
	m := NewMailer(cfg, c.send, zap.NewNop())

	require.NoError(t, m.SendEventReport(context.Background(), sampleReport()))

	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.NotNil(t, c.auth)
	assert.Equal(t, "reports@example.com", c.from)
	assert.Equal(t, []string{"owner@example.com"}, c.to, "falls back to the report contact")

	header, body, found := strings.Cut(string(c.msg), "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, header, "Subject: Event report: Gala  Bcc: attacker@example.com")
	assert.NotContains(t, header, "\r\nBcc:")
	assert.Contains(t, body, "2026-05-02")
	assert.Contains(t, body, "50.50")
	assert.Contains(t, body, "749.50")
}

func TestSendEventReportPrefersConfiguredRecipient(t *testing.T) {
	c := &capture{}
	cfg := mailConfig()
	cfg.Recipient = "finance@example.com"

	require.NoError(t, NewMailer(cfg, c.send, zap.NewNop()).SendEventReport(context.Background(), sampleReport()))
	assert.Equal(t, []string{"finance@example.com"}, c.to)
	assert.Nil(t, c.auth)
}

func TestSendEventReportWithoutRecipient(t *testing.T) {
	c := &capture{}
	report := sampleReport()
	report.CustomerEmail = ""

	err := NewMailer(mailConfig(), c.send, zap.NewNop()).SendEventReport(context.Background(), report)
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Zero(t, c.calls)
}

func TestMockModeDoesNotSend(t *testing.T) {
	c := &capture{}
	cfg := mailConfig()
	cfg.MockMode = true

	require.NoError(t, NewMailer(cfg, c.send, zap.NewNop()).SendEventReport(context.Background(), sampleReport()))
	assert.Zero(t, c.calls)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	c := &capture{err: errors.New("connection refused")}
	m := NewMailer(mailConfig(), c.send, zap.NewNop())

	for i := 0; i < 3; i++ {
		err := m.SendEventReport(context.Background(), sampleReport())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	}

	err := m.SendEventReport(context.Background(), sampleReport())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, c.calls)
}

func TestCancelledContext(t *testing.T) {
	c := &capture{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMailer(mailConfig(), c.send, zap.NewNop()).SendEventReport(ctx, sampleReport())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.calls)
}

func TestHungSendIsCutOffByTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	cfg := mailConfig()
	cfg.Timeout = 50 * time.Millisecond

	m := NewMailer(cfg, func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}, zap.NewNop())

	start := time.Now()
	err := m.SendEventReport(context.Background(), sampleReport())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSendMailGivesUpOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	hold := make(chan struct{})
	t.Cleanup(func() {
		close(hold)
		ln.Close()
	})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		<-hold
		conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sendMail(ctx, ln.Addr().String(), nil, "reports@example.com", []string{"owner@example.com"}, []byte("hi"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
