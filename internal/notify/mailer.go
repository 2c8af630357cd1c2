// Package notify delivers closed-event reports by e-mail.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"eventrental/internal/config"
	"eventrental/internal/reports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned when neither the configuration nor the report
// names an address to send to.
var ErrNoRecipient = errors.New("no report recipient configured")

const defaultSendTimeout = 10 * time.Second

// SendFunc delivers one message. It is smtp.SendMail with a context.
type SendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends reports over SMTP behind a circuit breaker. In mock mode the
// rendered message is logged instead of sent.
type Mailer struct {
	cfg     config.MailConfig
	send    SendFunc
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewMailer creates a mailer. A nil send dials the configured SMTP server.
func NewMailer(cfg config.MailConfig, send SendFunc, logger *zap.Logger) *Mailer {
	if send == nil {
		send = sendMail
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	m := &Mailer{cfg: cfg, send: send, logger: logger}
	m.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mail circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return m
}

// SendEventReport renders the report and mails it.
func (m *Mailer) SendEventReport(ctx context.Context, report *reports.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := m.cfg.Recipient
	if to == "" {
		to = report.CustomerEmail
	}
	if to == "" {
		return ErrNoRecipient
	}

	msg, err := m.compose(to, report)
	if err != nil {
		return err
	}

	if m.cfg.MockMode {
		m.logger.Info("event report mail (mock mode)",
			zap.String("to", to),
			zap.String("event_id", report.EventID.String()),
			zap.Int("bytes", len(msg)))
		return nil
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	_, err = m.breaker.Execute(func() (interface{}, error) {
		return nil, m.deliver(ctx, addr, auth, to, msg)
	})
	if err != nil {
		return fmt.Errorf("send report for event %s: %w", report.EventID, err)
	}

	m.logger.Info("event report mailed",
		zap.String("to", to),
		zap.String("event_id", report.EventID.String()))
	return nil
}

// deliver runs send and gives up when ctx ends, even if send does not.
func (m *Mailer) deliver(ctx context.Context, addr string, auth smtp.Auth, to string, msg []byte) error {
	done := make(chan error, 1)
	go func() {
		done <- m.send(ctx, addr, auth, m.cfg.From, []string{to}, msg)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendMail is smtp.SendMail with the dial and the session bounded by ctx.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		conn.Close()
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *Mailer) compose(to string, report *reports.Report) ([]byte, error) {
	var body bytes.Buffer
	if err := reportTemplate.Execute(&body, report); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: Event report: %s\r\n", sanitizeHeader(report.Name))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333333;">
  <h1>{{.Name}}</h1>
  <p>Event type: {{.EventType}}<br>
     Event date: {{.EventDate.Format "2006-01-02"}}<br>
     Staff: {{.Customers}}</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Item</th><th align="right">Quantity</th><th align="right">Cost</th></tr>
    {{- range .ItemizedExpenses}}
    <tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">{{.Cost.StringFixed 2}}</td></tr>
    {{- end}}
  </table>
  <p>Employee fees: {{.EmployeeFee.StringFixed 2}}<br>
     Total income: {{.TotalIncome.StringFixed 2}}<br>
     Total expense: {{.TotalExpense.StringFixed 2}}<br>
     <strong>Profit: {{.Profit.StringFixed 2}}</strong></p>
</body>
</html>
`))
