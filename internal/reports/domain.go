// internal/reports/domain.go
package reports

import (
	"time"

	"eventrental/internal/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseLine is one priced line item of a closed event.
type ExpenseLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// Report summarizes the finances of a closed event.
type Report struct {
	Name             string          `json:"name"`
	EventID          uuid.UUID       `json:"eventId"`
	EventType        events.Size     `json:"eventType"`
	EventDate        time.Time       `json:"eventDate"`
	Customers        int             `json:"customers"`
	CustomerEmail    string          `json:"customerEmail"`
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpense     decimal.Decimal `json:"totalExpense"`
	Profit           decimal.Decimal `json:"profit"`
	EmployeeFee      decimal.Decimal `json:"employeeFee"`
	ItemizedExpenses []ExpenseLine   `json:"itemizedExpenses"`
}

// Summary aggregates the events held in a period.
type Summary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalEvents  int             `json:"totalEvents"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Profit       decimal.Decimal `json:"profit"`
	Events       []events.Event  `json:"events"`
}

// MonthTotals is one month of a yearly report.
type MonthTotals struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// counted reports whether an event contributes to period totals.
func counted(status events.Status) bool {
	return status != events.StatusPlanning && status != events.StatusCancelled
}
