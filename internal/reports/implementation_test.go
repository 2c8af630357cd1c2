package reports_test

import (
	"context"
	"testing"
	"time"

	"eventrental/internal/app/apptest"
	"eventrental/internal/apperr"
	"eventrental/internal/events"
	"eventrental/internal/returns"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventReportItemizesCosts(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 5)
	tent := h.Rental(t, "Tent", 2, 300)
	d := h.DoneEvent(t, 150,
		apptest.MaterialItem(chairs.ID, 4),
		apptest.RentalItem(tent.ID, 1),
		apptest.CustomItem("Flowers", events.ItemNonReturnable, 25, 4),
	)

	_, err := h.Reports.EventReport(ctx, h.Admin.ID, d.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Event is not closed")

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, []returns.ReturnItem{
		{LineItemID: d.Items[0].ID, ReturnedQuantity: 4},
		{LineItemID: d.Items[1].ID, ReturnedQuantity: 1},
	})
	require.NoError(t, err)

	report, err := h.Reports.EventReport(ctx, h.Admin.ID, d.ID)
	require.NoError(t, err)

	assert.Equal(t, "Summer gala", report.Name)
	assert.Equal(t, events.SizeBig, report.EventType)
	assert.Equal(t, 1, report.Customers)
	assert.Equal(t, apptest.AdminEmail, report.CustomerEmail)
	require.Len(t, report.ItemizedExpenses, 2, "owned materials cost nothing")
	assert.Equal(t, "Tent", report.ItemizedExpenses[0].Name)
	assert.True(t, report.ItemizedExpenses[0].Cost.Equal(decimal.NewFromInt(300)))
	assert.True(t, report.ItemizedExpenses[1].Cost.Equal(decimal.NewFromInt(100)))
	assert.True(t, report.EmployeeFee.Equal(decimal.NewFromInt(150)))
	assert.True(t, report.TotalIncome.Equal(decimal.NewFromInt(5000)))
	assert.True(t, report.TotalExpense.Equal(decimal.NewFromInt(550)))
	assert.True(t, report.Profit.Equal(decimal.NewFromInt(4450)))

	_, err = h.Reports.EventReport(ctx, h.Worker.ID, d.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestPeriodReportsSkipPlanningAndCancelled(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	tent := h.Rental(t, "Tent", 5, 100)

	h.DoneEvent(t, 200, apptest.RentalItem(tent.ID, 2))
	h.Event(t, 999)
	cancelled := h.Event(t, 999)
	_, err := h.Events.UpdateStatus(ctx, h.Admin.ID, cancelled.ID, events.StatusCancelled)
	require.NoError(t, err)

	monthly, err := h.Reports.Monthly(ctx, h.Admin.ID, 2026, time.June)
	require.NoError(t, err)
	assert.Equal(t, 1, monthly.TotalEvents)
	assert.True(t, monthly.TotalIncome.Equal(decimal.NewFromInt(5000)))
	assert.True(t, monthly.TotalExpense.Equal(decimal.NewFromInt(400)))
	assert.True(t, monthly.Profit.Equal(decimal.NewFromInt(4600)))

	empty, err := h.Reports.Monthly(ctx, h.Admin.ID, 2026, time.July)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalEvents)
	assert.True(t, empty.Profit.IsZero())

	yearly, err := h.Reports.Yearly(ctx, h.Admin.ID, 2026)
	require.NoError(t, err)
	require.Len(t, yearly, 12)
	assert.Equal(t, "june", yearly[5].Month)
	assert.True(t, yearly[5].Income.Equal(decimal.NewFromInt(5000)))
	assert.True(t, yearly[0].Income.IsZero())

	ranged, err := h.Reports.DateRange(ctx, h.Admin.ID,
		time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.June, 13, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, ranged.TotalEvents)
}

func TestPeriodReportValidation(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()

	_, err := h.Reports.Monthly(ctx, h.Admin.ID, 2026, 13)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	now := time.Now()
	_, err = h.Reports.DateRange(ctx, h.Admin.ID, now, now.Add(-time.Hour))
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = h.Reports.Yearly(ctx, h.Worker.ID, 2026)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
