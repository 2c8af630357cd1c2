package returns_test

import (
	"context"
	"errors"
	"testing"

	"eventrental/internal/app/apptest"
	"eventrental/internal/apperr"
	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/returns"
	"eventrental/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func returnOf(li events.LineItem, qty int) []returns.ReturnItem {
	return []returns.ReturnItem{{LineItemID: li.ID, ReturnedQuantity: qty}}
}

func TestPartialThenFullReturnClosesEvent(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 10))
	line := d.Items[0]

	first, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(line, 6))
	require.NoError(t, err)
	require.Len(t, first.Returns, 1)
	assert.Equal(t, 6, first.Returns[0].ReturnedQuantity)
	assert.Equal(t, 4, first.Returns[0].RemainingQuantity)
	assert.Equal(t, returns.StatusIncomplete, first.Returns[0].Status)
	assert.False(t, first.Closed)
	assert.Equal(t, events.StatusDone, first.Event.Status)
	assert.Equal(t, 6, h.Stock(t, inventory.MaterialRef(chairs.ID)).Quantity)

	second, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(line, 4))
	require.NoError(t, err)
	rec := second.Returns[0]
	assert.Equal(t, first.Returns[0].ID, rec.ID, "the same record accumulates")
	assert.Equal(t, 10, rec.ReturnedQuantity)
	assert.Zero(t, rec.RemainingQuantity)
	assert.Equal(t, returns.StatusComplete, rec.Status)
	assert.True(t, second.Closed)
	assert.Equal(t, events.StatusClosed, second.Event.Status)

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 10, stock.Quantity)
	assert.Zero(t, stock.Reserved)

	require.NotNil(t, second.Report)
	assert.Equal(t, d.ID, second.Report.EventID)
	sent := h.Outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{apptest.AdminEmail}, sent[0].To)
	assert.Contains(t, string(sent[0].Body), "Summer gala")

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(line, 1))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestCreateReturnRejectsOverReturn(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 5))
	line := d.Items[0]

	_, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(line, 6))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Requested: 6, Borrowed: 5")

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(line, 3))
	require.NoError(t, err)
	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(line, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Total returned would be: 6, Original: 5")

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 8, stock.Quantity)
	assert.Equal(t, 2, stock.Reserved)
}

func TestCreateReturnPreconditions(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)

	planning := h.Event(t, 100, apptest.MaterialItem(chairs.ID, 1))
	_, err := h.Returns.CreateReturn(ctx, h.Admin.ID, planning.ID, returnOf(planning.Items[0], 1))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), "completed events")

	unpaid := h.DoneEvent(t, 0, apptest.MaterialItem(chairs.ID, 1))
	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, unpaid.ID, returnOf(unpaid.Items[0], 1))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	done := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 1))
	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, done.ID, returnOf(planning.Items[0], 1))
	assert.True(t, apperr.Is(err, apperr.KindBadRequest), "line of another event")

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, done.ID, returnOf(done.Items[0], 0))
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, done.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = h.Returns.CreateReturn(ctx, h.Worker.ID, done.ID, returnOf(done.Items[0], 1))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, uuid.New(), returnOf(done.Items[0], 1))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestNonReturnableItemsAreSkippedAndDoNotBlockClosure(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	tent := h.Rental(t, "Tent", 3, 250)
	d := h.DoneEvent(t, 100,
		apptest.RentalItem(tent.ID, 2),
		apptest.CustomItem("Cake", events.ItemNonReturnable, 40, 1),
	)

	res, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, []returns.ReturnItem{
		{LineItemID: d.Items[1].ID, ReturnedQuantity: 1},
		{LineItemID: d.Items[0].ID, ReturnedQuantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, res.Returns, 1)
	assert.Equal(t, inventory.KindRental, res.Returns[0].ItemKind)
	assert.True(t, res.Closed)
	assert.Equal(t, 3, h.Stock(t, inventory.RentalRef(tent.ID)).Quantity)

	require.NotNil(t, res.Report)
	assert.True(t, res.Report.TotalExpense.Equal(decimal.NewFromInt(640)))
	assert.True(t, res.Report.Profit.Equal(decimal.NewFromInt(4360)))
}

func TestReturnableCustomItemReturnsToPseudoMaterial(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	d := h.DoneEvent(t, 100, apptest.CustomItem("Balloon arch", events.ItemReturnable, 80, 2))
	pseudo := d.Items[0].Source.(events.CustomSource).PseudoMaterialID.UUID

	res, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(d.Items[0], 2))
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.Equal(t, pseudo, res.Returns[0].ItemID)

	stock := h.Stock(t, inventory.MaterialRef(pseudo))
	assert.Equal(t, 2, stock.Quantity)
	assert.Zero(t, stock.Reserved)
}

func TestUpdateReturnPullBackNeedsStockAndReopens(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 10))

	res, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(d.Items[0], 10))
	require.NoError(t, err)
	require.True(t, res.Closed)
	rec := res.Returns[0]

	other := h.Event(t, 10, apptest.MaterialItem(chairs.ID, 8))
	correction := []returns.CorrectionItem{{ReturnID: rec.ID, ReturnedQuantity: 7}}

	_, err = h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, correction)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), "Cannot pull back 3 units")

	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, other.ID, events.StatusCancelled)
	require.NoError(t, err)

	updated, err := h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, correction)
	require.NoError(t, err)
	got := updated.Returns[0]
	assert.Equal(t, 7, got.ReturnedQuantity)
	assert.Equal(t, 3, got.RemainingQuantity)
	assert.Equal(t, returns.StatusIncomplete, got.Status)
	assert.False(t, updated.Closed)
	assert.Equal(t, events.StatusDone, updated.Event.Status, "the event reopens")

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 7, stock.Quantity)
	assert.Equal(t, 3, stock.Reserved)

	again, err := h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, []returns.CorrectionItem{{ReturnID: rec.ID, ReturnedQuantity: 10}})
	require.NoError(t, err)
	assert.True(t, again.Closed)
	assert.Len(t, h.Outbox.Sent(), 2, "each closure mails a report")
}

func TestUpdateReturnValidation(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 4))
	other := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 1))

	res, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(d.Items[0], 2))
	require.NoError(t, err)
	rec := res.Returns[0]

	_, err = h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, []returns.CorrectionItem{{ReturnID: rec.ID, ReturnedQuantity: 5}})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, []returns.CorrectionItem{{ReturnID: rec.ID, ReturnedQuantity: -1}})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = h.Returns.UpdateReturn(ctx, h.Admin.ID, other.ID, []returns.CorrectionItem{{ReturnID: rec.ID, ReturnedQuantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest), "record of another event")

	_, err = h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, []returns.CorrectionItem{{ReturnID: uuid.New(), ReturnedQuantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	unchanged, err := h.Returns.UpdateReturn(ctx, h.Admin.ID, d.ID, []returns.CorrectionItem{{ReturnID: rec.ID, ReturnedQuantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Returns[0].RemainingQuantity)
	assert.Equal(t, 7, h.Stock(t, inventory.MaterialRef(chairs.ID)).Quantity)
}

func TestClosureSurvivesMailFailure(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 3, 0)
	d := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 3))
	h.Outbox.FailWith(errors.New("connection refused"))

	res, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(d.Items[0], 3))
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.NotNil(t, res.Report)
	assert.Empty(t, h.Outbox.Sent())
}

func TestListReturns(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 100, apptest.MaterialItem(chairs.ID, 4))

	_, err := h.Returns.ListByEvent(ctx, h.Admin.ID, d.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, returnOf(d.Items[0], 1))
	require.NoError(t, err)

	byEvent, err := h.Returns.ListByEvent(ctx, h.Worker.ID, d.ID)
	require.NoError(t, err)
	assert.Len(t, byEvent, 1)

	incomplete, err := h.Returns.List(ctx, h.Admin.ID, returns.StatusIncomplete, store.Page{})
	require.NoError(t, err)
	assert.Len(t, incomplete, 1)

	complete, err := h.Returns.List(ctx, h.Admin.ID, returns.StatusComplete, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, complete)

	_, err = h.Returns.List(ctx, h.Admin.ID, "lost", store.Page{})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}
