package events_test

import (
	"context"
	"testing"
	"time"

	"eventrental/internal/app/apptest"
	"eventrental/internal/apperr"
	"eventrental/internal/audit"
	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/returns"
	"eventrental/internal/store"
	"eventrental/internal/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConsolidatesDuplicateMaterial(t *testing.T) {
	h := apptest.New(t)
	chairs := h.Material(t, "Chairs", 20, 0)

	d := h.Event(t, 100,
		apptest.MaterialItem(chairs.ID, 3),
		apptest.MaterialItem(chairs.ID, 2),
	)

	require.Len(t, d.Items, 1)
	assert.Equal(t, 5, d.Items[0].Quantity)
	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 15, stock.Quantity)
	assert.Equal(t, 5, stock.Reserved)

	assert.Equal(t, events.StatusPlanning, d.Status)
	assert.True(t, d.EmployeeFee.Equal(decimal.NewFromInt(100)))
	require.Len(t, d.Staff, 1)
	assert.Equal(t, h.Worker.ID, d.Staff[0].WorkerID)
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	h := apptest.New(t)
	tables := h.Material(t, "Tables", 5, 0)
	tent := h.Rental(t, "Tent", 2, 300)

	_, err := h.Events.Create(context.Background(), h.Admin.ID, events.CreateInput{
		Name:  "Wedding",
		Date:  time.Now().Add(72 * time.Hour),
		Size:  events.SizeSmall,
		Staff: []events.StaffInput{{FullName: "New Hire", Fee: decimal.NewFromInt(10)}},
		Items: []events.LineItemInput{
			apptest.RentalItem(tent.ID, 1),
			apptest.MaterialItem(tables.ID, 6),
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), "Insufficient stock")

	assert.Equal(t, 5, h.Stock(t, inventory.MaterialRef(tables.ID)).Quantity)
	assert.Equal(t, 2, h.Stock(t, inventory.RentalRef(tent.ID)).Quantity, "earlier reservations roll back")

	list, err := h.Events.List(context.Background(), h.Admin.ID, events.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	workers, err := h.Users.ListUsers(context.Background(), h.Admin.ID, users.RoleWorker, store.Page{})
	require.NoError(t, err)
	assert.Len(t, workers, 1, "the new hire is not created")
}

func TestCreateRequiresAdmin(t *testing.T) {
	h := apptest.New(t)

	_, err := h.Events.Create(context.Background(), h.Worker.ID, events.CreateInput{
		Name: "Party", Date: time.Now(), Size: events.SizeSmall,
	})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = h.Events.Create(context.Background(), uuid.New(), events.CreateInput{
		Name: "Party", Date: time.Now(), Size: events.SizeSmall,
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateValidation(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	valid := events.CreateInput{Name: "Party", Date: time.Now(), Size: events.SizeSmall}

	cases := map[string]func(in *events.CreateInput){
		"missing name":   func(in *events.CreateInput) { in.Name = "  " },
		"missing date":   func(in *events.CreateInput) { in.Date = time.Time{} },
		"bad size":       func(in *events.CreateInput) { in.Size = "huge" },
		"negative cost":  func(in *events.CreateInput) { in.Cost = decimal.NewFromInt(-1) },
		"staff no name":  func(in *events.CreateInput) { in.Staff = []events.StaffInput{{}} },
		"negative fee":   func(in *events.CreateInput) { in.Staff = []events.StaffInput{{FullName: "A", Fee: decimal.NewFromInt(-5)}} },
		"staff listed twice": func(in *events.CreateInput) {
			in.Staff = []events.StaffInput{{WorkerID: &h.Worker.ID}, {WorkerID: &h.Worker.ID}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := h.Events.Create(ctx, h.Admin.ID, in)
			assert.True(t, apperr.Is(err, apperr.KindBadRequest), "got %v", err)
		})
	}
}

func TestCreateRejectsAdminAsStaff(t *testing.T) {
	h := apptest.New(t)

	_, err := h.Events.Create(context.Background(), h.Admin.ID, events.CreateInput{
		Name:  "Party",
		Date:  time.Now(),
		Size:  events.SizeSmall,
		Staff: []events.StaffInput{{WorkerID: &h.Admin.ID}},
	})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestCreateReturnableCustomItemGetsPseudoMaterial(t *testing.T) {
	h := apptest.New(t)

	d := h.Event(t, 50,
		apptest.CustomItem("Balloon arch", events.ItemReturnable, 80, 2),
		apptest.CustomItem("Cake", events.ItemNonReturnable, 40, 1),
	)
	require.Len(t, d.Items, 2)

	arch, ok := d.Items[0].Source.(events.CustomSource)
	require.True(t, ok)
	require.True(t, arch.PseudoMaterialID.Valid)
	stock := h.Stock(t, inventory.MaterialRef(arch.PseudoMaterialID.UUID))
	assert.Zero(t, stock.Quantity)
	assert.Equal(t, 2, stock.Reserved)

	cake := d.Items[1].Source.(events.CustomSource)
	assert.False(t, cake.PseudoMaterialID.Valid)
}

func TestCancelReleasesStockAndRemovesPseudoItems(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 5, 0)

	d := h.Event(t, 50,
		apptest.MaterialItem(chairs.ID, 4),
		apptest.CustomItem("Arch", events.ItemReturnable, 80, 1),
	)
	assert.Equal(t, 1, h.Stock(t, inventory.MaterialRef(chairs.ID)).Quantity)
	pseudo := d.Items[1].Source.(events.CustomSource).PseudoMaterialID.UUID

	e, err := h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, events.StatusCancelled, e.Status)

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 5, stock.Quantity)
	assert.Zero(t, stock.Reserved)

	_, err = h.Mem.Inventory().GetMaterial(ctx, pseudo)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	history, err := h.Events.History(ctx, h.Admin.ID, d.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, audit.ActionStatusChange, last.Action)
}

func TestUpdateStatusTransitions(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	d := h.Event(t, 10)

	_, err := h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusClosed)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest), "closing is reserved for returns")

	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusPlanning)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusOngoing)
	require.NoError(t, err)
	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusDone)
	require.NoError(t, err)

	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusCancelled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from done to cancelled")

	_, err = h.Events.UpdateStatus(ctx, h.Worker.ID, d.ID, events.StatusDone)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, uuid.New(), events.StatusDone)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdatePatchesFieldsAndAddsStaffAndItems(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	tent := h.Rental(t, "Tent", 3, 250)
	d := h.Event(t, 100, apptest.MaterialItem(chairs.ID, 2))

	name := "Winter gala"
	got, err := h.Events.Update(ctx, h.Admin.ID, d.ID, events.Patch{
		Name:  &name,
		Staff: []events.StaffInput{{FullName: "Temp Helper", Fee: decimal.NewFromInt(60)}},
		Items: []events.LineItemInput{apptest.RentalItem(tent.ID, 2)},
	})
	require.NoError(t, err)

	assert.Equal(t, "Winter gala", got.Name)
	assert.True(t, got.EmployeeFee.Equal(decimal.NewFromInt(160)))
	assert.Len(t, got.Staff, 2)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 1, h.Stock(t, inventory.RentalRef(tent.ID)).Quantity)

	history, err := h.Events.History(ctx, h.Admin.ID, d.ID)
	require.NoError(t, err)
	actions := make([]audit.Action, 0, len(history))
	for _, m := range history {
		actions = append(actions, m.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionAddEmployee, audit.ActionAddItem}, actions)
}

func TestUpdateRejectsDuplicates(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.Event(t, 100, apptest.MaterialItem(chairs.ID, 2))

	_, err := h.Events.Update(ctx, h.Admin.ID, d.ID, events.Patch{
		Items: []events.LineItemInput{apptest.MaterialItem(chairs.ID, 1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already attached")
	assert.Equal(t, 8, h.Stock(t, inventory.MaterialRef(chairs.ID)).Quantity)

	_, err = h.Events.Update(ctx, h.Admin.ID, d.ID, events.Patch{
		Staff: []events.StaffInput{{WorkerID: &h.Worker.ID, Fee: decimal.NewFromInt(5)}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already assigned")
}

func TestUpdateRejectsItemsAfterDoneAndAnyChangeOnceTerminal(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 100)

	_, err := h.Events.Update(ctx, h.Admin.ID, d.ID, events.Patch{
		Items: []events.LineItemInput{apptest.MaterialItem(chairs.ID, 1)},
	})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	address := "2 Harbour Road"
	_, err = h.Events.Update(ctx, h.Admin.ID, d.ID, events.Patch{Address: &address})
	require.NoError(t, err, "fields stay editable while done")

	c := h.Event(t, 10)
	_, err = h.Events.UpdateStatus(ctx, h.Admin.ID, c.ID, events.StatusCancelled)
	require.NoError(t, err)
	_, err = h.Events.Update(ctx, h.Admin.ID, c.ID, events.Patch{Address: &address})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestDeleteRemovesEventAndKeepsHistory(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	d := h.Event(t, 10, apptest.CustomItem("Cake", events.ItemNonReturnable, 20, 1))

	require.NoError(t, h.Events.Delete(ctx, h.Admin.ID, d.ID))

	_, err := h.Events.Get(ctx, h.Admin.ID, d.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	history, err := h.Events.History(ctx, h.Admin.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionDelete, history[len(history)-1].Action)

	assert.True(t, apperr.Is(h.Events.Delete(ctx, h.Admin.ID, d.ID), apperr.KindNotFound))
}

func TestDeleteGivesBackReservedStock(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)

	d := h.Event(t, 10,
		apptest.MaterialItem(chairs.ID, 4),
		apptest.CustomItem("Vase", events.ItemReturnable, 15, 2),
	)
	pseudo := d.Items[1].Source.(events.CustomSource).PseudoMaterialID.UUID

	require.NoError(t, h.Events.Delete(ctx, h.Admin.ID, d.ID))

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 10, stock.Quantity)
	assert.Zero(t, stock.Reserved)

	_, err := h.Mem.Inventory().GetMaterial(ctx, pseudo)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, h.Inventory.DeleteMaterial(ctx, h.Admin.ID, chairs.ID))
}

func TestDeleteDoneEventReleasesOnlyOutstandingUnits(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.DoneEvent(t, 10, apptest.MaterialItem(chairs.ID, 4))

	_, err := h.Returns.CreateReturn(ctx, h.Admin.ID, d.ID, []returns.ReturnItem{
		{LineItemID: d.Items[0].ID, ReturnedQuantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, h.Stock(t, inventory.MaterialRef(chairs.ID)).Reserved)

	require.NoError(t, h.Events.Delete(ctx, h.Admin.ID, d.ID))

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 10, stock.Quantity)
	assert.Zero(t, stock.Reserved)

	history, err := h.Events.History(ctx, h.Admin.ID, d.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, audit.ActionDelete, last.Action)
}

func TestDeleteCancelledEventReleasesNothingTwice(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	d := h.Event(t, 10, apptest.MaterialItem(chairs.ID, 4))

	_, err := h.Events.UpdateStatus(ctx, h.Admin.ID, d.ID, events.StatusCancelled)
	require.NoError(t, err)
	require.NoError(t, h.Events.Delete(ctx, h.Admin.ID, d.ID))

	stock := h.Stock(t, inventory.MaterialRef(chairs.ID))
	assert.Equal(t, 10, stock.Quantity)
	assert.Zero(t, stock.Reserved)
}

func TestInactiveWorkerCannotBeStaffed(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()

	retired, err := h.Users.CreateUser(ctx, h.Admin.ID, users.CreateUserInput{FullName: "Rita Retired", Role: users.RoleWorker})
	require.NoError(t, err)
	_, err = h.Users.InactivateWorker(ctx, h.Admin.ID, retired.ID)
	require.NoError(t, err)

	d := h.Event(t, 10)
	_, err = h.Events.Update(ctx, h.Admin.ID, d.ID, events.Patch{
		Staff: []events.StaffInput{{WorkerID: &retired.ID, Fee: decimal.NewFromInt(20)}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Contains(t, err.Error(), "inactive")

	got, err := h.Events.Get(ctx, h.Admin.ID, d.ID)
	require.NoError(t, err)
	assert.Len(t, got.Staff, 1)
}

func TestReads(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	chairs := h.Material(t, "Chairs", 10, 0)
	first := h.Event(t, 10, apptest.MaterialItem(chairs.ID, 1))
	second := h.DoneEvent(t, 10)

	got, err := h.Events.Get(ctx, h.Worker.ID, first.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	done, err := h.Events.List(ctx, h.Worker.ID, events.ListFilter{Status: events.StatusDone})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, second.ID, done[0].ID)

	_, err = h.Events.List(ctx, h.Worker.ID, events.ListFilter{Status: "archived"})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	staffed, err := h.Events.ListByWorker(ctx, h.Admin.ID, h.Worker.ID, store.Page{})
	require.NoError(t, err)
	assert.Len(t, staffed, 2)

	_, err = h.Events.ListByWorker(ctx, h.Admin.ID, h.Admin.ID, store.Page{})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	lines, err := h.Events.ListLineItems(ctx, h.Admin.ID, store.Page{})
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	_, err = h.Events.ListLineItems(ctx, h.Worker.ID, store.Page{})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = h.Events.History(ctx, h.Admin.ID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
