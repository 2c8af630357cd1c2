package events

import (
	"testing"

	"eventrental/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestConsolidateMergesSameMaterial(t *testing.T) {
	chairs := uuid.New()

	got, err := Consolidate([]LineItemInput{
		{MaterialID: &chairs, Quantity: 3},
		{MaterialID: &chairs, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, MaterialSource{MaterialID: chairs}, got[0].Source)
	assert.Equal(t, 5, got[0].Quantity)
}

func TestConsolidateKeepsDistinctSources(t *testing.T) {
	id := uuid.New()
	price := decimal.NewFromInt(12)
	otherPrice := decimal.NewFromInt(13)

	got, err := Consolidate([]LineItemInput{
		{RentalMaterialID: &id, Quantity: 1},
		{MaterialID: &id, Quantity: 1},
		{Names: "Flowers", Type: ItemNonReturnable, Price: &price, Quantity: 4},
		{Names: "Flowers", Type: ItemNonReturnable, Price: &otherPrice, Quantity: 1},
		{Names: "Flowers", Type: ItemReturnable, Price: &price, Quantity: 1},
		{Names: "Flowers", Type: ItemNonReturnable, Price: &price, Quantity: 6},
	})
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.IsType(t, RentalSource{}, got[0].Source, "first-seen order is kept")
	assert.IsType(t, MaterialSource{}, got[1].Source)
	assert.Equal(t, 10, got[2].Quantity)
}

func TestConsolidateRejectsInvalidItems(t *testing.T) {
	id := uuid.New()
	price := decimal.NewFromInt(5)
	negative := decimal.NewFromInt(-1)

	cases := map[string]LineItemInput{
		"both references":      {MaterialID: &id, RentalMaterialID: &id, Quantity: 1},
		"reference and custom": {MaterialID: &id, Names: "x", Quantity: 1},
		"custom without price": {Names: "Cake", Type: ItemNonReturnable, Quantity: 1},
		"custom without type":  {Names: "Cake", Price: &price, Quantity: 1},
		"negative price":       {Names: "Cake", Type: ItemReturnable, Price: &negative, Quantity: 1},
		"zero quantity":        {MaterialID: &id},
		"negative quantity":    {RentalMaterialID: &id, Quantity: -2},
		"empty":                {Quantity: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Consolidate([]LineItemInput{in})
			assert.True(t, apperr.Is(err, apperr.KindBadRequest), "got %v", err)
		})
	}
}

func TestConsolidatePreservesTotals(t *testing.T) {
	pool := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		inputs := make([]LineItemInput, 0, n)
		want := map[string]int{}
		for i := 0; i < n; i++ {
			id := pool[rapid.IntRange(0, len(pool)-1).Draw(t, "id")]
			qty := rapid.IntRange(1, 100).Draw(t, "qty")
			in := LineItemInput{Quantity: qty}
			if rapid.Bool().Draw(t, "rental") {
				in.RentalMaterialID = &id
				want[RentalSource{RentalID: id}.Key()] += qty
			} else {
				in.MaterialID = &id
				want[MaterialSource{MaterialID: id}.Key()] += qty
			}
			inputs = append(inputs, in)
		}

		got, err := Consolidate(inputs)
		if err != nil {
			t.Fatalf("consolidate: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("got %d entries, want %d", len(got), len(want))
		}
		for _, item := range got {
			if item.Quantity != want[item.Source.Key()] {
				t.Fatalf("%s: got %d, want %d", item.Source.Key(), item.Quantity, want[item.Source.Key()])
			}
		}
	})
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPlanning.CanTransition(StatusOngoing))
	assert.True(t, StatusOngoing.CanTransition(StatusCancelled))
	assert.True(t, StatusDone.CanTransition(StatusClosed))
	assert.False(t, StatusDone.CanTransition(StatusCancelled))
	assert.False(t, StatusClosed.CanTransition(StatusDone))
	assert.False(t, StatusCancelled.CanTransition(StatusPlanning))
	assert.True(t, StatusClosed.Terminal())
	assert.False(t, StatusDone.Terminal())
}

func TestLineItemReturnableAndStockRef(t *testing.T) {
	pseudo := uuid.New()

	custom := LineItem{Source: CustomSource{Names: "Arch", Type: ItemReturnable, PseudoMaterialID: uuid.NullUUID{UUID: pseudo, Valid: true}}}
	ref, ok := custom.StockRef()
	assert.True(t, ok)
	assert.Equal(t, pseudo, ref.ID)
	assert.True(t, custom.Returnable())

	consumable := LineItem{Source: CustomSource{Names: "Cake", Type: ItemNonReturnable}}
	_, ok = consumable.StockRef()
	assert.False(t, ok)
	assert.False(t, consumable.Returnable())
}
