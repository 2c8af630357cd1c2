// internal/returns/domain.go
package returns

import (
	"time"

	"eventrental/internal/events"
	"eventrental/internal/inventory"
	"eventrental/internal/reports"

	"github.com/google/uuid"
)

// Status says whether a line item came back in full.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete"
)

func (s Status) Valid() bool {
	return s == StatusComplete || s == StatusIncomplete
}

// Return tracks how much of one line item has come back.
type Return struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	EventID           uuid.UUID      `json:"eventId" db:"event_id"`
	LineItemID        uuid.UUID      `json:"eventItemId" db:"line_item_id"`
	ItemKind          inventory.Kind `json:"itemKind" db:"item_kind"`
	ItemID            uuid.UUID      `json:"itemId" db:"item_id"`
	ReturnedQuantity  int            `json:"returnedQuantity" db:"returned_quantity"`
	RemainingQuantity int            `json:"remainingQuantity" db:"remaining_quantity"`
	Status            Status         `json:"status" db:"status"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
}

// Item is the stock row the returned units go back to.
func (r *Return) Item() inventory.Ref {
	return inventory.Ref{Kind: r.ItemKind, ID: r.ItemID}
}

// set records a new cumulative returned quantity for a line of lineQty units.
func (r *Return) set(returned, lineQty int) {
	r.ReturnedQuantity = returned
	r.RemainingQuantity = lineQty - returned
	r.Status = StatusIncomplete
	if r.RemainingQuantity == 0 {
		r.Status = StatusComplete
	}
	r.UpdatedAt = time.Now().UTC()
}

func newReturn(eventID uuid.UUID, li events.LineItem, ref inventory.Ref) *Return {
	now := time.Now().UTC()
	return &Return{
		ID:                uuid.New(),
		EventID:           eventID,
		LineItemID:        li.ID,
		ItemKind:          ref.Kind,
		ItemID:            ref.ID,
		RemainingQuantity: li.Quantity,
		Status:            StatusIncomplete,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ReturnItem reports units of a line item coming back.
type ReturnItem struct {
	LineItemID       uuid.UUID `json:"eventItemId"`
	ReturnedQuantity int       `json:"returnedQuantity"`
}

// CorrectionItem overwrites the cumulative returned quantity of a record.
type CorrectionItem struct {
	ReturnID         uuid.UUID `json:"returnId"`
	ReturnedQuantity int       `json:"returnedQuantity"`
}

// Result is the outcome of a returns call.
type Result struct {
	Event   events.Event    `json:"event"`
	Returns []Return        `json:"returns"`
	Closed  bool            `json:"closed"`
	Report  *reports.Report `json:"report,omitempty"`
}
