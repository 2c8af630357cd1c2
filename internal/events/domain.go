// internal/events/domain.go
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"eventrental/internal/apperr"
	"eventrental/internal/inventory"
	"eventrental/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an event.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusOngoing   Status = "ongoing"
	StatusDone      Status = "done"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPlanning: {StatusOngoing, StatusDone, StatusCancelled},
	StatusOngoing:  {StatusDone, StatusCancelled},
	StatusDone:     {StatusClosed},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusOngoing, StatusDone, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

type Size string

const (
	SizeSmall Size = "small"
	SizeBig   Size = "big"
)

func (s Size) Valid() bool {
	return s == SizeSmall || s == SizeBig
}

// Event is a booked occasion that consumes inventory and staff.
type Event struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Date        time.Time       `json:"date" db:"event_date"`
	Address     string          `json:"address" db:"address"`
	Size        Size            `json:"size" db:"size"`
	Cost        decimal.Decimal `json:"cost" db:"cost"`
	EmployeeFee decimal.Decimal `json:"employeeFee" db:"employee_fee"`
	Status      Status          `json:"status" db:"status"`
	CreatedBy   uuid.UUID       `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// ItemType says whether a custom item comes back after the event.
type ItemType string

const (
	ItemReturnable    ItemType = "returnable"
	ItemNonReturnable ItemType = "non-returnable"
)

func (t ItemType) Valid() bool {
	return t == ItemReturnable || t == ItemNonReturnable
}

// Source is what a line item draws from: exactly one of MaterialSource,
// RentalSource or CustomSource.
type Source interface {
	// Key groups requests for the same thing during consolidation.
	Key() string
	isSource()
}

type MaterialSource struct {
	MaterialID uuid.UUID
}

type RentalSource struct {
	RentalID uuid.UUID
}

// CustomSource is an ad-hoc item. Returnable custom items are backed by a
// pseudo-material created for the line.
type CustomSource struct {
	Names            string
	Type             ItemType
	Price            decimal.Decimal
	PseudoMaterialID uuid.NullUUID
}

func (s MaterialSource) Key() string { return "material-" + s.MaterialID.String() }
func (s RentalSource) Key() string   { return "rental-" + s.RentalID.String() }
func (s CustomSource) Key() string {
	return fmt.Sprintf("custom-%s-%s-%s", s.Names, s.Type, s.Price.String())
}

func (MaterialSource) isSource() {}
func (RentalSource) isSource()   {}
func (CustomSource) isSource()   {}

// LineItem is a quantity of one source reserved for an event. Quantity
// never changes after creation.
type LineItem struct {
	ID        uuid.UUID
	EventID   uuid.UUID
	Quantity  int
	Source    Source
	CreatedAt time.Time
}

// Returnable reports whether the units have to come back before the event
// can close.
func (li LineItem) Returnable() bool {
	switch src := li.Source.(type) {
	case MaterialSource, RentalSource:
		return true
	case CustomSource:
		return src.Type == ItemReturnable
	}
	return false
}

// StockRef returns the inventory row the line reserved from, if any.
func (li LineItem) StockRef() (inventory.Ref, bool) {
	switch src := li.Source.(type) {
	case MaterialSource:
		return inventory.MaterialRef(src.MaterialID), true
	case RentalSource:
		return inventory.RentalRef(src.RentalID), true
	case CustomSource:
		if src.PseudoMaterialID.Valid {
			return inventory.MaterialRef(src.PseudoMaterialID.UUID), true
		}
	}
	return inventory.Ref{}, false
}

type lineItemJSON struct {
	ID               uuid.UUID        `json:"id"`
	EventID          uuid.UUID        `json:"eventId"`
	Quantity         int              `json:"quantity"`
	Kind             string           `json:"kind"`
	MaterialID       *uuid.UUID       `json:"materialId,omitempty"`
	RentalMaterialID *uuid.UUID       `json:"rentalMaterialId,omitempty"`
	Names            string           `json:"names,omitempty"`
	Type             ItemType         `json:"type,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	PseudoMaterialID *uuid.UUID       `json:"pseudoMaterialId,omitempty"`
	Returnable       bool             `json:"returnable"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	out := lineItemJSON{
		ID:         li.ID,
		EventID:    li.EventID,
		Quantity:   li.Quantity,
		Returnable: li.Returnable(),
		CreatedAt:  li.CreatedAt,
	}
	switch src := li.Source.(type) {
	case MaterialSource:
		out.Kind = "material"
		out.MaterialID = &src.MaterialID
	case RentalSource:
		out.Kind = "rental"
		out.RentalMaterialID = &src.RentalID
	case CustomSource:
		out.Kind = "custom"
		out.Names = src.Names
		out.Type = src.Type
		out.Price = &src.Price
		if src.PseudoMaterialID.Valid {
			out.PseudoMaterialID = &src.PseudoMaterialID.UUID
		}
	}
	return json.Marshal(out)
}

// LineItemInput is one requested item. Either a material id, a rental
// material id, or the custom fields are set.
type LineItemInput struct {
	MaterialID       *uuid.UUID       `json:"materialId"`
	RentalMaterialID *uuid.UUID       `json:"rentalMaterialId"`
	Names            string           `json:"names"`
	Type             ItemType         `json:"type"`
	Price            *decimal.Decimal `json:"price"`
	Quantity         int              `json:"quantity"`
}

// Source validates the input and returns its single active source.
func (in LineItemInput) Source() (Source, error) {
	hasCustom := strings.TrimSpace(in.Names) != "" || in.Type != "" || in.Price != nil
	switch {
	case in.MaterialID != nil && in.RentalMaterialID != nil:
		return nil, apperr.BadRequest("An item cannot reference both a material and a rental material")
	case (in.MaterialID != nil || in.RentalMaterialID != nil) && hasCustom:
		return nil, apperr.BadRequest("An item referencing inventory cannot also carry names, type or price")
	case in.MaterialID != nil:
		return MaterialSource{MaterialID: *in.MaterialID}, nil
	case in.RentalMaterialID != nil:
		return RentalSource{RentalID: *in.RentalMaterialID}, nil
	}

	names := strings.TrimSpace(in.Names)
	if names == "" || in.Price == nil || !in.Type.Valid() {
		return nil, apperr.BadRequest("Custom items must have names, price, quantity and type")
	}
	if in.Price.IsNegative() {
		return nil, apperr.BadRequest("Custom item %s has a negative price", names)
	}
	return CustomSource{Names: names, Type: in.Type, Price: *in.Price}, nil
}

// Assignment staffs a worker on an event for a fee.
type Assignment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	EventID   uuid.UUID       `json:"eventId" db:"event_id"`
	WorkerID  uuid.UUID       `json:"userId" db:"worker_id"`
	Fee       decimal.Decimal `json:"fee" db:"fee"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// StaffInput names an existing worker by id or a new one by full name.
type StaffInput struct {
	WorkerID *uuid.UUID      `json:"userId"`
	FullName string          `json:"fullName"`
	Fee      decimal.Decimal `json:"fee"`
}

func (in StaffInput) validate() error {
	hasName := strings.TrimSpace(in.FullName) != ""
	if in.WorkerID != nil && hasName {
		return apperr.BadRequest("Provide either userId or fullName for an employee, not both")
	}
	if in.WorkerID == nil && !hasName {
		return apperr.BadRequest("Each employee needs a userId or a fullName")
	}
	if in.Fee.IsNegative() {
		return apperr.BadRequest("Employee fee cannot be negative")
	}
	return nil
}

// CreateInput describes a new event.
type CreateInput struct {
	Name    string          `json:"name"`
	Date    time.Time       `json:"date"`
	Address string          `json:"address"`
	Size    Size            `json:"size"`
	Cost    decimal.Decimal `json:"cost"`
	Staff   []StaffInput    `json:"employees"`
	Items   []LineItemInput `json:"items"`
}

// Patch updates fields and appends staff and items.
type Patch struct {
	Name    *string          `json:"name"`
	Date    *time.Time       `json:"date"`
	Address *string          `json:"address"`
	Cost    *decimal.Decimal `json:"cost"`
	Size    *Size            `json:"size"`
	Staff   []StaffInput     `json:"employees"`
	Items   []LineItemInput  `json:"items"`
}

// Details is an event with its line items and staff.
type Details struct {
	Event
	Items []LineItem   `json:"items"`
	Staff []Assignment `json:"employees"`
}

// ListFilter narrows event listings.
type ListFilter struct {
	Status Status
	From   *time.Time
	To     *time.Time
	Page   store.Page
}
