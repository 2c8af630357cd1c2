// internal/inventory/domain.go
package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind distinguishes the two stock pools.
type Kind string

const (
	KindMaterial Kind = "material"
	KindRental   Kind = "rental"
)

// Label is the human name used in error messages.
func (k Kind) Label() string {
	if k == KindRental {
		return "rental material"
	}
	return "material"
}

// Ref points at one stock row in either pool.
type Ref struct {
	Kind Kind      `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func MaterialRef(id uuid.UUID) Ref { return Ref{Kind: KindMaterial, ID: id} }
func RentalRef(id uuid.UUID) Ref   { return Ref{Kind: KindRental, ID: id} }

func (r Ref) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// Stock is the ledger view of an inventory row: Quantity is what can still
// be reserved, Reserved is what open events hold.
type Stock struct {
	Ref
	Name     string
	Quantity int
	Reserved int
	Active   bool
}

type RentalStatus string

const (
	RentalActive   RentalStatus = "active"
	RentalInactive RentalStatus = "inactive"
)

type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Material is owned inventory. Ad-hoc materials back a single returnable
// custom line item and are hidden from listings.
type Material struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	Name        string              `json:"name" db:"name"`
	CategoryID  uuid.NullUUID       `json:"categoryId" db:"category_id"`
	Quantity    int                 `json:"quantity" db:"quantity"`
	Reserved    int                 `json:"reserved" db:"reserved"`
	Price       decimal.NullDecimal `json:"price" db:"price"`
	RentalPrice decimal.NullDecimal `json:"rentalPrice" db:"rental_price"`
	AdHoc       bool                `json:"adHoc" db:"ad_hoc"`
	CreatedAt   time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time           `json:"updatedAt" db:"updated_at"`
}

// RentalMaterial is inventory rented from a vendor.
type RentalMaterial struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	CategoryID    uuid.NullUUID   `json:"categoryId" db:"category_id"`
	Quantity      int             `json:"quantity" db:"quantity"`
	Reserved      int             `json:"reserved" db:"reserved"`
	RentingCost   decimal.Decimal `json:"rentingCost" db:"renting_cost"`
	VendorName    string          `json:"vendorName" db:"vendor_name"`
	VendorContact string          `json:"vendorContact" db:"vendor_contact"`
	RentalDate    *time.Time      `json:"rentalDate,omitempty" db:"rental_date"`
	ReturnDate    *time.Time      `json:"returnDate,omitempty" db:"return_date"`
	Status        RentalStatus    `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// MaterialInput creates or patches a material. Nil fields are left alone
// on update.
type MaterialInput struct {
	Name        *string          `json:"name"`
	CategoryID  *uuid.UUID       `json:"categoryId"`
	Quantity    *int             `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
	RentalPrice *decimal.Decimal `json:"rentalPrice"`
}

// RentalInput creates or patches a rental material.
type RentalInput struct {
	Name          *string          `json:"name"`
	CategoryID    *uuid.UUID       `json:"categoryId"`
	Quantity      *int             `json:"quantity"`
	RentingCost   *decimal.Decimal `json:"rentingCost"`
	VendorName    *string          `json:"vendorName"`
	VendorContact *string          `json:"vendorContact"`
	RentalDate    *time.Time       `json:"rentalDate"`
	ReturnDate    *time.Time       `json:"returnDate"`
}
