package reporting

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/consigna/backoffice/internal/money"
)

// ItemStatus is the lifecycle state of a consigned item.
type ItemStatus string

const (
	StatusInStore  ItemStatus = "in-store"
	StatusReserved ItemStatus = "reserved"
	StatusSold     ItemStatus = "sold"
	StatusReturned ItemStatus = "returned"
)

// ItemStatuses lists every status in display order.
var ItemStatuses = []ItemStatus{StatusInStore, StatusReserved, StatusSold, StatusReturned}

// Held reports whether the item is still physically held by the shop.
func (s ItemStatus) Held() bool {
	return s == StatusInStore || s == StatusReserved
}

// InstallmentStatus is the settlement state of a financing row.
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
)

// Item is a consigned article joined with its vendor, brand and category.
type Item struct {
	ID           int64
	VendorID     int64
	VendorName   string
	BrandID      int64
	BrandName    string
	CategoryID   int64
	CategoryName string
	Status       ItemStatus
	Cost         money.Range
	SalesPrice   money.Range
	AcquiredAt   time.Time
	CreatedAt    time.Time
	// FirstPaidAt is the timestamp of the first client payment ever recorded
	// for the item; it dates the sale.
	FirstPaidAt *time.Time
	// PaidOut is the total already paid to the vendor for the item.
	PaidOut decimal.Decimal
}

// ClientPayment is an exact amount received from a client for an item.
type ClientPayment struct {
	ID         int64
	ItemID     int64
	ClientID   int64
	ClientName string
	Amount     decimal.Decimal
	Method     string
	PaidAt     time.Time
}

// VendorPayout is an exact amount paid to a vendor for an item.
type VendorPayout struct {
	ID     int64
	ItemID int64
	Amount decimal.Decimal
	PaidAt time.Time
}

// ItemExpense is a cost incurred on an item (cleaning, repair, shipping).
type ItemExpense struct {
	ID         int64
	ItemID     int64
	Type       string
	Amount     decimal.Decimal
	IncurredAt time.Time
}

// InstallmentPlan is one scheduled financing row of a client purchase.
type InstallmentPlan struct {
	ID          int64
	ItemID      int64
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Status      InstallmentStatus
	DueDate     time.Time
}

// Outstanding is the unpaid part of the row, never negative.
func (p InstallmentPlan) Outstanding() decimal.Decimal {
	return decimal.Max(p.TotalAmount.Sub(p.PaidAmount), decimal.Zero)
}

// Window is the half-open interval [Start, End) in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Previous returns the window of equal length ending where w starts.
func (w Window) Previous() Window {
	return Window{Start: w.Start.Add(-w.Duration()), End: w.Start}
}

// Filters restricts the facts read for a report. An empty set places no
// restriction on its dimension.
type Filters struct {
	VendorIDs   []int64
	ClientIDs   []int64
	BrandIDs    []int64
	CategoryIDs []int64
}

// MatchItem applies the vendor, brand and category sets.
func (f Filters) MatchItem(item Item) bool {
	return inSet(f.VendorIDs, item.VendorID) &&
		inSet(f.BrandIDs, item.BrandID) &&
		inSet(f.CategoryIDs, item.CategoryID)
}

// MatchClient applies the client set.
func (f Filters) MatchClient(clientID int64) bool {
	return inSet(f.ClientIDs, clientID)
}

func inSet(set []int64, id int64) bool {
	if len(set) == 0 {
		return true
	}
	return slices.Contains(set, id)
}
