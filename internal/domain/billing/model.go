package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Item is a billable catalog entry.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Rate        float64   `json:"rate"`
	Description string    `json:"description"`
}

// LineItem references a catalog item. NewRate overrides the catalog rate for
// this invoice only. Name, Rate and Description are filled from the catalog
// on read and are never stored.
type LineItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
	NewRate  *float64  `json:"new_rate,omitempty"`

	Name        string   `json:"name,omitempty"`
	Rate        *float64 `json:"rate,omitempty"`
	Description string   `json:"description,omitempty"`
}

// storedLine is the JSONB shape of a line item.
type storedLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
	NewRate  *float64  `json:"new_rate,omitempty"`
}

// Invoice totals: Total is computed by the database from SubTotal and
// Discount (a percentage).
type Invoice struct {
	ID        int64      `json:"id"`
	Date      time.Time  `json:"date"`
	Clinic    string     `json:"clinic"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	SubTotal  float64    `json:"sub_total"`
	Discount  int        `json:"discount"`
	Total     float64    `json:"total"`
	IsPaid    bool       `json:"is_paid"`
	Items     []LineItem `json:"items"`
}

// InvoiceFilter narrows List. Zero fields are ignored.
type InvoiceFilter struct {
	Clinic    string
	DoctorID  uuid.UUID
	PatientID uuid.UUID
}

// effectiveRate is the rate billed for l given its catalog item.
func (l LineItem) effectiveRate(it *Item) float64 {
	if l.NewRate != nil {
		return *l.NewRate
	}
	return it.Rate
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func toStored(items []LineItem) []storedLine {
	out := make([]storedLine, len(items))
	for i, l := range items {
		out[i] = storedLine{ItemID: l.ItemID, Quantity: l.Quantity, NewRate: l.NewRate}
	}
	return out
}

func fromStored(lines []storedLine) []LineItem {
	out := make([]LineItem, len(lines))
	for i, l := range lines {
		out[i] = LineItem{ItemID: l.ItemID, Quantity: l.Quantity, NewRate: l.NewRate}
	}
	return out
}
