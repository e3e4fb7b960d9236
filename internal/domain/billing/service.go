package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/db"
)

type Service struct {
	items    ItemRepository
	invoices InvoiceRepository
}

func NewService(items ItemRepository, invoices InvoiceRepository) *Service {
	return &Service{items: items, invoices: invoices}
}

// -- Item --

func validateItem(op string, it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return apperr.New(apperr.Invalid, op, "name is required")
	}
	if it.Rate < 0 {
		return apperr.New(apperr.Invalid, op, "rate must not be negative")
	}
	return nil
}

func (s *Service) CreateItem(ctx context.Context, it *Item) error {
	if err := validateItem("item.create", it); err != nil {
		return err
	}
	return apperr.Wrap(apperr.StoreUnavailable, "item.create", s.items.Create(ctx, it))
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := s.items.Get(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "item.get", "item not found")
	}
	return it, nil
}

func (s *Service) UpdateItem(ctx context.Context, it *Item) error {
	if err := validateItem("item.update", it); err != nil {
		return err
	}
	if err := s.items.Update(ctx, it); err != nil {
		return lookupErr(err, "item.update", "item not found")
	}
	return nil
}

// DeleteItem removes a catalog entry. Invoices that reference it keep their
// line items but are no longer enriched with its details.
func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.items.Delete(ctx, id); err != nil {
		return lookupErr(err, "item.delete", "item not found")
	}
	return nil
}

func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	out, total, err := s.items.List(ctx, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "item.list", err)
}

func (s *Service) SearchItems(ctx context.Context, name string, limit, offset int) ([]*Item, int, error) {
	out, total, err := s.items.Search(ctx, name, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "item.search", err)
}

// -- Invoice --

func validateInvoice(op string, inv *Invoice) error {
	inv.Clinic = strings.TrimSpace(inv.Clinic)
	switch {
	case inv.Clinic == "":
		return apperr.New(apperr.Invalid, op, "clinic is required")
	case inv.DoctorID == uuid.Nil:
		return apperr.New(apperr.Invalid, op, "doctor_id is required")
	case inv.PatientID == uuid.Nil:
		return apperr.New(apperr.Invalid, op, "patient_id is required")
	case len(inv.Items) == 0:
		return apperr.New(apperr.Invalid, op, "items must be a non-empty array")
	case inv.Discount < 0 || inv.Discount > 100:
		return apperr.New(apperr.Invalid, op, "discount must be between 0 and 100")
	}
	for i, l := range inv.Items {
		if l.ItemID == uuid.Nil {
			return apperr.Newf(apperr.Invalid, op, "items[%d]: item_id is required", i)
		}
		if l.Quantity <= 0 {
			return apperr.Newf(apperr.Invalid, op, "items[%d]: quantity must be positive", i)
		}
		if l.NewRate != nil && *l.NewRate < 0 {
			return apperr.Newf(apperr.Invalid, op, "items[%d]: new_rate must not be negative", i)
		}
	}
	return nil
}

// price computes the invoice subtotal from catalog rates, honoring per-line
// overrides. Every referenced item must exist.
func (s *Service) price(ctx context.Context, op string, inv *Invoice) error {
	catalog, err := s.items.GetMany(ctx, itemIDs([]*Invoice{inv}))
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, op, err)
	}
	var sub float64
	for i, l := range inv.Items {
		it, ok := catalog[l.ItemID]
		if !ok {
			return apperr.Newf(apperr.Invalid, op, "items[%d]: unknown item %s", i, l.ItemID)
		}
		sub += l.effectiveRate(it) * float64(l.Quantity)
	}
	inv.SubTotal = roundCents(sub)
	// Matches the generated column until the row is read back.
	inv.Total = roundCents(inv.SubTotal - inv.SubTotal*float64(inv.Discount)/100)
	enrich([]*Invoice{inv}, catalog)
	return nil
}

func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if err := validateInvoice("invoice.create", inv); err != nil {
		return err
	}
	if err := s.price(ctx, "invoice.create", inv); err != nil {
		return err
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return writeErr(err, "invoice.create")
	}
	return nil
}

func (s *Service) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	if err := validateInvoice("invoice.update", inv); err != nil {
		return err
	}
	if err := s.price(ctx, "invoice.update", inv); err != nil {
		return err
	}
	if err := s.invoices.Update(ctx, inv); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.New(apperr.NotFound, "invoice.update", "invoice not found")
		}
		return writeErr(err, "invoice.update")
	}
	return nil
}

func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if err := s.invoices.Delete(ctx, id); err != nil {
		return lookupErr(err, "invoice.delete", "invoice not found")
	}
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "invoice.get", "invoice not found")
	}
	if err := s.enrich(ctx, "invoice.get", []*Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns a page of invoices matching f, newest first, with line
// items enriched from the catalog.
func (s *Service) ListInvoices(ctx context.Context, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error) {
	out, total, err := s.invoices.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.StoreUnavailable, "invoice.list", err)
	}
	if err := s.enrich(ctx, "invoice.list", out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// enrich fills catalog details into every line item of invs with a single
// batched lookup.
func (s *Service) enrich(ctx context.Context, op string, invs []*Invoice) error {
	ids := itemIDs(invs)
	if len(ids) == 0 {
		return nil
	}
	catalog, err := s.items.GetMany(ctx, ids)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, op, fmt.Errorf("load line items: %w", err))
	}
	enrich(invs, catalog)
	return nil
}

func enrich(invs []*Invoice, catalog map[uuid.UUID]*Item) {
	for _, inv := range invs {
		for i := range inv.Items {
			l := &inv.Items[i]
			it, ok := catalog[l.ItemID]
			if !ok {
				continue
			}
			rate := it.Rate
			l.Name, l.Rate, l.Description = it.Name, &rate, it.Description
		}
	}
}

// itemIDs returns the distinct item ids referenced by invs.
func itemIDs(invs []*Invoice) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, inv := range invs {
		for _, l := range inv.Items {
			if _, ok := seen[l.ItemID]; ok {
				continue
			}
			seen[l.ItemID] = struct{}{}
			ids = append(ids, l.ItemID)
		}
	}
	return ids
}

func lookupErr(err error, op, msg string) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.New(apperr.NotFound, op, msg)
	}
	return apperr.Wrap(apperr.StoreUnavailable, op, err)
}

// writeErr maps a failed invoice write. A foreign key violation means the
// clinic, doctor or patient named by the caller does not exist.
func writeErr(err error, op string) error {
	if errors.Is(err, db.ErrForeignKey) {
		return apperr.New(apperr.Invalid, op, "clinic, doctor or patient does not exist")
	}
	return apperr.Wrap(apperr.StoreUnavailable, op, err)
}
