package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk/internal/domain/billing"
	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
)

func TestInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	clinic := unique("clinic")
	doc, _ := addDoctor(t, ctx, s, clinic)
	patient := addPatient(t, ctx, s, doc.ID)

	cleaning := &billing.Item{Name: unique("cleaning"), Rate: 50, Description: "Scale and polish"}
	if err := s.billing.CreateItem(ctx, cleaning); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	xray := &billing.Item{Name: unique("xray"), Rate: 35}
	if err := s.billing.CreateItem(ctx, xray); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	override := 20.0
	inv := &billing.Invoice{
		Clinic:    clinic,
		DoctorID:  doc.ID,
		PatientID: patient.ID,
		Discount:  10,
		Items: []billing.LineItem{
			{ItemID: cleaning.ID, Quantity: 2},
			{ItemID: xray.ID, Quantity: 1, NewRate: &override},
		},
	}

	t.Run("Create", func(t *testing.T) {
		if err := s.billing.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("CreateInvoice: %v", err)
		}
		if inv.ID == 0 {
			t.Fatal("expected generated id")
		}
		if inv.SubTotal != 120 || inv.Total != 108 {
			t.Fatalf("sub_total=%v total=%v, want 120 and 108", inv.SubTotal, inv.Total)
		}
	})

	t.Run("GetEnriched", func(t *testing.T) {
		got, err := s.billing.GetInvoice(ctx, inv.ID)
		if err != nil {
			t.Fatalf("GetInvoice: %v", err)
		}
		if len(got.Items) != 2 {
			t.Fatalf("got %d lines, want 2", len(got.Items))
		}
		if got.Items[0].Name != cleaning.Name || got.Items[0].Rate == nil || *got.Items[0].Rate != 50 {
			t.Fatalf("line 0 not enriched: %+v", got.Items[0])
		}
	})

	t.Run("ListByPatient", func(t *testing.T) {
		list, total, err := s.billing.ListInvoices(ctx, billing.InvoiceFilter{PatientID: patient.ID}, 20, 0)
		if err != nil {
			t.Fatalf("ListInvoices: %v", err)
		}
		if total != 1 || len(list) != 1 || list[0].ID != inv.ID {
			t.Fatalf("list = %v (total %d)", list, total)
		}
	})

	t.Run("MarkPaid", func(t *testing.T) {
		inv.IsPaid = true
		inv.Discount = 0
		if err := s.billing.UpdateInvoice(ctx, inv); err != nil {
			t.Fatalf("UpdateInvoice: %v", err)
		}
		got, err := s.billing.GetInvoice(ctx, inv.ID)
		if err != nil {
			t.Fatalf("GetInvoice: %v", err)
		}
		if !got.IsPaid || got.Total != 120 {
			t.Fatalf("got paid=%v total=%v", got.IsPaid, got.Total)
		}
	})

	t.Run("UnknownPatientRejected", func(t *testing.T) {
		bad := &billing.Invoice{
			Clinic:    clinic,
			DoctorID:  doc.ID,
			PatientID: uuid.New(),
			Items:     []billing.LineItem{{ItemID: cleaning.ID, Quantity: 1}},
		}
		err := s.billing.CreateInvoice(ctx, bad)
		if apperr.KindOf(err) != apperr.Invalid {
			t.Fatalf("err = %v, want Invalid", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.billing.DeleteInvoice(ctx, inv.ID); err != nil {
			t.Fatalf("DeleteInvoice: %v", err)
		}
		if _, err := s.billing.GetInvoice(ctx, inv.ID); apperr.KindOf(err) != apperr.NotFound {
			t.Fatalf("err = %v, want NotFound", err)
		}
	})
}
