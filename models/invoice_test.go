package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func amt(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Two payments posted against one invoice see each other's paid amount once
// the invoice row is read under the payment transaction's lock. The second
// posting must fail the remaining-balance check instead of overwriting the
// first.
func TestAddPaidAmountSerializedPostings(t *testing.T) {
	invoice := &Invoice{
		TotalAmount:   amt("100"),
		CurrentStatus: InvoiceStatusConfirmed,
	}

	if err := invoice.AddPaidAmount(amt("80")); err != nil {
		t.Fatalf("first payment should succeed: %v", err)
	}
	if invoice.CurrentStatus != InvoiceStatusPartialPaid {
		t.Fatalf("status = %s, want %s", invoice.CurrentStatus, InvoiceStatusPartialPaid)
	}

	if err := invoice.AddPaidAmount(amt("80")); err == nil {
		t.Fatalf("second payment exceeds the remaining balance and must be rejected")
	}
	if !invoice.PaidAmount.Equal(amt("80")) {
		t.Fatalf("rejected payment changed paid amount to %s", invoice.PaidAmount)
	}

	if err := invoice.AddPaidAmount(amt("20")); err != nil {
		t.Fatalf("paying the exact remainder should succeed: %v", err)
	}
	if invoice.CurrentStatus != InvoiceStatusPaid {
		t.Fatalf("status = %s, want %s", invoice.CurrentStatus, InvoiceStatusPaid)
	}
	if !invoice.RemainingBalance().IsZero() {
		t.Fatalf("remaining balance = %s, want 0", invoice.RemainingBalance())
	}
}

func TestSubtractPaidAmountRestoresStatus(t *testing.T) {
	invoice := &Invoice{
		TotalAmount:   amt("100"),
		PaidAmount:    amt("100"),
		CurrentStatus: InvoiceStatusPaid,
	}

	invoice.SubtractPaidAmount(amt("30"))
	if invoice.CurrentStatus != InvoiceStatusPartialPaid {
		t.Fatalf("status = %s, want %s", invoice.CurrentStatus, InvoiceStatusPartialPaid)
	}
	if !invoice.PaidAmount.Equal(amt("70")) {
		t.Fatalf("paid amount = %s, want 70", invoice.PaidAmount)
	}

	invoice.SubtractPaidAmount(amt("70"))
	if invoice.CurrentStatus != InvoiceStatusConfirmed {
		t.Fatalf("status = %s, want %s", invoice.CurrentStatus, InvoiceStatusConfirmed)
	}
	if !invoice.PaidAmount.IsZero() {
		t.Fatalf("paid amount = %s, want 0", invoice.PaidAmount)
	}

	// deleting more than was paid clamps at zero
	invoice.SubtractPaidAmount(amt("5"))
	if !invoice.PaidAmount.IsZero() {
		t.Fatalf("paid amount went negative: %s", invoice.PaidAmount)
	}
}
