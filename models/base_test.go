package models

import (
	"testing"
	"time"
)

func TestCalculateDueDate(t *testing.T) {
	invoiceDate := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		terms      PaymentTerms
		customDays int
		want       string
	}{
		{PaymentTermsDueOnReceipt, 0, "2024-01-20"},
		{PaymentTermsNet15, 0, "2024-02-04"},
		{PaymentTermsNet30, 0, "2024-02-19"},
		{PaymentTermsDueEndOfMonth, 0, "2024-01-31"},
		{PaymentTermsDueEndOfNextMonth, 0, "2024-02-29"},
		{PaymentTermsCustom, 10, "2024-01-30"},
	}
	for _, c := range cases {
		got := calculateDueDate(invoiceDate, c.terms, c.customDays)
		if got.Format("2006-01-02") != c.want {
			t.Fatalf("%s: due date = %s, want %s", c.terms, got.Format("2006-01-02"), c.want)
		}
	}
}

func TestParseDateString(t *testing.T) {
	// date-only input, default timezone
	parsed, err := ParseDateString("2024-06-15", "")
	if err != nil {
		t.Fatalf("ParseDateString: %v", err)
	}
	// Asia/Jerusalem is UTC+3 in June
	want := time.Date(2024, 6, 14, 21, 0, 0, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Fatalf("parsed = %s, want %s", parsed, want)
	}

	// datetime input, explicit timezone
	parsed, err = ParseDateString("2024-06-15T08:30:00", "UTC")
	if err != nil {
		t.Fatalf("ParseDateString: %v", err)
	}
	if parsed.Hour() != 8 || parsed.Minute() != 30 {
		t.Fatalf("parsed = %s, want 08:30 UTC", parsed)
	}

	if _, err = ParseDateString("garbage", ""); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestMaxSettlementLagDays(t *testing.T) {
	sources := []*IncomeSource{
		{SettlementScheme: SettlementSchemeSameDay},
		{SettlementScheme: SettlementSchemeFixedDelay, DelayDays: 7},
		{SettlementScheme: SettlementSchemeTwiceMonthly},
	}
	if got := MaxSettlementLagDays(sources); got != 62 {
		t.Fatalf("max lag = %d, want 62", got)
	}

	sources = sources[:2]
	if got := MaxSettlementLagDays(sources); got != 7 {
		t.Fatalf("max lag = %d, want 7", got)
	}

	if got := MaxSettlementLagDays(nil); got != 0 {
		t.Fatalf("max lag = %d, want 0", got)
	}
}
