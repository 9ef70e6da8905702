package reports_test

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/models/reports"
	"github.com/shopspring/decimal"
)

func newSource(id int, name string, scheme models.SettlementScheme, delayDays int, feePercent, feeFixed string) *models.IncomeSource {
	active := true
	return &models.IncomeSource{
		ID:               id,
		BusinessId:       "biz-1",
		Name:             name,
		SettlementScheme: scheme,
		DelayDays:        delayDays,
		FeePercent:       d(feePercent),
		FeeFixed:         d(feeFixed),
		IsActive:         &active,
	}
}

func TestComputeSettlement_FixedDelayWithPercentFee(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(7, "Credit Card", models.SettlementSchemeFixedDelay, 2, "3", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-05-10", IncomeSourceId: 7, Amount: d("1000")},
	}

	settled, warnings := reports.ComputeSettlement(entries, sources)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	items := settled["2024-05-12"]
	if len(items) != 1 {
		t.Fatalf("expected 1 item on 2024-05-12, got settled map %v", settled)
	}
	item := items[0]
	if !item.GrossAmount.Equal(d("1000")) {
		t.Fatalf("gross = %s, want 1000", item.GrossAmount)
	}
	if !item.FeeAmount.Equal(d("30")) {
		t.Fatalf("fee = %s, want 30", item.FeeAmount)
	}
	if !item.NetAmount.Equal(d("970")) {
		t.Fatalf("net = %s, want 970", item.NetAmount)
	}
	if item.OriginalEntryDate != "2024-05-10" {
		t.Fatalf("original entry date = %q, want 2024-05-10", item.OriginalEntryDate)
	}
}

func TestSettlementDate_TwiceMonthly(t *testing.T) {
	source := newSource(1, "Delivery App", models.SettlementSchemeTwiceMonthly, 0, "0", "0")

	cases := []struct {
		entry string
		want  string
	}{
		{"2024-01-01", "2024-01-31"},
		{"2024-01-15", "2024-01-31"},
		{"2024-01-16", "2024-02-15"},
		{"2024-01-31", "2024-02-15"},
		{"2024-02-10", "2024-02-29"},
		{"2024-12-20", "2025-01-15"},
	}
	for _, c := range cases {
		entryDate, err := time.Parse("2006-01-02", c.entry)
		if err != nil {
			t.Fatalf("parse %q: %v", c.entry, err)
		}
		got := reports.SettlementDate(entryDate, source).Format("2006-01-02")
		if got != c.want {
			t.Fatalf("entry %s settles %s, want %s", c.entry, got, c.want)
		}
	}
}

func TestComputeSettlement_NoRuleFallsBackSameDay(t *testing.T) {
	// blank scheme predates the settlement setup screen
	active := true
	sources := []*models.IncomeSource{
		{ID: 3, BusinessId: "biz-1", Name: "Legacy", IsActive: &active},
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-04-01", IncomeSourceId: 3, Amount: d("500")},
		{EntryDate: "2024-04-02", IncomeSourceId: 3, Amount: d("200")},
	}

	settled, warnings := reports.ComputeSettlement(entries, sources)
	if len(warnings) != 1 || warnings[0].Kind != reports.WarningKindConfiguration {
		t.Fatalf("expected a single configuration warning, got %v", warnings)
	}
	item := settled["2024-04-01"][0]
	if !item.FeeAmount.IsZero() || !item.NetAmount.Equal(d("500")) {
		t.Fatalf("fallback should be zero-fee same-day, got fee %s net %s", item.FeeAmount, item.NetAmount)
	}
}

func TestComputeSettlement_UnknownSourceNeverDropsRevenue(t *testing.T) {
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-04-01", IncomeSourceId: 99, Amount: d("300")},
	}

	settled, warnings := reports.ComputeSettlement(entries, nil)
	if len(warnings) != 1 || warnings[0].Kind != reports.WarningKindConfiguration {
		t.Fatalf("expected a configuration warning, got %v", warnings)
	}
	items := settled["2024-04-01"]
	if len(items) != 1 {
		t.Fatalf("revenue dropped for unknown source: %v", settled)
	}
	if items[0].IncomeSourceName != "Other" {
		t.Fatalf("name = %q, want Other", items[0].IncomeSourceName)
	}
	if !items[0].NetAmount.Equal(d("300")) {
		t.Fatalf("net = %s, want 300", items[0].NetAmount)
	}
}

func TestComputeSettlement_InactiveSourceKeepsRuleUnderOtherLabel(t *testing.T) {
	inactive := false
	sources := []*models.IncomeSource{
		{
			ID: 5, BusinessId: "biz-1", Name: "Old Processor",
			SettlementScheme: models.SettlementSchemeFixedDelay,
			DelayDays:        3,
			FeePercent:       d("2"),
			IsActive:         &inactive,
		},
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-06-01", IncomeSourceId: 5, Amount: d("100")},
	}

	settled, _ := reports.ComputeSettlement(entries, sources)
	items := settled["2024-06-04"]
	if len(items) != 1 {
		t.Fatalf("inactive source should keep its delay rule, got %v", settled)
	}
	if items[0].IncomeSourceName != "Other" {
		t.Fatalf("name = %q, want Other for inactive source", items[0].IncomeSourceName)
	}
	if !items[0].FeeAmount.Equal(d("2")) {
		t.Fatalf("fee = %s, want 2", items[0].FeeAmount)
	}
}

func TestComputeSettlement_FeeClampedToGross(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(2, "Expensive", models.SettlementSchemeSameDay, 0, "10", "5"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-01-01", IncomeSourceId: 2, Amount: d("1")},
	}

	settled, _ := reports.ComputeSettlement(entries, sources)
	item := settled["2024-01-01"][0]
	if !item.FeeAmount.Equal(d("1")) || !item.NetAmount.IsZero() {
		t.Fatalf("fee should clamp to gross, got fee %s net %s", item.FeeAmount, item.NetAmount)
	}
}

func TestApplyOverrides_ReplacesNetAndRecomputesFee(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(7, "Credit Card", models.SettlementSchemeFixedDelay, 2, "3", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-05-10", IncomeSourceId: 7, Amount: d("1000")},
	}
	settled, _ := reports.ComputeSettlement(entries, sources)

	overrideDate, _ := time.Parse("2006-01-02", "2024-05-12")
	overrides := []*models.SettlementOverride{
		{BusinessId: "biz-1", SettlementDate: overrideDate, IncomeSourceId: 7, Amount: d("950")},
	}

	adjusted := reports.ApplyOverrides(settled, overrides)
	item := adjusted["2024-05-12"][0]
	if !item.NetAmount.Equal(d("950")) {
		t.Fatalf("net = %s, want 950", item.NetAmount)
	}
	if !item.FeeAmount.Equal(d("50")) {
		t.Fatalf("fee = %s, want 50", item.FeeAmount)
	}
	if !item.GrossAmount.Equal(d("1000")) {
		t.Fatalf("gross must stay untouched, got %s", item.GrossAmount)
	}
	if !item.NetAmount.Add(item.FeeAmount).Equal(item.GrossAmount) {
		t.Fatalf("net + fee = %s, want gross %s", item.NetAmount.Add(item.FeeAmount), item.GrossAmount)
	}

	// input map must not be mutated
	original := settled["2024-05-12"][0]
	if !original.NetAmount.Equal(d("970")) || !original.FeeAmount.Equal(d("30")) {
		t.Fatalf("input mutated: net %s fee %s", original.NetAmount, original.FeeAmount)
	}
}

func TestApplyOverrides_EmptySetIsNoOp(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(7, "Credit Card", models.SettlementSchemeFixedDelay, 2, "3", "0"),
		newSource(8, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-05-10", IncomeSourceId: 7, Amount: d("1000")},
		{EntryDate: "2024-05-10", IncomeSourceId: 8, Amount: d("250")},
	}
	settled, _ := reports.ComputeSettlement(entries, sources)

	adjusted := reports.ApplyOverrides(settled, nil)
	if len(adjusted) != len(settled) {
		t.Fatalf("date count changed: %d vs %d", len(adjusted), len(settled))
	}
	for date, items := range settled {
		got := adjusted[date]
		if len(got) != len(items) {
			t.Fatalf("item count changed on %s", date)
		}
		for i := range items {
			if got[i] != items[i] {
				t.Fatalf("item %d on %s changed: %+v vs %+v", i, date, got[i], items[i])
			}
		}
	}
}

func TestApplyOverrides_OnlyMatchingKeyAffected(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(1, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
		newSource(2, "Card", models.SettlementSchemeSameDay, 0, "0", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-05-12", IncomeSourceId: 1, Amount: d("100")},
		{EntryDate: "2024-05-12", IncomeSourceId: 2, Amount: d("200")},
	}
	settled, _ := reports.ComputeSettlement(entries, sources)

	overrideDate, _ := time.Parse("2006-01-02", "2024-05-12")
	overrides := []*models.SettlementOverride{
		{SettlementDate: overrideDate, IncomeSourceId: 2, Amount: d("180")},
	}
	adjusted := reports.ApplyOverrides(settled, overrides)

	for _, item := range adjusted["2024-05-12"] {
		switch item.IncomeSourceId {
		case 1:
			if !item.NetAmount.Equal(d("100")) {
				t.Fatalf("source 1 should be untouched, net = %s", item.NetAmount)
			}
		case 2:
			if !item.NetAmount.Equal(d("180")) {
				t.Fatalf("source 2 net = %s, want 180", item.NetAmount)
			}
		}
	}
}

func TestComputeSettlement_GrossSumConserved(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(1, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
		newSource(2, "Card", models.SettlementSchemeFixedDelay, 3, "1.2", "0.3"),
		newSource(3, "Delivery", models.SettlementSchemeTwiceMonthly, 0, "8", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-03-01", IncomeSourceId: 1, Amount: d("120.50")},
		{EntryDate: "2024-03-14", IncomeSourceId: 2, Amount: d("340")},
		{EntryDate: "2024-03-20", IncomeSourceId: 3, Amount: d("89.90")},
		{EntryDate: "2024-03-31", IncomeSourceId: 99, Amount: d("10")},
	}

	settled, _ := reports.ComputeSettlement(entries, sources)
	totalGross := decimal.Zero
	totalItems := 0
	for _, items := range settled {
		for _, item := range items {
			totalGross = totalGross.Add(item.GrossAmount)
			totalItems++
		}
	}
	if totalItems != len(entries) {
		t.Fatalf("item count = %d, want %d", totalItems, len(entries))
	}
	want := d("120.50").Add(d("340")).Add(d("89.90")).Add(d("10"))
	if !totalGross.Equal(want) {
		t.Fatalf("gross sum = %s, want %s", totalGross, want)
	}
}

func TestConfigurationViolation_RuleLessSource(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(4, "Legacy", "", 0, "0", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-04-01", IncomeSourceId: 4, Amount: d("500")},
	}

	_, warnings := reports.ComputeSettlement(entries, sources)
	err := reports.ConfigurationViolation(warnings)
	if err == nil {
		t.Fatalf("expected an error for a source with no settlement rule")
	}
	if !strings.Contains(err.Error(), "Legacy") {
		t.Fatalf("error should name the source, got %q", err.Error())
	}
}

func TestConfigurationViolation_IgnoresValidationWarnings(t *testing.T) {
	warnings := []reports.RowWarning{
		{Kind: reports.WarningKindValidation, Message: "skipped income entry with malformed date"},
	}
	if err := reports.ConfigurationViolation(warnings); err != nil {
		t.Fatalf("validation warnings must not fail the report: %v", err)
	}
	if err := reports.ConfigurationViolation(nil); err != nil {
		t.Fatalf("empty warning set must not fail the report: %v", err)
	}
}
