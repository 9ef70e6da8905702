package reports_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/models/reports"
	"github.com/shopspring/decimal"
)

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestAssembleCashFlow_OpeningBalanceSeedsCumulative(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(1, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-03-01", IncomeSourceId: 1, Amount: d("100")},
		{EntryDate: "2024-03-02", IncomeSourceId: 1, Amount: d("50")},
	}
	expenses := []reports.ExpenseItem{
		{SupplierName: "Electric Co", Amount: d("40"), PaymentMethod: models.PaymentMethodBankTransfer, DueDate: "2024-03-02"},
	}

	report := reports.AssembleCashFlow(entries, sources, nil, expenses,
		models.ReportGranularityDaily, day("2024-03-01"), day("2024-03-31"), d("1000"), false)

	if !report.OpeningBalance.Equal(d("1000")) {
		t.Fatalf("opening balance = %s, want 1000", report.OpeningBalance)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Rows))
	}
	if !report.Rows[0].Cumulative.Equal(d("1100")) {
		t.Fatalf("first cumulative = %s, want 1100", report.Rows[0].Cumulative)
	}
	if !report.Rows[1].Cumulative.Equal(d("1110")) {
		t.Fatalf("second cumulative = %s, want 1110", report.Rows[1].Cumulative)
	}
	if !report.ClosingBalance.Equal(d("1110")) {
		t.Fatalf("closing balance = %s, want 1110", report.ClosingBalance)
	}
	if !report.TotalInflows.Equal(d("150")) || !report.TotalOutflows.Equal(d("40")) {
		t.Fatalf("totals = %s/%s, want 150/40", report.TotalInflows, report.TotalOutflows)
	}
}

func TestAssembleCashFlow_LookbackEntrySettlesInsideWindow(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(2, "Credit Card", models.SettlementSchemeFixedDelay, 3, "0", "0"),
	}
	// entry before the window whose settlement lands inside it
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-01-30", IncomeSourceId: 2, Amount: d("400")},
	}

	report := reports.AssembleCashFlow(entries, sources, nil, nil,
		models.ReportGranularityDaily, day("2024-02-01"), day("2024-02-29"), decimal.Zero, false)

	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report.Rows))
	}
	row := report.Rows[0]
	if row.Key != "2024-02-02" {
		t.Fatalf("row key = %q, want 2024-02-02", row.Key)
	}
	if len(row.IncomeItems) != 1 || row.IncomeItems[0].OriginalEntryDate != "2024-01-30" {
		t.Fatalf("income items = %+v, want the 2024-01-30 entry", row.IncomeItems)
	}
}

func TestAssembleCashFlow_SettlementOutsideWindowExcluded(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(2, "Credit Card", models.SettlementSchemeFixedDelay, 5, "0", "0"),
	}
	// settles 2024-03-04, after the window closes
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-02-28", IncomeSourceId: 2, Amount: d("400")},
	}

	report := reports.AssembleCashFlow(entries, sources, nil, nil,
		models.ReportGranularityDaily, day("2024-02-01"), day("2024-02-29"), decimal.Zero, false)

	if len(report.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(report.Rows))
	}
	if !report.ClosingBalance.Equal(report.OpeningBalance) {
		t.Fatalf("closing = %s, want opening %s", report.ClosingBalance, report.OpeningBalance)
	}
}

func TestAssembleCashFlow_OverrideChangesInflow(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(7, "Credit Card", models.SettlementSchemeFixedDelay, 2, "3", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-05-10", IncomeSourceId: 7, Amount: d("1000")},
	}
	overrides := []*models.SettlementOverride{
		{SettlementDate: day("2024-05-12"), IncomeSourceId: 7, Amount: d("950")},
	}

	report := reports.AssembleCashFlow(entries, sources, overrides, nil,
		models.ReportGranularityDaily, day("2024-05-01"), day("2024-05-31"), decimal.Zero, false)

	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report.Rows))
	}
	row := report.Rows[0]
	if !row.Inflows.Equal(d("950")) {
		t.Fatalf("inflows = %s, want overridden 950", row.Inflows)
	}
	item := row.IncomeItems[0]
	if !item.GrossAmount.Equal(d("1000")) || !item.FeeAmount.Equal(d("50")) {
		t.Fatalf("gross/fee = %s/%s, want 1000/50", item.GrossAmount, item.FeeAmount)
	}
}

func TestAssembleCashFlow_WeeklyGroupsIncomeAndExpenses(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(1, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
	}
	// 2024-03-04 (Mon) and 2024-03-06 (Wed) share the week of Sunday 2024-03-03
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-03-04", IncomeSourceId: 1, Amount: d("100")},
		{EntryDate: "2024-03-06", IncomeSourceId: 1, Amount: d("200")},
	}
	expenses := []reports.ExpenseItem{
		{SupplierName: "Rent", Amount: d("80"), PaymentMethod: models.PaymentMethodCheque, DueDate: "2024-03-05"},
	}

	report := reports.AssembleCashFlow(entries, sources, nil, expenses,
		models.ReportGranularityWeekly, day("2024-03-01"), day("2024-03-31"), decimal.Zero, false)

	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 weekly row, got %d", len(report.Rows))
	}
	row := report.Rows[0]
	if row.Key != "2024-03-03" {
		t.Fatalf("week key = %q, want 2024-03-03", row.Key)
	}
	if len(row.IncomeItems) != 2 || len(row.ExpenseItems) != 1 {
		t.Fatalf("items = %d income / %d expense, want 2/1", len(row.IncomeItems), len(row.ExpenseItems))
	}
	if !row.Net.Equal(d("220")) {
		t.Fatalf("net = %s, want 220", row.Net)
	}
	if row.ExpenseItems[0].PaymentMethod != models.PaymentMethodCheque {
		t.Fatalf("payment method = %q, want Cheque", row.ExpenseItems[0].PaymentMethod)
	}
}

func TestAssembleCashFlow_MalformedExpenseDateWarnsAndSkips(t *testing.T) {
	expenses := []reports.ExpenseItem{
		{SupplierName: "Broken", Amount: d("10"), DueDate: "31/02/2024"},
		{SupplierName: "Good", Amount: d("20"), DueDate: "2024-02-05"},
	}

	report := reports.AssembleCashFlow(nil, nil, nil, expenses,
		models.ReportGranularityDaily, day("2024-02-01"), day("2024-02-29"), decimal.Zero, false)

	if len(report.Warnings) != 1 || report.Warnings[0].Kind != reports.WarningKindValidation {
		t.Fatalf("expected one validation warning, got %v", report.Warnings)
	}
	if len(report.Rows) != 1 || !report.Rows[0].Outflows.Equal(d("20")) {
		t.Fatalf("expected the valid expense only, got %+v", report.Rows)
	}
}

func TestAssembleCashFlow_GapFillSynthesizesEmptyRows(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(1, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-03-01", IncomeSourceId: 1, Amount: d("100")},
	}

	report := reports.AssembleCashFlow(entries, sources, nil, nil,
		models.ReportGranularityDaily, day("2024-03-01"), day("2024-03-05"), d("500"), true)

	if len(report.Rows) != 5 {
		t.Fatalf("expected 5 gap-filled rows, got %d", len(report.Rows))
	}
	for i, row := range report.Rows {
		if !row.Cumulative.Equal(d("600")) {
			t.Fatalf("row %d cumulative = %s, want 600", i, row.Cumulative)
		}
		if i > 0 && (!row.Net.IsZero() || len(row.IncomeItems) != 0) {
			t.Fatalf("row %d should be empty, got %+v", i, row)
		}
	}
}

func TestBalanceForward_ClosingMatchesNextOpening(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(7, "Credit Card", models.SettlementSchemeFixedDelay, 2, "3", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-01-10", IncomeSourceId: 7, Amount: d("500")},
		{EntryDate: "2024-01-30", IncomeSourceId: 7, Amount: d("1000")},
	}
	overrides := []*models.SettlementOverride{
		{SettlementDate: day("2024-01-12"), IncomeSourceId: 7, Amount: d("490")},
	}
	expenses := []reports.ExpenseItem{
		{SupplierName: "Electric Co", Amount: d("100"), PaymentMethod: models.PaymentMethodBankTransfer, DueDate: "2024-01-20"},
	}
	opening := d("1000")
	anchor := day("2024-01-01")

	january := reports.AssembleCashFlow(entries, sources, overrides, expenses,
		models.ReportGranularityDaily, day("2024-01-01"), day("2024-01-31"), opening, false)

	februaryOpening := reports.BalanceForward(opening, entries, sources, overrides, expenses,
		anchor, day("2024-02-01"))
	if !january.ClosingBalance.Equal(februaryOpening) {
		t.Fatalf("january closing %s != february opening %s", january.ClosingBalance, februaryOpening)
	}

	// The 2024-01-30 entry settles 2024-02-01, net 970. It belongs to
	// February's rows, not to the roll-forward.
	want := opening.Add(d("490")).Sub(d("100"))
	if !februaryOpening.Equal(want) {
		t.Fatalf("february opening = %s, want %s", februaryOpening, want)
	}

	february := reports.AssembleCashFlow(entries, sources, overrides, expenses,
		models.ReportGranularityDaily, day("2024-02-01"), day("2024-02-29"), februaryOpening, false)
	full := reports.AssembleCashFlow(entries, sources, overrides, expenses,
		models.ReportGranularityDaily, day("2024-01-01"), day("2024-02-29"), opening, false)
	if !february.ClosingBalance.Equal(full.ClosingBalance) {
		t.Fatalf("split windows close at %s, full span closes at %s", february.ClosingBalance, full.ClosingBalance)
	}
}

func TestBalanceForward_AnchorEqualsWindowStart(t *testing.T) {
	sources := []*models.IncomeSource{
		newSource(1, "Cash", models.SettlementSchemeSameDay, 0, "0", "0"),
	}
	entries := []reports.RawIncomeEntry{
		{EntryDate: "2024-03-05", IncomeSourceId: 1, Amount: d("100")},
	}

	got := reports.BalanceForward(d("250"), entries, sources, nil, nil,
		day("2024-03-01"), day("2024-03-01"))
	if !got.Equal(d("250")) {
		t.Fatalf("empty roll-forward changed the balance: %s", got)
	}
}
