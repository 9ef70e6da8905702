package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("cashflow-reports")

// ExpenseItem is a due obligation treated as an outflow on its due date.
type ExpenseItem struct {
	SupplierName  string               `json:"supplier_name"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	DueDate       string               `json:"due_date"`
}

// CashFlowRow is one period row of the report: the bucket's figures plus
// the settled income items and expense items that landed inside it.
type CashFlowRow struct {
	Bucket
	IncomeItems  []SettledIncomeItem `json:"income_items"`
	ExpenseItems []ExpenseItem       `json:"expense_items"`
}

type CashFlowResponse struct {
	FromDate       string                   `json:"from_date"`
	ToDate         string                   `json:"to_date"`
	Granularity    models.ReportGranularity `json:"granularity"`
	OpeningBalance decimal.Decimal          `json:"opening_balance"`
	ClosingBalance decimal.Decimal          `json:"closing_balance"`
	TotalInflows   decimal.Decimal          `json:"total_inflows"`
	TotalOutflows  decimal.Decimal          `json:"total_outflows"`
	Rows           []*CashFlowRow           `json:"rows"`
	Warnings       []RowWarning             `json:"warnings"`
}

// AssembleCashFlow builds the report from already-fetched rows. Pure except
// for the warning collection; the heavy lifting is ComputeSettlement,
// ApplyOverrides and AggregateEvents. beginBalance seeds the cumulative
// column; it is the balance at fromDate, not zero.
//
// entries may reach back before fromDate (settlement lookback); only items
// whose settlement date lands inside [fromDate, toDate] appear in the
// output.
func AssembleCashFlow(
	entries []RawIncomeEntry,
	sources []*models.IncomeSource,
	overrides []*models.SettlementOverride,
	expenses []ExpenseItem,
	granularity models.ReportGranularity,
	fromDate, toDate time.Time,
	beginBalance decimal.Decimal,
	gapFill bool,
) *CashFlowResponse {

	fromKey := fromDate.Format(dayFormat)
	toKey := toDate.Format(dayFormat)

	settled, warnings := ComputeSettlement(entries, sources)
	settled = ApplyOverrides(settled, overrides)

	var events []DailyEvent
	incomeByBucket := make(map[string][]SettledIncomeItem)
	for date, items := range settled {
		// YYYY-MM-DD strings compare chronologically
		if date < fromKey || date > toKey {
			continue
		}
		for _, item := range items {
			events = append(events, DailyEvent{Date: date, Amount: item.NetAmount, Kind: EventKindInflow})
		}
		parsed, err := time.Parse(dayFormat, date)
		if err != nil {
			continue
		}
		key := BucketKey(parsed, granularity)
		incomeByBucket[key] = append(incomeByBucket[key], items...)
	}

	expenseByBucket := make(map[string][]ExpenseItem)
	for _, expense := range expenses {
		parsed, err := time.Parse(dayFormat, expense.DueDate)
		if err != nil {
			warnings = append(warnings, RowWarning{
				Kind:    WarningKindValidation,
				Message: fmt.Sprintf("skipped expense with malformed due date %q", expense.DueDate),
			})
			continue
		}
		if expense.DueDate < fromKey || expense.DueDate > toKey {
			continue
		}
		events = append(events, DailyEvent{Date: expense.DueDate, Amount: expense.Amount, Kind: EventKindOutflow})
		key := BucketKey(parsed, granularity)
		expenseByBucket[key] = append(expenseByBucket[key], expense)
	}

	buckets, aggWarnings := AggregateEvents(events, granularity)
	warnings = append(warnings, aggWarnings...)
	if gapFill {
		buckets = GapFillBuckets(buckets, granularity, fromDate, toDate)
	}

	response := &CashFlowResponse{
		FromDate:       fromKey,
		ToDate:         toKey,
		Granularity:    granularity,
		OpeningBalance: beginBalance,
		ClosingBalance: beginBalance,
		Rows:           make([]*CashFlowRow, 0, len(buckets)),
		Warnings:       warnings,
	}

	for _, bucket := range buckets {
		// seed the cumulative column from the opening balance
		bucket.Cumulative = bucket.Cumulative.Add(beginBalance)

		incomeItems := incomeByBucket[bucket.Key]
		sort.SliceStable(incomeItems, func(i, j int) bool {
			if incomeItems[i].SettlementDate != incomeItems[j].SettlementDate {
				return incomeItems[i].SettlementDate < incomeItems[j].SettlementDate
			}
			return incomeItems[i].IncomeSourceName < incomeItems[j].IncomeSourceName
		})
		expenseItems := expenseByBucket[bucket.Key]
		sort.SliceStable(expenseItems, func(i, j int) bool {
			return expenseItems[i].DueDate < expenseItems[j].DueDate
		})

		response.Rows = append(response.Rows, &CashFlowRow{
			Bucket:       *bucket,
			IncomeItems:  incomeItems,
			ExpenseItems: expenseItems,
		})
		response.TotalInflows = response.TotalInflows.Add(bucket.Inflows)
		response.TotalOutflows = response.TotalOutflows.Add(bucket.Outflows)
	}
	response.ClosingBalance = beginBalance.Add(response.TotalInflows).Sub(response.TotalOutflows)

	return response
}

// GetCashFlowReport fetches a business's rows and assembles the cash flow
// report for [fromDate, toDate] at the requested granularity. The income
// entry query window is widened backward by the worst settlement lag among
// the business's sources so entries settling inside the window are never
// missed.
func GetCashFlowReport(ctx context.Context, fromDate models.MyDateString, toDate models.MyDateString, granularity models.ReportGranularity) (*CashFlowResponse, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "GetCashFlowReport")
	defer span.End()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	business, err := models.GetBusiness(ctx)
	if err != nil {
		return nil, errors.New("business id is required")
	}
	if err := fromDate.StartOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}
	if err := toDate.EndOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}

	fromTime := time.Time(fromDate)
	toTime := time.Time(toDate)
	fromLocal, err := utils.ConvertToDate(fromTime, business.Timezone)
	if err != nil {
		return nil, err
	}
	toLocal, err := utils.ConvertToDate(toTime, business.Timezone)
	if err != nil {
		return nil, err
	}

	cacheKey := ReportCacheKey(businessId, fromLocal.Format(dayFormat), toLocal.Format(dayFormat), granularity)
	if reportCacheEnabled() {
		var cached *CashFlowResponse
		if exists, err := cacheGet(cacheKey, &cached); err == nil && exists {
			return cached, nil
		}
	}

	db := config.GetDB()

	var sources []*models.IncomeSource
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Find(&sources).Error; err != nil {
		return nil, err
	}

	// widen the entry window backward by the worst settlement lag
	lookbackFrom := fromTime.AddDate(0, 0, -models.MaxSettlementLagDays(sources))
	var dbEntries []*models.DailyEntry
	if err := db.WithContext(ctx).
		Where("business_id = ? AND entry_date >= ? AND entry_date <= ?", businessId, lookbackFrom, toTime).
		Order("entry_date, id").
		Find(&dbEntries).Error; err != nil {
		return nil, err
	}

	var overrides []*models.SettlementOverride
	if err := db.WithContext(ctx).
		Where("business_id = ? AND settlement_date >= ? AND settlement_date <= ?", businessId, fromTime, toTime).
		Find(&overrides).Error; err != nil {
		return nil, err
	}

	var invoices []*models.Invoice
	if err := db.WithContext(ctx).
		Preload("Supplier").
		Where("business_id = ? AND due_date >= ? AND due_date <= ? AND current_status != ?",
			businessId, fromTime, toTime, models.InvoiceStatusVoid).
		Order("due_date, id").
		Find(&invoices).Error; err != nil {
		return nil, err
	}

	entries := make([]RawIncomeEntry, 0, len(dbEntries))
	for _, entry := range dbEntries {
		entryDate, err := utils.ConvertToDate(entry.EntryDate, business.Timezone)
		if err != nil {
			return nil, err
		}
		entries = append(entries, RawIncomeEntry{
			EntryDate:      entryDate.Format(dayFormat),
			IncomeSourceId: entry.IncomeSourceId,
			Amount:         entry.Amount,
		})
	}

	expenses := make([]ExpenseItem, 0, len(invoices))
	for _, invoice := range invoices {
		dueDate, err := utils.ConvertToDate(invoice.DueDate, business.Timezone)
		if err != nil {
			return nil, err
		}
		supplierName := ""
		if invoice.Supplier != nil {
			supplierName = invoice.Supplier.Name
		}
		expenses = append(expenses, ExpenseItem{
			SupplierName:  supplierName,
			Amount:        invoice.TotalAmount,
			PaymentMethod: invoice.PaymentMethod,
			DueDate:       dueDate.Format(dayFormat),
		})
	}

	beginBalance, err := balanceAtReportStart(ctx, business, sources, fromTime, fromLocal)
	if err != nil {
		return nil, err
	}

	response := AssembleCashFlow(entries, sources, overrides, expenses,
		granularity, fromLocal, toLocal, beginBalance, config.GapFillEmptyBuckets())

	if config.StrictSettlementRules() {
		if err := ConfigurationViolation(response.Warnings); err != nil {
			return nil, err
		}
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, response, reportCacheTTL())
	}
	logSlowReport(ctx, "cash_flow", started, map[string]any{
		"granularity": granularity, "rows": len(response.Rows),
	})

	return response, nil
}

// BalanceForward rolls an opening balance from its anchor date up to, but
// not including, windowStart. The rows go through the same settlement
// pipeline as the report rows, so a window's closing balance always equals
// the next window's opening balance even when fees or settlement lag cross
// the boundary.
func BalanceForward(opening decimal.Decimal, entries []RawIncomeEntry, sources []*models.IncomeSource,
	overrides []*models.SettlementOverride, expenses []ExpenseItem, anchor, windowStart time.Time) decimal.Decimal {

	anchorKey := anchor.Format(dayFormat)
	startKey := windowStart.Format(dayFormat)

	settled, _ := ComputeSettlement(entries, sources)
	settled = ApplyOverrides(settled, overrides)

	balance := opening
	for date, items := range settled {
		if date < anchorKey || date >= startKey {
			continue
		}
		for _, item := range items {
			balance = balance.Add(item.NetAmount)
		}
	}
	for _, expense := range expenses {
		if expense.DueDate < anchorKey || expense.DueDate >= startKey {
			continue
		}
		balance = balance.Sub(expense.Amount)
	}
	return balance
}

// balanceAtReportStart rolls the business's opening balance forward from
// its anchor date to the report window's start. Settlements landing before
// the anchor date are already inside the stated opening balance and are
// excluded.
func balanceAtReportStart(ctx context.Context, business *models.Business, sources []*models.IncomeSource,
	fromTime time.Time, fromLocal time.Time) (decimal.Decimal, error) {

	if !business.OpeningBalanceDate.Before(fromTime) {
		return business.OpeningBalance, nil
	}

	db := config.GetDB()
	businessId := business.ID.String()
	anchor := business.OpeningBalanceDate
	lookbackFrom := anchor.AddDate(0, 0, -models.MaxSettlementLagDays(sources))

	var dbEntries []*models.DailyEntry
	if err := db.WithContext(ctx).
		Where("business_id = ? AND entry_date >= ? AND entry_date < ?", businessId, lookbackFrom, fromTime).
		Find(&dbEntries).Error; err != nil {
		return business.OpeningBalance, err
	}
	var overrides []*models.SettlementOverride
	if err := db.WithContext(ctx).
		Where("business_id = ? AND settlement_date >= ? AND settlement_date < ?", businessId, anchor, fromTime).
		Find(&overrides).Error; err != nil {
		return business.OpeningBalance, err
	}
	var invoices []*models.Invoice
	if err := db.WithContext(ctx).
		Where("business_id = ? AND due_date >= ? AND due_date < ? AND current_status != ?",
			businessId, anchor, fromTime, models.InvoiceStatusVoid).
		Find(&invoices).Error; err != nil {
		return business.OpeningBalance, err
	}

	entries := make([]RawIncomeEntry, 0, len(dbEntries))
	for _, entry := range dbEntries {
		entryDate, err := utils.ConvertToDate(entry.EntryDate, business.Timezone)
		if err != nil {
			return business.OpeningBalance, err
		}
		entries = append(entries, RawIncomeEntry{
			EntryDate:      entryDate.Format(dayFormat),
			IncomeSourceId: entry.IncomeSourceId,
			Amount:         entry.Amount,
		})
	}
	expenses := make([]ExpenseItem, 0, len(invoices))
	for _, invoice := range invoices {
		dueDate, err := utils.ConvertToDate(invoice.DueDate, business.Timezone)
		if err != nil {
			return business.OpeningBalance, err
		}
		expenses = append(expenses, ExpenseItem{
			Amount:  invoice.TotalAmount,
			DueDate: dueDate.Format(dayFormat),
		})
	}
	anchorLocal, err := utils.ConvertToDate(anchor, business.Timezone)
	if err != nil {
		return business.OpeningBalance, err
	}

	return BalanceForward(business.OpeningBalance, entries, sources, overrides, expenses, anchorLocal, fromLocal), nil
}
