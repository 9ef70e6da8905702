package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"github.com/shopspring/decimal"
)

// DailySummary is a small, query-friendly aggregate table used by dashboards.
//
// Grain: (business_id, summary_date). Values are stored as positive numbers:
// - total_income: gross income entered that day
// - total_expense: invoice amounts falling due that day
//
// NOTE: This table is derived data and can be rebuilt from daily entries and
// invoices at any time.
type DailySummary struct {
	BusinessId  string    `gorm:"primaryKey;size:64;index:idx_ds_biz_date,priority:1" json:"business_id"`
	SummaryDate time.Time `gorm:"primaryKey;index:idx_ds_biz_date,priority:2" json:"summary_date"`

	TotalIncome  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_income"`
	TotalExpense decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_expense"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RebuildDailySummary recomputes the daily_summaries rows of one business
// inside [fromDate, toDate] from daily entries and invoice due dates,
// replacing whatever was there. Returns the number of days written.
func RebuildDailySummary(ctx context.Context, businessId string, fromDate, toDate time.Time) (int, error) {
	db := config.GetDB()

	type dayRow struct {
		Day   time.Time       `gorm:"column:day"`
		Total decimal.Decimal `gorm:"column:total"`
	}

	var incomeRows []dayRow
	err := db.WithContext(ctx).Raw(`
		SELECT DATE(entry_date) AS day, COALESCE(SUM(amount), 0) AS total
		FROM daily_entries
		WHERE business_id = ? AND entry_date >= ? AND entry_date <= ?
		GROUP BY DATE(entry_date)`,
		businessId, fromDate, toDate).Scan(&incomeRows).Error
	if err != nil {
		return 0, err
	}

	var expenseRows []dayRow
	err = db.WithContext(ctx).Raw(`
		SELECT DATE(due_date) AS day, COALESCE(SUM(total_amount), 0) AS total
		FROM invoices
		WHERE business_id = ? AND due_date >= ? AND due_date <= ? AND current_status != ?
		GROUP BY DATE(due_date)`,
		businessId, fromDate, toDate, InvoiceStatusVoid).Scan(&expenseRows).Error
	if err != nil {
		return 0, err
	}

	summaries := make(map[time.Time]*DailySummary)
	for _, row := range incomeRows {
		day := row.Day.Truncate(24 * time.Hour)
		summaries[day] = &DailySummary{
			BusinessId:  businessId,
			SummaryDate: day,
			TotalIncome: row.Total,
		}
	}
	for _, row := range expenseRows {
		day := row.Day.Truncate(24 * time.Hour)
		summary, ok := summaries[day]
		if !ok {
			summary = &DailySummary{
				BusinessId:  businessId,
				SummaryDate: day,
			}
			summaries[day] = summary
		}
		summary.TotalExpense = row.Total
	}

	tx := db.Begin()
	err = tx.WithContext(ctx).
		Where("business_id = ? AND summary_date >= ? AND summary_date <= ?", businessId, fromDate, toDate).
		Delete(&DailySummary{}).Error
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	for _, summary := range summaries {
		if err := tx.WithContext(ctx).Create(summary).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	return len(summaries), nil
}
