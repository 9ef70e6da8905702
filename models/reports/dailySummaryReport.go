package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
)

type IncomeExpenseResponse struct {
	TotalIncome          decimal.Decimal        `json:"total_income"`
	TotalExpense         decimal.Decimal        `json:"total_expense"`
	IncomeExpenseDetails []IncomeExpenseDetails `json:"income_expense_details"`
}

type IncomeExpenseDetails struct {
	Month         string          `json:"month"`
	IncomeAmount  decimal.Decimal `json:"income_amount"`
	ExpenseAmount decimal.Decimal `json:"expense_amount"`
}

// GetTotalIncomeExpense returns per-month income/expense totals from the
// daily summary table for a dashboard filter range. Months with no rows
// come back as explicit zeros (the recursive month list fills the gaps).
func GetTotalIncomeExpense(ctx context.Context, filterType string) (*IncomeExpenseResponse, error) {
	started := time.Now()
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if _, err := models.GetBusinessById(ctx, businessId); err != nil {
		return nil, err
	}

	startDate, endDate, err := utils.GetStartAndEndDateWithFilterType(filterType)
	if err != nil {
		return nil, err
	}

	query := `
				WITH RECURSIVE MonthList AS (
					SELECT ? AS month_date
					UNION ALL
					SELECT DATE_ADD(month_date, INTERVAL 1 MONTH)
					FROM MonthList
					WHERE DATE_ADD(month_date, INTERVAL 1 MONTH) <= ?
				),
				MonthlyAgg AS (
					SELECT
						DATE_FORMAT(summary_date, '%Y-%m') AS month,
						SUM(total_income) AS income_amount,
						SUM(total_expense) AS expense_amount
					FROM daily_summaries
					WHERE
						summary_date >= ?
						AND summary_date <= ?
						AND business_id = ?
					GROUP BY DATE_FORMAT(summary_date, '%Y-%m')
				)
				SELECT
					DATE_FORMAT(ml.month_date, '%Y-%m') AS month,
					COALESCE(ma.income_amount, 0) AS IncomeAmount,
					COALESCE(ma.expense_amount, 0) AS ExpenseAmount
				FROM
					MonthList ml
				LEFT JOIN
					MonthlyAgg ma ON DATE_FORMAT(ml.month_date, '%Y-%m') = ma.month
				ORDER BY
					ml.month_date;
                `

	rows, err := db.Raw(query,
		startDate, endDate,
		startDate, endDate, businessId).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	response := &IncomeExpenseResponse{
		TotalIncome:          decimal.NewFromInt(0),
		TotalExpense:         decimal.NewFromInt(0),
		IncomeExpenseDetails: []IncomeExpenseDetails{},
	}

	for rows.Next() {
		var monthStr string
		var incomeAmount, expenseAmount decimal.Decimal

		err := rows.Scan(&monthStr, &incomeAmount, &expenseAmount)
		if err != nil {
			return nil, err
		}

		// Parse month string to time.Time
		month, err := time.Parse("2006-01", monthStr)
		if err != nil {
			return nil, err
		}

		formattedMonth := month.Format("2006-Jan")

		detail := IncomeExpenseDetails{
			Month:         formattedMonth,
			IncomeAmount:  incomeAmount,
			ExpenseAmount: expenseAmount,
		}
		response.IncomeExpenseDetails = append(response.IncomeExpenseDetails, detail)
		response.TotalIncome = response.TotalIncome.Add(incomeAmount)
		response.TotalExpense = response.TotalExpense.Add(expenseAmount)
	}

	logSlowReport(ctx, "daily_summary", started, map[string]any{"filter": filterType})

	return response, nil
}

type TopExpensesResponse struct {
	SupplierName string          `json:"supplier_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	InvoiceCount int             `json:"invoice_count"`
}

// GetTopExpenses ranks suppliers by invoice total inside a filter range.
func GetTopExpenses(ctx context.Context, filterType string, limit int) ([]*TopExpensesResponse, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	startDate, endDate, err := utils.GetStartAndEndDateWithFilterType(filterType)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT
			suppliers.name AS supplier_name,
			SUM(invoices.total_amount) AS total_amount,
			COUNT(invoices.id) AS invoice_count
		FROM invoices
		LEFT JOIN suppliers ON suppliers.id = invoices.supplier_id
		WHERE
			invoices.business_id = ?
			AND invoices.due_date >= ?
			AND invoices.due_date <= ?
			AND invoices.current_status != 'Void'
		GROUP BY invoices.supplier_id, suppliers.name
		ORDER BY total_amount DESC
		LIMIT ?;
	`

	var records []*TopExpensesResponse
	if err := db.WithContext(ctx).Raw(query,
		businessId, startDate, endDate, limit).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
