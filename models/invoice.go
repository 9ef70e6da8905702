package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
)

// Invoice is a supplier invoice (a bill to pay). Its due date is what the
// cash flow report treats as the expected outflow date.
type Invoice struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id"`
	SupplierId      int             `gorm:"index;not null" json:"supplier_id" binding:"required"`
	InvoiceNumber   string          `gorm:"size:255;not null" json:"invoice_number"`
	SequenceNo      int64           `gorm:"not null" json:"sequence_no"`
	InvoiceDate     time.Time       `gorm:"not null" json:"invoice_date" binding:"required"`
	DueDate         time.Time       `gorm:"index;not null" json:"due_date"`
	PaymentTerms    PaymentTerms    `gorm:"type:enum('DueOnReceipt', 'Net15', 'Net30', 'Net45', 'Net60', 'DueEndOfMonth', 'DueEndOfNextMonth', 'Custom');default:DueOnReceipt" json:"payment_terms"`
	CustomDays      int             `gorm:"default:0" json:"custom_days"`
	PaymentMethod   PaymentMethod   `gorm:"type:enum('Cash', 'BankTransfer', 'Cheque', 'CreditCard', 'Other');default:BankTransfer" json:"payment_method"`
	ReferenceNumber string          `gorm:"size:255" json:"reference_number"`
	Notes           string          `gorm:"type:text" json:"notes"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	CurrentStatus   InvoiceStatus   `gorm:"type:enum('Draft', 'Confirmed', 'Void', 'Partial Paid', 'Paid');default:Draft" json:"current_status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Supplier *Supplier `gorm:"foreignKey:SupplierId" json:"supplier,omitempty"`
}

type NewInvoice struct {
	SupplierId      int             `json:"supplier_id" binding:"required"`
	InvoiceDate     time.Time       `json:"invoice_date" binding:"required"`
	PaymentTerms    PaymentTerms    `json:"payment_terms"`
	CustomDays      int             `json:"custom_days"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

type InvoicesEdge Edge[Invoice]

func (obj Invoice) GetId() int {
	return obj.ID
}

func (obj Invoice) GetBusinessId() string {
	return obj.BusinessId
}

type InvoicesConnection struct {
	PageInfo *PageInfo       `json:"pageInfo"`
	Edges    []*InvoicesEdge `json:"edges"`
}

// implements CompositeCursor
func (obj Invoice) GetCursor() string {
	return obj.DueDate.Format("2006-01-02 15:04:05")
}

func (inv *Invoice) RemainingBalance() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// AddPaidAmount applies a payment split and moves the status along.
func (inv *Invoice) AddPaidAmount(amount decimal.Decimal) error {
	if amount.GreaterThan(inv.RemainingBalance()) {
		return errors.New("amount must be less than or equal to remaining balance of invoice")
	}
	inv.PaidAmount = inv.PaidAmount.Add(amount)
	if inv.RemainingBalance().IsZero() {
		inv.CurrentStatus = InvoiceStatusPaid
	} else {
		inv.CurrentStatus = InvoiceStatusPartialPaid
	}
	return nil
}

// SubtractPaidAmount reverses a payment and moves the status back.
func (inv *Invoice) SubtractPaidAmount(amount decimal.Decimal) {
	inv.PaidAmount = inv.PaidAmount.Sub(amount)
	if inv.PaidAmount.IsNegative() {
		inv.PaidAmount = decimal.Zero
	}
	if inv.PaidAmount.IsZero() {
		inv.CurrentStatus = InvoiceStatusConfirmed
	} else {
		inv.CurrentStatus = InvoiceStatusPartialPaid
	}
}

// validate input for both create & update. (id = 0 for create)
func (input *NewInvoice) validate(ctx context.Context, businessId string, _ int) error {
	if err := utils.ValidateResourceId[Supplier](ctx, businessId, input.SupplierId); err != nil {
		return errors.New("supplier not found")
	}
	if input.TotalAmount.IsNegative() {
		return errors.New("total amount must not be negative")
	}
	if input.PaymentTerms == PaymentTermsCustom && input.CustomDays <= 0 {
		return errors.New("custom payment terms require custom days")
	}
	return nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[Invoice](ctx, businessId)
	if err != nil {
		return nil, err
	}

	paymentTerms := input.PaymentTerms
	if paymentTerms == "" {
		paymentTerms = PaymentTermsDueOnReceipt
	}
	dueDate := calculateDueDate(input.InvoiceDate, paymentTerms, input.CustomDays)

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentMethodBankTransfer
	}
	invoice := Invoice{
		BusinessId:      businessId,
		SupplierId:      input.SupplierId,
		InvoiceNumber:   fmt.Sprintf("INV-%06d", seqNo),
		SequenceNo:      seqNo,
		InvoiceDate:     input.InvoiceDate,
		DueDate:         *dueDate,
		PaymentTerms:    paymentTerms,
		CustomDays:      input.CustomDays,
		PaymentMethod:   paymentMethod,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		TotalAmount:     input.TotalAmount,
		CurrentStatus:   InvoiceStatusConfirmed,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return &invoice, nil
}

func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[Invoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.CurrentStatus == InvoiceStatusVoid {
		return nil, errors.New("cannot update a void invoice")
	}
	if invoice.PaidAmount.IsPositive() && !input.TotalAmount.GreaterThanOrEqual(invoice.PaidAmount) {
		return nil, errors.New("total amount must not be less than amount already paid")
	}

	paymentTerms := input.PaymentTerms
	if paymentTerms == "" {
		paymentTerms = invoice.PaymentTerms
	}
	dueDate := calculateDueDate(input.InvoiceDate, paymentTerms, input.CustomDays)

	invoice.SupplierId = input.SupplierId
	invoice.InvoiceDate = input.InvoiceDate
	invoice.DueDate = *dueDate
	invoice.PaymentTerms = paymentTerms
	invoice.CustomDays = input.CustomDays
	if input.PaymentMethod != "" {
		invoice.PaymentMethod = input.PaymentMethod
	}
	invoice.ReferenceNumber = input.ReferenceNumber
	invoice.Notes = input.Notes
	invoice.TotalAmount = input.TotalAmount

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return invoice, nil
}

// VoidInvoice takes an invoice out of the expected outflows without deleting
// its history. Paid invoices cannot be voided.
func VoidInvoice(ctx context.Context, id int) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.PaidAmount.IsPositive() {
		return nil, errors.New("cannot void an invoice with payments")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(invoice).
		UpdateColumn("CurrentStatus", InvoiceStatusVoid).Error; err != nil {
		return nil, err
	}
	invoice.CurrentStatus = InvoiceStatusVoid
	cleanReportCache(businessId)
	return invoice, nil
}

func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.PaidAmount.IsPositive() {
		return nil, errors.New("cannot delete an invoice with payments")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(invoice).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Invoice](ctx, businessId, id, "Supplier")
}

// PaginateInvoices pages invoices by due date with a composite cursor.
func PaginateInvoices(ctx context.Context, limit int, after *string,
	fromDate *MyDateString, toDate *MyDateString, supplierId *int, status *InvoiceStatus) ([]*InvoicesEdge, *PageInfo, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, nil, errors.New("business id is required")
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, nil, err
	}
	if err := fromDate.StartOfDayUTCTime(business.Timezone); err != nil {
		return nil, nil, err
	}
	if err := toDate.EndOfDayUTCTime(business.Timezone); err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Invoice{}).
		Preload("Supplier").
		Where("business_id = ?", businessId)
	if fromDate != nil {
		dbCtx.Where("due_date >= ?", time.Time(*fromDate))
	}
	if toDate != nil {
		dbCtx.Where("due_date <= ?", time.Time(*toDate))
	}
	if supplierId != nil && *supplierId > 0 {
		dbCtx.Where("supplier_id = ?", *supplierId)
	}
	if status != nil && *status != "" {
		dbCtx.Where("current_status = ?", *status)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Invoice](dbCtx, limit, after, "due_date", "<")
	if err != nil {
		return nil, nil, err
	}

	invoiceEdges := make([]*InvoicesEdge, 0, len(edges))
	for i := range edges {
		edge := InvoicesEdge(edges[i])
		invoiceEdges = append(invoiceEdges, &edge)
	}
	return invoiceEdges, pageInfo, nil
}
