package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// Payment settles one supplier invoice, possibly across several payment
// methods (splits). Splits must sum to the payment total.
type Payment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id" binding:"required"`
	SupplierId  int             `gorm:"index;not null" json:"supplier_id"`
	PaymentDate time.Time       `gorm:"index;not null" json:"payment_date" binding:"required"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Notes       string          `gorm:"type:text" json:"notes"`
	SequenceNo  int64           `gorm:"not null" json:"sequence_no"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Splits  []*PaymentSplit `gorm:"foreignKey:PaymentId" json:"splits"`
	Invoice *Invoice        `gorm:"foreignKey:InvoiceId" json:"invoice,omitempty"`
}

type PaymentSplit struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id"`
	PaymentId     int             `gorm:"index;not null" json:"payment_id"`
	PaymentMethod PaymentMethod   `gorm:"type:enum('Cash', 'BankTransfer', 'Cheque', 'CreditCard', 'Other');default:Cash" json:"payment_method"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Reference     string          `gorm:"size:255" json:"reference"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	InvoiceId   int                `json:"invoice_id" binding:"required"`
	PaymentDate time.Time          `json:"payment_date" binding:"required"`
	Amount      decimal.Decimal    `json:"amount"`
	Notes       string             `json:"notes"`
	Splits      []*NewPaymentSplit `json:"splits" binding:"required,dive"`
}

type NewPaymentSplit struct {
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
}

func (p Payment) GetBusinessId() string {
	return p.BusinessId
}

func (p Payment) GetId() int {
	return p.ID
}

func (input *NewPayment) validate(_ context.Context, _ string) error {
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if len(input.Splits) == 0 {
		return errors.New("at least one payment split is required")
	}

	splitTotal := decimal.Zero
	for _, split := range input.Splits {
		if !split.Amount.IsPositive() {
			return errors.New("split amount must be positive")
		}
		splitTotal = splitTotal.Add(split.Amount)
	}
	if !splitTotal.Equal(input.Amount) {
		return errors.New("payment splits must sum to the payment amount")
	}
	return nil
}

// CreatePayment records a payment and reduces the invoice's remaining
// balance in one transaction. The invoice row is read under FOR UPDATE so
// two concurrent payments serialize on the remaining-balance check instead
// of both passing it and overwriting each other's paid amount.
func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	var invoice Invoice
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, input.InvoiceId).
		First(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, errors.New("invoice not found")
	}
	if invoice.CurrentStatus == InvoiceStatusVoid {
		tx.Rollback()
		return nil, errors.New("cannot pay a void invoice")
	}
	if err := invoice.AddPaidAmount(input.Amount); err != nil {
		tx.Rollback()
		return nil, err
	}

	seqNo, err := utils.GetSequence[Payment](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	payment := Payment{
		BusinessId:  businessId,
		InvoiceId:   invoice.ID,
		SupplierId:  invoice.SupplierId,
		PaymentDate: input.PaymentDate,
		Amount:      input.Amount,
		Notes:       input.Notes,
		SequenceNo:  seqNo,
	}
	for _, split := range input.Splits {
		payment.Splits = append(payment.Splits, &PaymentSplit{
			BusinessId:    businessId,
			PaymentMethod: split.PaymentMethod,
			Amount:        split.Amount,
			Reference:     split.Reference,
		})
	}

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&invoice).Updates(map[string]interface{}{
		"PaidAmount":    invoice.PaidAmount,
		"CurrentStatus": invoice.CurrentStatus,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &payment, nil
}

// DeletePayment removes a payment and restores the invoice balance.
func DeletePayment(ctx context.Context, id int) (*Payment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	payment, err := utils.FetchModel[Payment](ctx, businessId, id, "Splits")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	// Same row lock as CreatePayment: the restored balance must be computed
	// from the committed paid amount, not a stale read.
	var invoice Invoice
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, payment.InvoiceId).
		First(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice.SubtractPaidAmount(payment.Amount)

	if err := tx.WithContext(ctx).Where("payment_id = ?", payment.ID).Delete(&PaymentSplit{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&invoice).Updates(map[string]interface{}{
		"PaidAmount":    invoice.PaidAmount,
		"CurrentStatus": invoice.CurrentStatus,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return payment, nil
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Payment](ctx, businessId, id, "Splits", "Invoice")
}

// GetPaymentsByInvoice lists payments of one invoice, oldest first.
func GetPaymentsByInvoice(ctx context.Context, invoiceId int) ([]*Payment, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var payments []*Payment
	err := db.WithContext(ctx).
		Preload("Splits").
		Where("business_id = ? AND invoice_id = ?", businessId, invoiceId).
		Order("payment_date, id").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
