package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Business struct {
	ID                 uuid.UUID       `gorm:"primary_key" json:"id"`
	Name               string          `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName        string          `gorm:"size:100" json:"contact_name"`
	Email              string          `gorm:"size:255" json:"email"`
	Phone              string          `gorm:"size:20" json:"phone"`
	Address            string          `gorm:"type:text" json:"address"`
	Timezone           string          `gorm:"size:50" json:"timezone"`
	CurrencySymbol     string          `gorm:"size:10;default:'₪'" json:"currency_symbol"`
	CompanyId          string          `gorm:"size:100" json:"company_id"`
	TaxId              string          `gorm:"size:100" json:"tax_id"`
	OpeningBalance     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	OpeningBalanceDate time.Time       `json:"opening_balance_date"`
	IsActive           *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name               string          `json:"name" binding:"required"`
	ContactName        string          `json:"contact_name"`
	Email              string          `json:"email" binding:"required"`
	Phone              string          `json:"phone"`
	Address            string          `json:"address"`
	Timezone           string          `json:"timezone"`
	CurrencySymbol     string          `json:"currency_symbol"`
	CompanyId          string          `json:"company_id"`
	TaxId              string          `json:"tax_id"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OpeningBalanceDate time.Time       `json:"opening_balance_date"`
}

type NewOpeningBalance struct {
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OpeningBalanceDate time.Time       `json:"opening_balance_date" binding:"required"`
}

func (business *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+fmt.Sprint(business.ID), business, 0)
}

func (business *Business) RemoveRedis() error {
	return config.RemoveRedisKey("Business:" + fmt.Sprint(business.ID))
}

func (input *NewBusiness) validate(ctx context.Context, id string) error {
	if !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return errors.New("invalid timezone")
		}
	}

	// unique name among active businesses
	db := config.GetDB()
	var count int64
	dbCtx := db.WithContext(ctx).Model(&Business{}).Where("name = ?", input.Name)
	if id != "" {
		dbCtx.Where("NOT id = ?", id)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate business name")
	}
	return nil
}

// CreateBusiness creates a business plus its default income sources.
func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}
	db := config.GetDB()

	tx := db.Begin()

	BID := uuid.New()
	timezone := "Asia/Jerusalem"
	if input.Timezone != "" {
		timezone = input.Timezone
	}
	currencySymbol := input.CurrencySymbol
	if currencySymbol == "" {
		currencySymbol = "₪"
	}
	openingDate := input.OpeningBalanceDate
	if openingDate.IsZero() {
		openingDate = time.Now()
	}
	business := Business{
		ID:                 BID,
		Name:               input.Name,
		ContactName:        input.ContactName,
		Email:              input.Email,
		Phone:              input.Phone,
		Address:            input.Address,
		Timezone:           timezone,
		CurrencySymbol:     currencySymbol,
		CompanyId:          input.CompanyId,
		TaxId:              input.TaxId,
		OpeningBalance:     input.OpeningBalance,
		OpeningBalanceDate: openingDate,
		IsActive:           utils.NewTrue(),
	}

	// create business
	err := tx.WithContext(ctx).Create(&business).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// create default income sources
	businessId := business.ID.String()
	ctx = context.WithValue(ctx, utils.ContextKeyBusinessId, businessId)
	if err := CreateDefaultIncomeSources(tx, ctx, businessId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err = tx.Commit().Error; err != nil {
		return nil, err
	}

	// caching
	if err := business.StoreRedis(); err != nil {
		return nil, err
	}

	return &business, nil
}

func UpdateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).First(&business, "id = ?", businessId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	business.Name = input.Name
	business.ContactName = input.ContactName
	business.Email = input.Email
	business.Phone = input.Phone
	business.Address = input.Address
	business.CompanyId = input.CompanyId
	business.TaxId = input.TaxId
	if input.Timezone != "" {
		business.Timezone = input.Timezone
	}
	if input.CurrencySymbol != "" {
		business.CurrencySymbol = input.CurrencySymbol
	}

	if err := db.WithContext(ctx).Save(&business).Error; err != nil {
		return nil, err
	}

	// caching
	if err := business.StoreRedis(); err != nil {
		return nil, err
	}

	return &business, nil
}

// UpdateOpeningBalance updates the opening balance anchor used by the cash
// flow report's cumulative column.
func UpdateOpeningBalance(ctx context.Context, input *NewOpeningBalance) (*Business, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).First(&business, "id = ?", businessId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	business.OpeningBalance = input.OpeningBalance
	business.OpeningBalanceDate = input.OpeningBalanceDate

	if err := db.WithContext(ctx).Model(&business).Updates(map[string]interface{}{
		"OpeningBalance":     input.OpeningBalance,
		"OpeningBalanceDate": input.OpeningBalanceDate,
	}).Error; err != nil {
		return nil, err
	}

	// caching
	if err := business.StoreRedis(); err != nil {
		return nil, err
	}
	cleanReportCache(businessId)

	return &business, nil
}

func ToggleActiveBusiness(ctx context.Context, id uuid.UUID, isActive bool) (*Business, error) {
	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).First(&business, "id = ?", id.String()).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := db.WithContext(ctx).Model(&business).
		UpdateColumn("IsActive", isActive).Error; err != nil {
		return nil, err
	}

	if err := business.RemoveRedis(); err != nil {
		return nil, err
	}
	return &business, nil
}

// GetBusinessById reads a business, redis first then db.
func GetBusinessById(ctx context.Context, id string) (*Business, error) {
	var business *Business
	exists, err := config.GetRedisObject("Business:"+id, &business)
	if err != nil {
		return nil, err
	}
	if exists {
		return business, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).First(&business, "id = ?", id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// caching
	if err := business.StoreRedis(); err != nil {
		return nil, err
	}
	return business, nil
}

// GetBusiness reads the ctx's business.
func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return GetBusinessById(ctx, businessId)
}

func GetBusinesses(ctx context.Context, name *string) ([]*Business, error) {
	db := config.GetDB()
	var businesses []*Business
	dbCtx := db.WithContext(ctx)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&businesses).Error; err != nil {
		return nil, err
	}
	return businesses, nil
}
