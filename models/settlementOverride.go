package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// SettlementOverride replaces the computed net amount for every settled item
// of one income source on one settlement date, typically after the real bank
// deposit turned out different from the rule's estimate.
//
// Natural key: (business_id, settlement_date, income_source_id). Writing the
// same key twice replaces the first value.
type SettlementOverride struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null;uniqueIndex:idx_so_biz_date_source,priority:1" json:"business_id"`
	SettlementDate time.Time       `gorm:"not null;uniqueIndex:idx_so_biz_date_source,priority:2" json:"settlement_date" binding:"required"`
	IncomeSourceId int             `gorm:"not null;uniqueIndex:idx_so_biz_date_source,priority:3" json:"income_source_id" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Note           string          `gorm:"size:255" json:"note"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSettlementOverride struct {
	SettlementDate time.Time       `json:"settlement_date" binding:"required"`
	IncomeSourceId int             `json:"income_source_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Note           string          `json:"note"`
}

func (o SettlementOverride) GetBusinessId() string {
	return o.BusinessId
}

func (o SettlementOverride) GetId() int {
	return o.ID
}

// UpsertSettlementOverride creates or replaces the override for the
// (settlement_date, income_source_id) key. Writes for one business are
// serialized with the redis lock so two concurrent upserts of the same key
// cannot race past the unique index.
func UpsertSettlementOverride(ctx context.Context, input *NewSettlementOverride) (*SettlementOverride, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if input.Amount.IsNegative() {
		return nil, errors.New("override amount must not be negative")
	}
	if err := utils.ValidateResourceId[IncomeSource](ctx, businessId, input.IncomeSourceId); err != nil {
		return nil, errors.New("income source not found")
	}

	if err := utils.BusinessLock(ctx, businessId, "SettlementOverride", "models", "UpsertSettlementOverride"); err != nil {
		return nil, err
	}

	db := config.GetDB()

	var override SettlementOverride
	err := db.WithContext(ctx).
		Where("business_id = ? AND settlement_date = ? AND income_source_id = ?",
			businessId, input.SettlementDate, input.IncomeSourceId).
		First(&override).Error
	if err == nil {
		// replace existing value
		override.Amount = input.Amount
		override.Note = input.Note
		if err := db.WithContext(ctx).Model(&override).Updates(map[string]interface{}{
			"Amount": input.Amount,
			"Note":   input.Note,
		}).Error; err != nil {
			return nil, err
		}
		cleanReportCache(businessId)
		return &override, nil
	}

	override = SettlementOverride{
		BusinessId:     businessId,
		SettlementDate: input.SettlementDate,
		IncomeSourceId: input.IncomeSourceId,
		Amount:         input.Amount,
		Note:           input.Note,
	}
	if err := db.WithContext(ctx).Create(&override).Error; err != nil {
		// A concurrent writer can still win the unique index between the
		// read and the insert; fold into an update instead of failing.
		if isDuplicateKeyErr(err) {
			if err := db.WithContext(ctx).
				Model(&SettlementOverride{}).
				Where("business_id = ? AND settlement_date = ? AND income_source_id = ?",
					businessId, input.SettlementDate, input.IncomeSourceId).
				Updates(map[string]interface{}{
					"Amount": input.Amount,
					"Note":   input.Note,
				}).Error; err != nil {
				return nil, err
			}
			err = db.WithContext(ctx).
				Where("business_id = ? AND settlement_date = ? AND income_source_id = ?",
					businessId, input.SettlementDate, input.IncomeSourceId).
				First(&override).Error
			if err != nil {
				return nil, err
			}
			cleanReportCache(businessId)
			return &override, nil
		}
		return nil, err
	}
	cleanReportCache(businessId)
	return &override, nil
}

func DeleteSettlementOverride(ctx context.Context, id int) (*SettlementOverride, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	override, err := utils.FetchModel[SettlementOverride](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(override).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return override, nil
}

// GetSettlementOverrides lists overrides inside a settlement date range.
func GetSettlementOverrides(ctx context.Context, fromDate, toDate *MyDateString) ([]*SettlementOverride, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if err := fromDate.StartOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}
	if err := toDate.EndOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if fromDate != nil {
		dbCtx = dbCtx.Where("settlement_date >= ?", time.Time(*fromDate))
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("settlement_date <= ?", time.Time(*toDate))
	}

	var overrides []*SettlementOverride
	if err := dbCtx.Order("settlement_date, income_source_id").Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}
