package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncomeSource is a channel money arrives through (credit card processor,
// delivery app, cash register, bank transfer). Each source carries its own
// settlement rule: when the gross amount actually lands in the bank and what
// fee the channel takes per entry.
type IncomeSource struct {
	ID               int              `gorm:"primary_key" json:"id"`
	BusinessId       string           `gorm:"index;not null" json:"business_id"`
	Name             string           `gorm:"size:100;not null" json:"name" binding:"required"`
	SettlementScheme SettlementScheme `gorm:"type:enum('SameDay', 'FixedDelay', 'TwiceMonthly');default:SameDay" json:"settlement_scheme"`
	DelayDays        int              `gorm:"default:0" json:"delay_days"`
	FeePercent       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"fee_percent"`
	FeeFixed         decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"fee_fixed"`
	IsActive         *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIncomeSource struct {
	Name             string           `json:"name" binding:"required"`
	SettlementScheme SettlementScheme `json:"settlement_scheme"`
	DelayDays        int              `json:"delay_days"`
	FeePercent       decimal.Decimal  `json:"fee_percent"`
	FeeFixed         decimal.Decimal  `json:"fee_fixed"`
}

func (s IncomeSource) GetBusinessId() string {
	return s.BusinessId
}

func (s IncomeSource) GetId() int {
	return s.ID
}

func (s IncomeSource) RemoveInstanceRedis() error {
	return utils.RemoveRedisItem[IncomeSource](s.ID)
}

func (s IncomeSource) RemoveAllRedis() error {
	return utils.RemoveRedisList[IncomeSource](s.BusinessId)
}

// HasSettlementRule reports whether the source carries a usable settlement
// configuration. A blank scheme means the source was created before the
// settlement setup screen existed.
func (s *IncomeSource) HasSettlementRule() bool {
	if s == nil {
		return false
	}
	switch s.SettlementScheme {
	case SettlementSchemeSameDay, SettlementSchemeFixedDelay, SettlementSchemeTwiceMonthly:
		return true
	}
	return false
}

// SettlementLagDays is the worst-case number of days between an entry date
// and its settlement date under this source's rule.
func (s *IncomeSource) SettlementLagDays() int {
	if s == nil {
		return 0
	}
	switch s.SettlementScheme {
	case SettlementSchemeFixedDelay:
		return s.DelayDays
	case SettlementSchemeTwiceMonthly:
		// day 16 of a 31-day month settles on the 15th of the next month
		return 62
	}
	return 0
}

// MaxSettlementLagDays bounds how far back the report has to fetch entries so
// that nothing settling inside the report window is missed.
func MaxSettlementLagDays(sources []*IncomeSource) int {
	maxLag := 0
	for _, source := range sources {
		if lag := source.SettlementLagDays(); lag > maxLag {
			maxLag = lag
		}
	}
	return maxLag
}

func (input *NewIncomeSource) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[IncomeSource](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.DelayDays < 0 {
		return errors.New("delay days must not be negative")
	}
	if input.SettlementScheme == SettlementSchemeFixedDelay && input.DelayDays == 0 {
		return errors.New("fixed delay scheme requires delay days")
	}
	if input.FeePercent.IsNegative() || input.FeePercent.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("fee percent must be between 0 and 100")
	}
	if input.FeeFixed.IsNegative() {
		return errors.New("fixed fee must not be negative")
	}
	return nil
}

func CreateIncomeSource(ctx context.Context, input *NewIncomeSource) (*IncomeSource, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	scheme := input.SettlementScheme
	if scheme == "" {
		scheme = SettlementSchemeSameDay
	}
	source := IncomeSource{
		BusinessId:       businessId,
		Name:             input.Name,
		SettlementScheme: scheme,
		DelayDays:        input.DelayDays,
		FeePercent:       input.FeePercent,
		FeeFixed:         input.FeeFixed,
		IsActive:         utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&source).Error; err != nil {
		return nil, err
	}

	// clear cache
	if err := RemoveRedisBoth(source); err != nil {
		return nil, err
	}
	return &source, nil
}

func UpdateIncomeSource(ctx context.Context, id int, input *NewIncomeSource) (*IncomeSource, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	source, err := utils.FetchModel[IncomeSource](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	source.Name = input.Name
	if input.SettlementScheme != "" {
		source.SettlementScheme = input.SettlementScheme
	}
	source.DelayDays = input.DelayDays
	source.FeePercent = input.FeePercent
	source.FeeFixed = input.FeeFixed

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(source).Error; err != nil {
		return nil, err
	}

	// clear cache
	if err := RemoveRedisBoth(*source); err != nil {
		return nil, err
	}
	return source, nil
}

func DeleteIncomeSource(ctx context.Context, id int) (*IncomeSource, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	source, err := utils.FetchModel[IncomeSource](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	// sources referenced by entries cannot be removed, only deactivated
	count, err := utils.ResourceCountWhere[DailyEntry](ctx, businessId, "income_source_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("income source is referenced by daily entries")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(source).Error; err != nil {
		return nil, err
	}

	// clear cache
	if err := RemoveRedisBoth(*source); err != nil {
		return nil, err
	}
	return source, nil
}

func GetIncomeSource(ctx context.Context, id int) (*IncomeSource, error) {
	return GetResource[IncomeSource](ctx, id)
}

// GetIncomeSources lists the business's sources, redis cached.
func GetIncomeSources(ctx context.Context) ([]*IncomeSource, error) {
	return ListAllResource[IncomeSource, IncomeSource](ctx, "name")
}

// CreateDefaultIncomeSources seeds the sources a new business starts with.
func CreateDefaultIncomeSources(tx *gorm.DB, ctx context.Context, businessId string) error {
	defaults := []IncomeSource{
		{
			BusinessId:       businessId,
			Name:             "Cash",
			SettlementScheme: SettlementSchemeSameDay,
			IsActive:         utils.NewTrue(),
		},
		{
			BusinessId:       businessId,
			Name:             "Credit Card",
			SettlementScheme: SettlementSchemeFixedDelay,
			DelayDays:        3,
			FeePercent:       decimal.NewFromFloat(1.2),
			IsActive:         utils.NewTrue(),
		},
		{
			BusinessId:       businessId,
			Name:             "Bank Transfer",
			SettlementScheme: SettlementSchemeFixedDelay,
			DelayDays:        1,
			IsActive:         utils.NewTrue(),
		},
	}
	for i := range defaults {
		if err := tx.WithContext(ctx).Create(&defaults[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
