package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/config"
	"bitbucket.org/mmdatafocus/cashflow_backend/utils"
	"github.com/shopspring/decimal"
)

// DailyEntry is one recorded income movement: money earned on a date through
// an income source, before settlement. The cash flow report turns these into
// settled bank amounts via the source's settlement rule.
type DailyEntry struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	EntryDate      time.Time       `gorm:"index;not null" json:"entry_date" binding:"required"`
	IncomeSourceId int             `gorm:"index;not null" json:"income_source_id" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Description    string          `gorm:"size:255" json:"description"`
	SequenceNo     int64           `gorm:"not null" json:"sequence_no"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	IncomeSource *IncomeSource `gorm:"foreignKey:IncomeSourceId" json:"income_source,omitempty"`
}

type NewDailyEntry struct {
	EntryDate      time.Time       `json:"entry_date" binding:"required"`
	IncomeSourceId int             `json:"income_source_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
}

type DailyEntriesEdge Edge[DailyEntry]

func (obj DailyEntry) GetId() int {
	return obj.ID
}

func (obj DailyEntry) GetBusinessId() string {
	return obj.BusinessId
}

type DailyEntriesConnection struct {
	PageInfo *PageInfo           `json:"pageInfo"`
	Edges    []*DailyEntriesEdge `json:"edges"`
}

// implements CompositeCursor
func (obj DailyEntry) GetCursor() string {
	return obj.EntryDate.Format("2006-01-02 15:04:05")
}

// validate input for both create & update. (id = 0 for create)
func (input *NewDailyEntry) validate(ctx context.Context, businessId string, _ int) error {
	if input.Amount.IsNegative() {
		return errors.New("amount must not be negative")
	}
	if err := utils.ValidateResourceId[IncomeSource](ctx, businessId, input.IncomeSourceId); err != nil {
		return errors.New("income source not found")
	}
	return nil
}

func CreateDailyEntry(ctx context.Context, input *NewDailyEntry) (*DailyEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[DailyEntry](ctx, businessId)
	if err != nil {
		return nil, err
	}

	entry := DailyEntry{
		BusinessId:     businessId,
		EntryDate:      input.EntryDate,
		IncomeSourceId: input.IncomeSourceId,
		Amount:         input.Amount,
		Description:    input.Description,
		SequenceNo:     seqNo,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return &entry, nil
}

func UpdateDailyEntry(ctx context.Context, id int, input *NewDailyEntry) (*DailyEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	entry, err := utils.FetchModel[DailyEntry](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	entry.EntryDate = input.EntryDate
	entry.IncomeSourceId = input.IncomeSourceId
	entry.Amount = input.Amount
	entry.Description = input.Description

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(entry).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return entry, nil
}

func DeleteDailyEntry(ctx context.Context, id int) (*DailyEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	entry, err := utils.FetchModel[DailyEntry](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(entry).Error; err != nil {
		return nil, err
	}
	cleanReportCache(businessId)
	return entry, nil
}

func GetDailyEntry(ctx context.Context, id int) (*DailyEntry, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[DailyEntry](ctx, businessId, id, "IncomeSource")
}

// PaginateDailyEntries pages entries newest first with a composite
// (entry_date, id) cursor.
func PaginateDailyEntries(ctx context.Context, limit int, after *string,
	fromDate *MyDateString, toDate *MyDateString, incomeSourceId *int) ([]*DailyEntriesEdge, *PageInfo, error) {

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
	dbCtx := db.WithContext(ctx).Model(&DailyEntry{}).
		Preload("IncomeSource").
		Where("business_id = ?", businessId)
	if fromDate != nil {
		dbCtx.Where("entry_date >= ?", time.Time(*fromDate))
	}
	if toDate != nil {
		dbCtx.Where("entry_date <= ?", time.Time(*toDate))
	}
	if incomeSourceId != nil && *incomeSourceId > 0 {
		dbCtx.Where("income_source_id = ?", *incomeSourceId)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[DailyEntry](dbCtx, limit, after, "entry_date", "<")
	if err != nil {
		return nil, nil, err
	}

	entryEdges := make([]*DailyEntriesEdge, 0, len(edges))
	for i := range edges {
		edge := DailyEntriesEdge(edges[i])
		entryEdges = append(entryEdges, &edge)
	}
	return entryEdges, pageInfo, nil
}
