package reports

import (
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"github.com/shopspring/decimal"
)

// RawIncomeEntry is one income movement before settlement, already fetched
// and validated at the storage boundary.
type RawIncomeEntry struct {
	EntryDate      string          `json:"entry_date"`
	IncomeSourceId int             `json:"income_source_id"`
	Amount         decimal.Decimal `json:"amount"`
}

// SettledIncomeItem is the result of applying a source's settlement rule to
// one raw entry. net_amount = gross_amount - fee_amount always holds,
// including after an override.
type SettledIncomeItem struct {
	IncomeSourceId    int             `json:"income_source_id"`
	IncomeSourceName  string          `json:"income_source_name"`
	OriginalEntryDate string          `json:"original_entry_date"`
	SettlementDate    string          `json:"settlement_date"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	FeeAmount         decimal.Decimal `json:"fee_amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
}

// OverrideKey identifies the settled items one override applies to.
// A struct key, not string concatenation, so source ids can never collide
// with the date part.
type OverrideKey struct {
	SettlementDate string
	IncomeSourceId int
}

// fallback display name for entries whose source is inactive or unknown
const otherSourceName = "Other"

// SettlementDate applies a source's settlement rule to an entry date.
// TwiceMonthly batches: entries through the 15th land on the last day of
// the same month, entries from the 16th land on the 15th of the next month.
func SettlementDate(entryDate time.Time, source *models.IncomeSource) time.Time {
	if source == nil {
		return entryDate
	}
	switch source.SettlementScheme {
	case models.SettlementSchemeFixedDelay:
		return entryDate.AddDate(0, 0, source.DelayDays)
	case models.SettlementSchemeTwiceMonthly:
		if entryDate.Day() <= 15 {
			// last day of the entry's month
			return time.Date(entryDate.Year(), entryDate.Month()+1, 0, 0, 0, 0, 0, entryDate.Location())
		}
		return time.Date(entryDate.Year(), entryDate.Month()+1, 15, 0, 0, 0, 0, entryDate.Location())
	default:
		return entryDate
	}
}

// settlementFee computes the per-entry fee of a source: percent of gross
// plus a fixed part, rounded to 2 places.
func settlementFee(gross decimal.Decimal, source *models.IncomeSource) decimal.Decimal {
	if source == nil {
		return decimal.Zero
	}
	fee := gross.Mul(source.FeePercent).Div(decimal.NewFromInt(100)).Add(source.FeeFixed)
	fee = fee.Round(2)
	if fee.GreaterThan(gross) {
		return gross
	}
	return fee
}

// ComputeSettlement maps raw income entries to the dates the money actually
// lands in the bank, net of each source's fee. Revenue is never dropped:
// entries of inactive or unknown sources settle with the best available
// rule under a generic display name, and a source with no rule at all gets
// a same-day zero-fee fallback plus a configuration warning.
//
// Pure function over in-memory rows; safe to call concurrently.
func ComputeSettlement(entries []RawIncomeEntry, sources []*models.IncomeSource) (map[string][]SettledIncomeItem, []RowWarning) {
	var warnings []RowWarning

	sourceById := make(map[int]*models.IncomeSource, len(sources))
	for _, source := range sources {
		sourceById[source.ID] = source
	}
	warnedSources := make(map[int]bool)

	settled := make(map[string][]SettledIncomeItem)
	for _, entry := range entries {
		entryDate, err := time.Parse(dayFormat, entry.EntryDate)
		if err != nil {
			warnings = append(warnings, RowWarning{
				Kind:    WarningKindValidation,
				Message: fmt.Sprintf("skipped income entry with malformed date %q", entry.EntryDate),
			})
			continue
		}

		source := sourceById[entry.IncomeSourceId]
		name := otherSourceName
		if source != nil {
			if source.IsActive != nil && *source.IsActive {
				name = source.Name
			}
			if !source.HasSettlementRule() {
				if !warnedSources[entry.IncomeSourceId] {
					warnings = append(warnings, RowWarning{
						Kind:    WarningKindConfiguration,
						Message: fmt.Sprintf("income source %q has no settlement rule, settling same-day with zero fee", source.Name),
					})
					warnedSources[entry.IncomeSourceId] = true
				}
				source = nil
			}
		} else {
			if !warnedSources[entry.IncomeSourceId] {
				warnings = append(warnings, RowWarning{
					Kind:    WarningKindConfiguration,
					Message: fmt.Sprintf("income source %d not found, settling same-day with zero fee", entry.IncomeSourceId),
				})
				warnedSources[entry.IncomeSourceId] = true
			}
		}

		fee := settlementFee(entry.Amount, source)
		settlementDate := SettlementDate(entryDate, source).Format(dayFormat)

		settled[settlementDate] = append(settled[settlementDate], SettledIncomeItem{
			IncomeSourceId:    entry.IncomeSourceId,
			IncomeSourceName:  name,
			OriginalEntryDate: entry.EntryDate,
			SettlementDate:    settlementDate,
			GrossAmount:       entry.Amount,
			FeeAmount:         fee,
			NetAmount:         entry.Amount.Sub(fee),
		})
	}

	return settled, warnings
}

// ConfigurationViolation turns collected configuration warnings into an
// error. Strict report modes use it to fail the report where the default
// mode would settle same-day with zero fee and keep going.
func ConfigurationViolation(warnings []RowWarning) error {
	for _, warning := range warnings {
		if warning.Kind == WarningKindConfiguration {
			return fmt.Errorf("settlement configuration error: %s", warning.Message)
		}
	}
	return nil
}

// ApplyOverrides replaces the computed net amount of settled items whose
// (settlement_date, income_source_id) key carries a manual override, and
// recomputes the fee as the residual so gross stays the ledger truth.
// Pure re-map: the input map is never mutated, so the same settled map can
// be reused with different override sets.
func ApplyOverrides(settled map[string][]SettledIncomeItem, overrides []*models.SettlementOverride) map[string][]SettledIncomeItem {
	overrideByKey := make(map[OverrideKey]decimal.Decimal, len(overrides))
	for _, override := range overrides {
		key := OverrideKey{
			SettlementDate: override.SettlementDate.Format(dayFormat),
			IncomeSourceId: override.IncomeSourceId,
		}
		overrideByKey[key] = override.Amount
	}

	result := make(map[string][]SettledIncomeItem, len(settled))
	for date, items := range settled {
		mapped := make([]SettledIncomeItem, len(items))
		for i, item := range items {
			key := OverrideKey{SettlementDate: item.SettlementDate, IncomeSourceId: item.IncomeSourceId}
			if overrideAmount, ok := overrideByKey[key]; ok {
				item.NetAmount = overrideAmount
				item.FeeAmount = item.GrossAmount.Sub(overrideAmount)
			}
			mapped[i] = item
		}
		result[date] = mapped
	}
	return result
}
