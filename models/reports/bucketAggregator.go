package reports

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"github.com/shopspring/decimal"
)

const dayFormat = "2006-01-02"
const monthFormat = "2006-01"

type EventKind string

const (
	EventKindInflow  EventKind = "inflow"
	EventKindOutflow EventKind = "outflow"
)

// DailyEvent is one financial movement on a calendar date. Dates are plain
// YYYY-MM-DD strings in the business's local calendar, never UTC-shifted.
type DailyEvent struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Kind   EventKind       `json:"kind"`
}

// Bucket is one aggregation window (day, Sunday-start week, or calendar
// month) with its summed figures.
type Bucket struct {
	Key        string          `json:"key"`
	Label      string          `json:"label"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
	Inflows    decimal.Decimal `json:"inflows"`
	Outflows   decimal.Decimal `json:"outflows"`
	Net        decimal.Decimal `json:"net"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

type WarningKind string

const (
	WarningKindValidation    WarningKind = "ValidationError"
	WarningKindConfiguration WarningKind = "ConfigurationError"
)

// RowWarning is a per-row issue collected during report computation. Bad
// rows are skipped and reported, never thrown, so one dirty row cannot
// blank the whole report.
type RowWarning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// BucketKey computes the canonical bucket identity of a date: the date
// itself for daily, the Sunday on or before it for weekly, the YYYY-MM
// prefix for monthly. All three formats sort chronologically as strings.
func BucketKey(date time.Time, granularity models.ReportGranularity) string {
	switch granularity {
	case models.ReportGranularityWeekly:
		sunday := date.AddDate(0, 0, -int(date.Weekday()))
		return sunday.Format(dayFormat)
	case models.ReportGranularityMonthly:
		return date.Format(monthFormat)
	default:
		return date.Format(dayFormat)
	}
}

// BucketLabel formats a bucket key for display: day/month for daily, the
// 7-day inclusive span for weekly, month-year for monthly.
func BucketLabel(key string, granularity models.ReportGranularity) string {
	switch granularity {
	case models.ReportGranularityWeekly:
		start, err := time.Parse(dayFormat, key)
		if err != nil {
			return key
		}
		end := start.AddDate(0, 0, 6)
		return fmt.Sprintf("%s - %s", start.Format("02/01"), end.Format("02/01"))
	case models.ReportGranularityMonthly:
		month, err := time.Parse(monthFormat, key)
		if err != nil {
			return key
		}
		return month.Format("2006-Jan")
	default:
		day, err := time.Parse(dayFormat, key)
		if err != nil {
			return key
		}
		return day.Format("02/01")
	}
}

// BucketDateRange is the inverse of BucketKey: the inclusive date range a
// bucket key spans.
func BucketDateRange(key string, granularity models.ReportGranularity) (time.Time, time.Time, error) {
	switch granularity {
	case models.ReportGranularityWeekly:
		start, err := time.Parse(dayFormat, key)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, start.AddDate(0, 0, 6), nil
	case models.ReportGranularityMonthly:
		start, err := time.Parse(monthFormat, key)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// day 0 of the following month is the last day of this month
		end := time.Date(start.Year(), start.Month()+1, 0, 0, 0, 0, 0, start.Location())
		return start, end, nil
	default:
		day, err := time.Parse(dayFormat, key)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return day, day, nil
	}
}

// AggregateEvents groups events by bucket key, sums inflows and outflows
// per bucket, sorts keys ascending and runs one cumulative pass. Buckets
// with no events are not synthesized: an all-zero day produces no row.
// Malformed event dates are skipped and collected as warnings.
func AggregateEvents(events []DailyEvent, granularity models.ReportGranularity) ([]*Bucket, []RowWarning) {
	var warnings []RowWarning

	buckets := make(map[string]*Bucket)
	for _, event := range events {
		date, err := time.Parse(dayFormat, event.Date)
		if err != nil {
			warnings = append(warnings, RowWarning{
				Kind:    WarningKindValidation,
				Message: fmt.Sprintf("skipped event with malformed date %q", event.Date),
			})
			continue
		}

		key := BucketKey(date, granularity)
		bucket, ok := buckets[key]
		if !ok {
			start, end, err := BucketDateRange(key, granularity)
			if err != nil {
				// cannot happen for a key BucketKey produced
				warnings = append(warnings, RowWarning{
					Kind:    WarningKindValidation,
					Message: fmt.Sprintf("skipped event with unresolvable bucket key %q", key),
				})
				continue
			}
			bucket = &Bucket{
				Key:       key,
				Label:     BucketLabel(key, granularity),
				StartDate: start.Format(dayFormat),
				EndDate:   end.Format(dayFormat),
			}
			buckets[key] = bucket
		}

		if event.Kind == EventKindOutflow {
			bucket.Outflows = bucket.Outflows.Add(event.Amount)
		} else {
			bucket.Inflows = bucket.Inflows.Add(event.Amount)
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]*Bucket, 0, len(keys))
	cumulative := decimal.Zero
	for _, key := range keys {
		bucket := buckets[key]
		bucket.Net = bucket.Inflows.Sub(bucket.Outflows)
		cumulative = cumulative.Add(bucket.Net)
		bucket.Cumulative = cumulative
		result = append(result, bucket)
	}

	return result, warnings
}

// GapFillBuckets synthesizes zero buckets for windows inside
// [fromDate, toDate] that received no events, keeping the cumulative pass
// consistent. Off by default (REPORT_GAP_FILL).
func GapFillBuckets(buckets []*Bucket, granularity models.ReportGranularity, fromDate, toDate time.Time) []*Bucket {
	if toDate.Before(fromDate) {
		return buckets
	}

	existing := make(map[string]*Bucket, len(buckets))
	for _, bucket := range buckets {
		existing[bucket.Key] = bucket
	}

	var keys []string
	switch granularity {
	case models.ReportGranularityWeekly:
		cursor, _ := time.Parse(dayFormat, BucketKey(fromDate, granularity))
		for !cursor.After(toDate) {
			keys = append(keys, cursor.Format(dayFormat))
			cursor = cursor.AddDate(0, 0, 7)
		}
	case models.ReportGranularityMonthly:
		cursor := time.Date(fromDate.Year(), fromDate.Month(), 1, 0, 0, 0, 0, fromDate.Location())
		for !cursor.After(toDate) {
			keys = append(keys, cursor.Format(monthFormat))
			cursor = cursor.AddDate(0, 1, 0)
		}
	default:
		cursor := fromDate
		for !cursor.After(toDate) {
			keys = append(keys, cursor.Format(dayFormat))
			cursor = cursor.AddDate(0, 0, 1)
		}
	}

	result := make([]*Bucket, 0, len(keys))
	cumulative := decimal.Zero
	for _, key := range keys {
		bucket, ok := existing[key]
		if !ok {
			start, end, err := BucketDateRange(key, granularity)
			if err != nil {
				continue
			}
			bucket = &Bucket{
				Key:       key,
				Label:     BucketLabel(key, granularity),
				StartDate: start.Format(dayFormat),
				EndDate:   end.Format(dayFormat),
			}
		}
		cumulative = cumulative.Add(bucket.Net)
		bucket.Cumulative = cumulative
		result = append(result, bucket)
	}
	return result
}
