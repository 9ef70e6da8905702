package reports_test

import (
	"math/rand"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/models/reports"
	"github.com/shopspring/decimal"
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func TestAggregateEvents_SingleDayInflowOutflow(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-03-01", Amount: d("100"), Kind: reports.EventKindInflow},
		{Date: "2024-03-01", Amount: d("40"), Kind: reports.EventKindOutflow},
	}

	buckets, warnings := reports.AggregateEvents(events, models.ReportGranularityDaily)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if b.Key != "2024-03-01" {
		t.Fatalf("key = %q, want 2024-03-01", b.Key)
	}
	if !b.Inflows.Equal(d("100")) || !b.Outflows.Equal(d("40")) {
		t.Fatalf("inflows/outflows = %s/%s, want 100/40", b.Inflows, b.Outflows)
	}
	if !b.Net.Equal(d("60")) || !b.Cumulative.Equal(d("60")) {
		t.Fatalf("net/cumulative = %s/%s, want 60/60", b.Net, b.Cumulative)
	}
}

func TestBucketKey_WeeklyPrecedingSunday(t *testing.T) {
	// 2024-03-06 is a Wednesday; the preceding Sunday is 2024-03-03
	wednesday := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	key := reports.BucketKey(wednesday, models.ReportGranularityWeekly)
	if key != "2024-03-03" {
		t.Fatalf("weekly key = %q, want 2024-03-03", key)
	}

	start, end, err := reports.BucketDateRange(key, models.ReportGranularityWeekly)
	if err != nil {
		t.Fatalf("BucketDateRange: %v", err)
	}
	if start.Format("2006-01-02") != "2024-03-03" || end.Format("2006-01-02") != "2024-03-09" {
		t.Fatalf("range = %s..%s, want 2024-03-03..2024-03-09", start, end)
	}
}

func TestBucketKey_MonthlyLeapYear(t *testing.T) {
	date := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	key := reports.BucketKey(date, models.ReportGranularityMonthly)
	if key != "2024-02" {
		t.Fatalf("monthly key = %q, want 2024-02", key)
	}

	start, end, err := reports.BucketDateRange(key, models.ReportGranularityMonthly)
	if err != nil {
		t.Fatalf("BucketDateRange: %v", err)
	}
	if start.Format("2006-01-02") != "2024-02-01" || end.Format("2006-01-02") != "2024-02-29" {
		t.Fatalf("range = %s..%s, want 2024-02-01..2024-02-29", start, end)
	}
}

func TestBucketDateRange_ContainsDate(t *testing.T) {
	granularities := []models.ReportGranularity{
		models.ReportGranularityDaily,
		models.ReportGranularityWeekly,
		models.ReportGranularityMonthly,
	}
	// sweep a year including a leap February
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		for _, g := range granularities {
			key := reports.BucketKey(date, g)
			start, end, err := reports.BucketDateRange(key, g)
			if err != nil {
				t.Fatalf("BucketDateRange(%q, %s): %v", key, g, err)
			}
			if date.Before(start) || date.After(end) {
				t.Fatalf("date %s outside range %s..%s for granularity %s",
					date.Format("2006-01-02"), start, end, g)
			}
		}
		date = date.AddDate(0, 0, 1)
	}
}

func TestAggregateEvents_NetConservation(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-01-05", Amount: d("250.50"), Kind: reports.EventKindInflow},
		{Date: "2024-01-12", Amount: d("99.99"), Kind: reports.EventKindOutflow},
		{Date: "2024-02-01", Amount: d("1000"), Kind: reports.EventKindInflow},
		{Date: "2024-02-29", Amount: d("123.45"), Kind: reports.EventKindOutflow},
		{Date: "2024-03-03", Amount: d("0.01"), Kind: reports.EventKindInflow},
	}

	wantNet := d("250.50").Sub(d("99.99")).Add(d("1000")).Sub(d("123.45")).Add(d("0.01"))

	for _, g := range []models.ReportGranularity{
		models.ReportGranularityDaily,
		models.ReportGranularityWeekly,
		models.ReportGranularityMonthly,
	} {
		buckets, _ := reports.AggregateEvents(events, g)
		total := decimal.Zero
		for _, b := range buckets {
			total = total.Add(b.Net)
		}
		if !total.Equal(wantNet) {
			t.Fatalf("granularity %s: sum of nets = %s, want %s", g, total, wantNet)
		}
	}
}

func TestAggregateEvents_OrderIndependent(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-01-05", Amount: d("10"), Kind: reports.EventKindInflow},
		{Date: "2024-01-06", Amount: d("20"), Kind: reports.EventKindInflow},
		{Date: "2024-01-07", Amount: d("5"), Kind: reports.EventKindOutflow},
		{Date: "2024-01-05", Amount: d("2"), Kind: reports.EventKindOutflow},
		{Date: "2024-01-08", Amount: d("7"), Kind: reports.EventKindInflow},
	}

	want, _ := reports.AggregateEvents(events, models.ReportGranularityDaily)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]reports.DailyEvent, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, _ := reports.AggregateEvents(shuffled, models.ReportGranularityDaily)
		if len(got) != len(want) {
			t.Fatalf("trial %d: bucket count %d != %d", trial, len(got), len(want))
		}
		for i := range want {
			if got[i].Key != want[i].Key ||
				!got[i].Inflows.Equal(want[i].Inflows) ||
				!got[i].Outflows.Equal(want[i].Outflows) ||
				!got[i].Cumulative.Equal(want[i].Cumulative) {
				t.Fatalf("trial %d: bucket %d differs after shuffle: %+v vs %+v",
					trial, i, got[i], want[i])
			}
		}
	}
}

func TestAggregateEvents_CumulativeConsistency(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-01-01", Amount: d("100"), Kind: reports.EventKindInflow},
		{Date: "2024-01-03", Amount: d("30"), Kind: reports.EventKindOutflow},
		{Date: "2024-01-10", Amount: d("55.55"), Kind: reports.EventKindInflow},
		{Date: "2024-02-02", Amount: d("200"), Kind: reports.EventKindOutflow},
	}

	buckets, _ := reports.AggregateEvents(events, models.ReportGranularityDaily)
	if len(buckets) == 0 {
		t.Fatal("expected buckets")
	}
	if !buckets[0].Cumulative.Equal(buckets[0].Net) {
		t.Fatalf("first cumulative %s != first net %s", buckets[0].Cumulative, buckets[0].Net)
	}
	for i := 1; i < len(buckets); i++ {
		want := buckets[i-1].Cumulative.Add(buckets[i].Net)
		if !buckets[i].Cumulative.Equal(want) {
			t.Fatalf("bucket %d cumulative = %s, want %s", i, buckets[i].Cumulative, want)
		}
	}
}

func TestAggregateEvents_ZeroAmountStillCreatesBucket(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-04-10", Amount: decimal.Zero, Kind: reports.EventKindInflow},
	}
	buckets, warnings := reports.AggregateEvents(events, models.ReportGranularityDaily)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(buckets) != 1 {
		t.Fatalf("expected zero-amount event to create a bucket, got %d", len(buckets))
	}
	if !buckets[0].Net.IsZero() {
		t.Fatalf("net = %s, want 0", buckets[0].Net)
	}
}

func TestAggregateEvents_MalformedDateSkippedWithWarning(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-01-01", Amount: d("10"), Kind: reports.EventKindInflow},
		{Date: "not-a-date", Amount: d("999"), Kind: reports.EventKindInflow},
	}
	buckets, warnings := reports.AggregateEvents(events, models.ReportGranularityDaily)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	if len(warnings) != 1 || warnings[0].Kind != reports.WarningKindValidation {
		t.Fatalf("expected one validation warning, got %v", warnings)
	}
}

func TestAggregateEvents_EmptyInput(t *testing.T) {
	buckets, warnings := reports.AggregateEvents(nil, models.ReportGranularityWeekly)
	if len(buckets) != 0 {
		t.Fatalf("expected empty bucket list, got %d", len(buckets))
	}
	if warnings != nil {
		t.Fatalf("expected nil warnings, got %v", warnings)
	}
}

func TestAggregateEvents_SparseBucketsNotSynthesized(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-01-01", Amount: d("10"), Kind: reports.EventKindInflow},
		{Date: "2024-01-10", Amount: d("20"), Kind: reports.EventKindInflow},
	}
	buckets, _ := reports.AggregateEvents(events, models.ReportGranularityDaily)
	if len(buckets) != 2 {
		t.Fatalf("expected only event-bearing buckets, got %d", len(buckets))
	}
}

func TestBucketLabel_WeekSpansMonthBoundary(t *testing.T) {
	// 2024-01-31 is a Wednesday; its week starts Sunday 2024-01-28 and
	// runs through 2024-02-03, crossing into February unclipped
	date := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	key := reports.BucketKey(date, models.ReportGranularityWeekly)
	if key != "2024-01-28" {
		t.Fatalf("key = %q, want 2024-01-28", key)
	}
	_, end, err := reports.BucketDateRange(key, models.ReportGranularityWeekly)
	if err != nil {
		t.Fatalf("BucketDateRange: %v", err)
	}
	if end.Format("2006-01-02") != "2024-02-03" {
		t.Fatalf("week end = %s, want 2024-02-03", end.Format("2006-01-02"))
	}
	label := reports.BucketLabel(key, models.ReportGranularityWeekly)
	if label != "28/01 - 03/02" {
		t.Fatalf("label = %q, want 28/01 - 03/02", label)
	}
}

func TestGapFillBuckets_FillsEmptyDays(t *testing.T) {
	events := []reports.DailyEvent{
		{Date: "2024-01-01", Amount: d("10"), Kind: reports.EventKindInflow},
		{Date: "2024-01-03", Amount: d("5"), Kind: reports.EventKindOutflow},
	}
	buckets, _ := reports.AggregateEvents(events, models.ReportGranularityDaily)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	filled := reports.GapFillBuckets(buckets, models.ReportGranularityDaily, from, to)

	if len(filled) != 4 {
		t.Fatalf("expected 4 buckets after gap fill, got %d", len(filled))
	}
	if !filled[1].Net.IsZero() || filled[1].Key != "2024-01-02" {
		t.Fatalf("expected zero bucket for 2024-01-02, got %+v", filled[1])
	}
	// cumulative stays consistent across synthesized rows
	if !filled[3].Cumulative.Equal(d("5")) {
		t.Fatalf("final cumulative = %s, want 5", filled[3].Cumulative)
	}
}
