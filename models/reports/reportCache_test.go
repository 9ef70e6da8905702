package reports_test

import (
	"path/filepath"
	"testing"

	"bitbucket.org/mmdatafocus/cashflow_backend/models"
	"bitbucket.org/mmdatafocus/cashflow_backend/models/reports"
)

func TestReportCachePatternCoversReportKeys(t *testing.T) {
	businessId := "8f14e45f-ea3c-4c2b-9d6a-000000000001"
	pattern := models.ReportCachePattern(businessId)

	keys := []string{
		reports.ReportCacheKey(businessId, "2024-01-01", "2024-01-31", models.ReportGranularityDaily),
		reports.ReportCacheKey(businessId, "2024-01-01", "2024-12-31", models.ReportGranularityMonthly),
	}
	for _, key := range keys {
		ok, err := filepath.Match(pattern, key)
		if err != nil {
			t.Fatalf("bad pattern %q: %v", pattern, err)
		}
		if !ok {
			t.Fatalf("pattern %q does not match cache key %q", pattern, key)
		}
	}

	other := reports.ReportCacheKey("another-business", "2024-01-01", "2024-01-31", models.ReportGranularityDaily)
	if ok, _ := filepath.Match(pattern, other); ok {
		t.Fatalf("pattern %q must not match another business's key %q", pattern, other)
	}
}
