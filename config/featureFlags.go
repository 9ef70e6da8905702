package config

import (
	"os"
	"strings"
)

// GapFillEmptyBuckets emits explicit zero rows for days/weeks/months with no
// activity inside the report range. Default off: the report is sparse and the
// dashboard fills gaps at render time.
//
// Set via env:
// - REPORT_GAP_FILL=true
func GapFillEmptyBuckets() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("REPORT_GAP_FILL")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictSettlementRules makes an entry whose income source carries no
// settlement rule fail the report instead of falling back to same-day / zero
// fee. Intended for staging, where a missing rule is a configuration bug.
//
// Set via env:
// - STRICT_SETTLEMENT_RULES=true
func StrictSettlementRules() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_SETTLEMENT_RULES")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
