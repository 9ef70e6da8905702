package config

import "testing"

func TestStrictSettlementRules(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{" true ", true},
		{"false", false},
		{"0", false},
		{"off", false},
	}
	for _, c := range cases {
		t.Setenv("STRICT_SETTLEMENT_RULES", c.value)
		if got := StrictSettlementRules(); got != c.want {
			t.Fatalf("StrictSettlementRules with %q = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestGapFillEmptyBuckets(t *testing.T) {
	t.Setenv("REPORT_GAP_FILL", "")
	if GapFillEmptyBuckets() {
		t.Fatalf("gap fill must default off")
	}
	t.Setenv("REPORT_GAP_FILL", "true")
	if !GapFillEmptyBuckets() {
		t.Fatalf("REPORT_GAP_FILL=true should enable gap fill")
	}
}
