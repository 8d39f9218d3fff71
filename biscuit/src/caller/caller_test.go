package caller

import "testing"

func TestDistinctCallerDisabledByDefault(t *testing.T) {
	var dc Distinct_caller_t
	novel, _ := dc.Distinct()
	if novel {
		t.Fatal("Distinct must report false when Enabled is false")
	}
	if dc.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 while disabled", dc.Len())
	}
}

func callSite(dc *Distinct_caller_t) (bool, string) {
	return dc.Distinct()
}

func TestDistinctFirstCallIsNovel(t *testing.T) {
	dc := Distinct_caller_t{Enabled: true}
	novel, trace := callSite(&dc)
	if !novel {
		t.Fatal("the first call from a given path must be reported as novel")
	}
	if trace == "" {
		t.Fatal("a novel call path should include a formatted stack trace")
	}
	if dc.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after one distinct path", dc.Len())
	}
}

func TestDistinctRepeatedCallIsNotNovel(t *testing.T) {
	dc := Distinct_caller_t{Enabled: true}
	var novel bool
	for i := 0; i < 2; i++ {
		novel, _ = callSite(&dc)
	}
	if novel {
		t.Fatal("calling from the same path twice must not be novel the second time")
	}
	if dc.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (still one distinct path)", dc.Len())
	}
}

func TestDistinctWhitelistedFunctionIsSkipped(t *testing.T) {
	dc := Distinct_caller_t{Enabled: true, Whitel: map[string]bool{
		"caller.TestDistinctWhitelistedFunctionIsSkipped": true,
	}}
	novel, _ := callSite(&dc)
	if novel {
		t.Fatal("a whitelisted caller must never be reported as novel")
	}
}
