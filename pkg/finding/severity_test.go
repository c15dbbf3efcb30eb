package finding

import (
	"encoding/json"
	"sort"
	"testing"
)

func TestParseSeverityNormalizes(t *testing.T) {
	t.Parallel()

	// Rule files and plugins spell severities however they like.
	for in, want := range map[string]Severity{
		"critical": Critical,
		"Critical": Critical,
		"HIGH":     High,
		" medium ": Medium,
		"low":      Low,
		"INFO":     Info,
	} {
		got, err := ParseSeverity(in)
		if err != nil {
			t.Errorf("ParseSeverity(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", "informational", "sev1"} {
		if got, err := ParseSeverity(bad); err == nil {
			t.Errorf("ParseSeverity(%q) = %q, want error", bad, got)
		}
	}
}

func TestIsValidIsCaseSensitive(t *testing.T) {
	t.Parallel()

	// IsValid checks the canonical form only; anything user-supplied
	// goes through ParseSeverity first.
	for _, s := range Ordered() {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []Severity{"CRITICAL", "Critical", "unknown", ""} {
		if s.IsValid() {
			t.Errorf("%q should be rejected", s)
		}
	}
}

func TestScoreOrdersSeverities(t *testing.T) {
	t.Parallel()

	shuffled := []Severity{Low, Critical, Medium, Info, High}
	sort.Slice(shuffled, func(i, j int) bool {
		return shuffled[i].Score() > shuffled[j].Score()
	})

	want := Ordered()
	for i := range want {
		if shuffled[i] != want[i] {
			t.Fatalf("score sort produced %v, want %v", shuffled, want)
		}
	}

	if Severity("bogus").Score() != 0 {
		t.Error("unknown severity should score below info")
	}
}

func TestSeveritySerializesAsLowercaseString(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Critical)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"critical"` {
		t.Errorf("serialized as %s", data)
	}

	var back Severity
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != Critical {
		t.Errorf("round trip produced %q", back)
	}
}

func TestSARIFLevelMapping(t *testing.T) {
	t.Parallel()

	for s, want := range map[Severity]string{
		Critical: "error",
		High:     "error",
		Medium:   "warning",
		Low:      "note",
		Info:     "note",
		"":       "note",
	} {
		if got := s.ToSARIF(); got != want {
			t.Errorf("%q maps to SARIF level %q, want %q", s, got, want)
		}
	}

	// security-severity drives GitHub's banding; critical must clear
	// the 9.0 threshold and high the 7.0 one.
	if Critical.ToSARIFScore() != "9.5" || High.ToSARIFScore() != "8.0" {
		t.Errorf("scores %s/%s fell out of GitHub's severity bands",
			Critical.ToSARIFScore(), High.ToSARIFScore())
	}
}
