package exitcode

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/output/events"
)

func findingEvent() *events.FindingEvent {
	return &events.FindingEvent{
		BaseEvent: events.NewBase(events.EventTypeFinding, "scan-x1"),
		Finding: finding.Finding{
			Rule:     "aws-access-key-id",
			Plugin:   "regex",
			Severity: finding.Critical,
			Asset:    "https://cdn.example.com/app.js",
			Line:     88,
		},
	}
}

func errorEvent() *events.ErrorEvent {
	return &events.ErrorEvent{
		BaseEvent: events.NewBase(events.EventTypeError, "scan-x1"),
		Stage:     events.StageDownload,
		Target:    "https://cdn.example.com/app.js",
		Message:   "status 404",
	}
}

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		m := New(DefaultConfig())

		if m.cfg.SecretsCode != defaults.ExitSecretsFound {
			t.Errorf("expected SecretsCode=%d, got %d", defaults.ExitSecretsFound, m.cfg.SecretsCode)
		}
		if m.cfg.ErrorThreshold != 50 {
			t.Errorf("expected ErrorThreshold=50, got %d", m.cfg.ErrorThreshold)
		}
		if m.cfg.ExitOnError {
			t.Error("expected ExitOnError=false by default")
		}
	})

	t.Run("zero values get defaults", func(t *testing.T) {
		m := New(Config{})

		if m.cfg.SecretsCode != defaults.ExitSecretsFound {
			t.Errorf("expected SecretsCode=%d, got %d", defaults.ExitSecretsFound, m.cfg.SecretsCode)
		}
		if m.cfg.ErrorThreshold != 50 {
			t.Errorf("expected ErrorThreshold=50, got %d", m.cfg.ErrorThreshold)
		}
	})

	t.Run("custom config preserved", func(t *testing.T) {
		m := New(Config{
			SecretsCode:    5,
			ErrorThreshold: 20,
			ExitOnError:    true,
		})

		if m.cfg.SecretsCode != 5 {
			t.Errorf("expected SecretsCode=5, got %d", m.cfg.SecretsCode)
		}
		if m.cfg.ErrorThreshold != 20 {
			t.Errorf("expected ErrorThreshold=20, got %d", m.cfg.ErrorThreshold)
		}
		if !m.cfg.ExitOnError {
			t.Error("expected ExitOnError=true")
		}
	})
}

func TestOnEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		events       []events.Event
		wantFindings int
		wantErrors   int
	}{
		{
			name:         "single finding",
			events:       []events.Event{findingEvent()},
			wantFindings: 1,
			wantErrors:   0,
		},
		{
			name:         "single error",
			events:       []events.Event{errorEvent()},
			wantFindings: 0,
			wantErrors:   1,
		},
		{
			name:         "mixed stream",
			events:       []events.Event{findingEvent(), errorEvent(), findingEvent(), errorEvent(), errorEvent()},
			wantFindings: 2,
			wantErrors:   3,
		},
		{
			name: "other event types ignored",
			events: []events.Event{
				&events.StageEvent{BaseEvent: events.NewBase(events.EventTypeStage, "scan-x1"), Stage: events.StageEnumerate, Count: 5},
			},
			wantFindings: 0,
			wantErrors:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(DefaultConfig())
			for _, event := range tt.events {
				if err := m.OnEvent(ctx, event); err != nil {
					t.Fatalf("OnEvent returned error: %v", err)
				}
			}

			findings, errors := m.Stats()
			if findings != tt.wantFindings {
				t.Errorf("got %d findings, want %d", findings, tt.wantFindings)
			}
			if errors != tt.wantErrors {
				t.Errorf("got %d errors, want %d", errors, tt.wantErrors)
			}
		})
	}
}

func TestEventTypes(t *testing.T) {
	m := New(DefaultConfig())

	types := m.EventTypes()
	want := map[events.EventType]bool{
		events.EventTypeFinding: true,
		events.EventTypeError:   true,
	}

	if len(types) != len(want) {
		t.Fatalf("got %d event types, want %d", len(types), len(want))
	}
	for _, typ := range types {
		if !want[typ] {
			t.Errorf("unexpected event type %q", typ)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Run("clean scan is success", func(t *testing.T) {
		m := New(DefaultConfig())

		code, reason := m.ExitCode()
		if code != Success {
			t.Errorf("got code %d, want %d", code, Success)
		}
		if !strings.Contains(reason, "no secrets") {
			t.Errorf("reason should mention no secrets, got %q", reason)
		}
	})

	t.Run("findings produce secrets code", func(t *testing.T) {
		m := New(DefaultConfig())
		m.RecordFinding()
		m.RecordFinding()

		code, reason := m.ExitCode()
		if code != SecretsFound {
			t.Errorf("got code %d, want %d", code, SecretsFound)
		}
		if !strings.Contains(reason, "count: 2") {
			t.Errorf("reason should include the finding count, got %q", reason)
		}
	})

	t.Run("custom secrets code honored", func(t *testing.T) {
		m := New(Config{SecretsCode: 42})
		m.RecordFinding()

		code, _ := m.ExitCode()
		if code != Code(42) {
			t.Errorf("got code %d, want 42", code)
		}
	})

	t.Run("errors below threshold do not fail", func(t *testing.T) {
		m := New(Config{ExitOnError: true, ErrorThreshold: 5})
		for i := 0; i < 4; i++ {
			m.RecordError()
		}

		code, _ := m.ExitCode()
		if code != Success {
			t.Errorf("got code %d, want %d", code, Success)
		}
	})

	t.Run("errors at threshold fail as network", func(t *testing.T) {
		m := New(Config{ExitOnError: true, ErrorThreshold: 5})
		for i := 0; i < 5; i++ {
			m.RecordError()
		}

		code, reason := m.ExitCode()
		if code != Network {
			t.Errorf("got code %d, want %d", code, Network)
		}
		if !strings.Contains(reason, "threshold: 5") || !strings.Contains(reason, "actual: 5") {
			t.Errorf("reason should include threshold detail, got %q", reason)
		}
	})

	t.Run("error gate is opt-in", func(t *testing.T) {
		m := New(Config{ExitOnError: false, ErrorThreshold: 5})
		for i := 0; i < 100; i++ {
			m.RecordError()
		}

		code, _ := m.ExitCode()
		if code != Success {
			t.Errorf("got code %d, want %d", code, Success)
		}
	})
}

func TestSpecialStates(t *testing.T) {
	tests := []struct {
		name string
		set  func(m *Manager)
		want Code
	}{
		{"config error", (*Manager).SetConfigError, Configuration},
		{"network error", (*Manager).SetNetworkError, Network},
		{"interrupted", (*Manager).SetInterrupted, Interrupted},
		{"internal error", (*Manager).SetInternalError, Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(DefaultConfig())
			tt.set(m)

			code, _ := m.ExitCode()
			if code != tt.want {
				t.Errorf("got code %d, want %d", code, tt.want)
			}
		})
	}
}

func TestStatePriority(t *testing.T) {
	t.Run("interrupted beats everything", func(t *testing.T) {
		m := New(DefaultConfig())
		m.RecordFinding()
		m.SetConfigError()
		m.SetNetworkError()
		m.SetInternalError()
		m.SetInterrupted()

		code, _ := m.ExitCode()
		if code != Interrupted {
			t.Errorf("got code %d, want %d", code, Interrupted)
		}
	})

	t.Run("config beats network", func(t *testing.T) {
		m := New(DefaultConfig())
		m.SetNetworkError()
		m.SetConfigError()

		code, _ := m.ExitCode()
		if code != Configuration {
			t.Errorf("got code %d, want %d", code, Configuration)
		}
	})

	t.Run("network beats internal", func(t *testing.T) {
		m := New(DefaultConfig())
		m.SetInternalError()
		m.SetNetworkError()

		code, _ := m.ExitCode()
		if code != Network {
			t.Errorf("got code %d, want %d", code, Network)
		}
	})

	t.Run("special states beat findings", func(t *testing.T) {
		m := New(DefaultConfig())
		m.RecordFinding()
		m.SetNetworkError()

		code, _ := m.ExitCode()
		if code != Network {
			t.Errorf("got code %d, want %d", code, Network)
		}
	})
}

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{Success, "success"},
		{SecretsFound, "secrets_found"},
		{Configuration, "invalid_configuration"},
		{Network, "network_failure"},
		{Internal, "internal_error"},
		{Interrupted, "scan_interrupted"},
		{Code(99), "unknown_code_99"},
	}

	for _, tt := range tests {
		if got := CodeString(tt.code); got != tt.want {
			t.Errorf("CodeString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCodeDescription(t *testing.T) {
	if got := CodeDescription(SecretsFound); !strings.Contains(got, "secrets") {
		t.Errorf("description should mention secrets, got %q", got)
	}
	if got := CodeDescription(Code(99)); !strings.Contains(got, "Unknown exit code") {
		t.Errorf("unknown code should say so, got %q", got)
	}
}

func TestReset(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordFinding()
	m.RecordError()
	m.SetInterrupted()

	m.Reset()

	findings, errors := m.Stats()
	if findings != 0 || errors != 0 {
		t.Errorf("got findings=%d errors=%d after reset, want 0/0", findings, errors)
	}

	code, _ := m.ExitCode()
	if code != Success {
		t.Errorf("got code %d after reset, want %d", code, Success)
	}
}

func TestConcurrency(t *testing.T) {
	m := New(DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.OnEvent(ctx, findingEvent())
				_ = m.OnEvent(ctx, errorEvent())
			}
		}()
	}
	wg.Wait()

	findings, errors := m.Stats()
	if findings != 1000 {
		t.Errorf("got %d findings, want 1000", findings)
	}
	if errors != 1000 {
		t.Errorf("got %d errors, want 1000", errors)
	}
}
