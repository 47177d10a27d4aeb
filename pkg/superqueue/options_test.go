package superqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLimitsValidate(t *testing.T) {
	t.Parallel()
	got, err := Limits{}.Validate()
	if err != nil {
		t.Fatalf("Validate zero: %v", err)
	}
	if diff := cmp.Diff(Limits{Concurrency: 1, RateWindow: time.Second}, got); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}

	bad := []struct {
		name   string
		limits Limits
		msg    string
	}{
		{"concurrency", Limits{Concurrency: -1}, "invalid option: concurrency option must be at least 1; got -1"},
		{"interval", Limits{Interval: -time.Second}, "invalid option: interval option must be at least 0; got -1s"},
		{"rate", Limits{Rate: -2}, "invalid option: rate option must be at least 0; got -2"},
		{"window", Limits{RateWindow: -time.Millisecond}, "invalid option: rateWindow option must be greater than 0; got -1ms"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.limits.Validate()
			if !errors.Is(err, ErrInvalidOption) {
				t.Fatalf("err = %v, want ErrInvalidOption", err)
			}
			if err.Error() != tt.msg {
				t.Fatalf("msg = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func TestBuildSubmitConfig(t *testing.T) {
	t.Parallel()
	cfg := buildSubmitConfig(nil)
	if cfg.priority != DefaultPriority {
		t.Fatalf("default priority = %d", cfg.priority)
	}
	cfg = buildSubmitConfig([]SubmitOption{WithPriority(3), WithName("n"), WithFlags("a", "b"), WithFlags("a", "c")})
	if cfg.priority != 3 || cfg.name != "n" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, dedupe(cfg.flags)); diff != "" {
		t.Fatalf("dedupe (-want +got):\n%s", diff)
	}
}
