package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFormatAlertJSON(t *testing.T) {
	t.Parallel()
	line := `{"level":"warn","time":"x","message":"item.failed","item":"sync","err":"boom"}`
	got := formatAlertJSON([]byte(line))
	want := "[WARN] item.failed err=boom item=sync"
	if got != want {
		t.Fatalf("formatAlertJSON = %q, want %q", got, want)
	}
}

func TestFormatAlertJSONNotJSON(t *testing.T) {
	t.Parallel()
	if got := formatAlertJSON([]byte("  plain text \n")); got != "plain text" {
		t.Fatalf("formatAlertJSON = %q", got)
	}
}

func TestAlertWriterRespectsLevelAndRate(t *testing.T) {
	var out bytes.Buffer
	svc, log := New(Config{Level: "debug", File: FileConfig{Enabled: false}, Alert: AlertConfig{Enabled: true, MinLevel: "warn", RatePerSec: 1}})
	defer svc.Close()
	svc.SetAlertOutput(&out)

	log.Info("ignored")
	log.Warn("first", String("k", "v"))
	log.Warn("second")

	got := out.String()
	if strings.Contains(got, "ignored") {
		t.Fatalf("info line reached alert sink: %q", got)
	}
	if !strings.Contains(got, "[WARN] first") {
		t.Fatalf("expected first warn in alert sink, got %q", got)
	}
	if strings.Contains(got, "second") {
		t.Fatalf("expected rate limiter to drop the burst, got %q", got)
	}
}

func TestLoggerWithAndNop(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf)).With(String("comp", "queue"))
	l.Info("hello", Int("n", 2))
	if !strings.Contains(buf.String(), `"comp":"queue"`) || !strings.Contains(buf.String(), `"n":2`) {
		t.Fatalf("missing fields: %s", buf.String())
	}

	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	zero.Info("no panic")
	Nop().Error("no output")
}

func TestValidLevel(t *testing.T) {
	t.Parallel()
	for _, lvl := range []string{"", "debug", "WARN", "warning"} {
		if !ValidLevel(lvl) {
			t.Fatalf("ValidLevel(%q) = false", lvl)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}
