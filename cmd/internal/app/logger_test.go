package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " INFO ", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var jsonOut, prettyOut bytes.Buffer

	newLogger(&jsonOut, "warn", "json").Info("dropped")
	newLogger(&jsonOut, "warn", "").Warn("tasks.update.fail", "task_id", 7)
	if strings.Contains(jsonOut.String(), "dropped") {
		t.Fatalf("info record written at warn level: %q", jsonOut.String())
	}
	if !strings.Contains(jsonOut.String(), `"msg":"tasks.update.fail"`) || !strings.Contains(jsonOut.String(), `"source"`) {
		t.Fatalf("expected JSON with source, got %q", jsonOut.String())
	}

	t.Setenv("NO_COLOR", "1")
	newLogger(&prettyOut, "debug", "pretty").Debug("ws.session.open", "user_id", 3)
	out := prettyOut.String()
	if !strings.Contains(out, "[DEBUG]") || !strings.Contains(out, "user_id=3") {
		t.Fatalf("unexpected pretty output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("NO_COLOR ignored: %q", out)
	}
}
