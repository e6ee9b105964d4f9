package app

import (
	"bytes"
	"encoding/json"
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
		{in: "INFO", want: slog.LevelInfo},
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

func TestNewLogger_JSONRedactsSecrets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, LogConfig{Level: "debug", Format: "json"})

	log.Debug("session.login",
		"account_id", "s1",
		"token", "czE;v4.public.xyz",
		"Authorization", "Bearer abc",
		"session_id", "01HZX",
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "session.login" || rec["account_id"] != "s1" {
		t.Fatalf("unexpected record: %v", rec)
	}
	for _, k := range []string{"token", "Authorization", "session_id"} {
		if rec[k] != redacted {
			t.Fatalf("%s=%v want %s", k, rec[k], redacted)
		}
	}
	if _, ok := rec["source"]; !ok {
		t.Fatalf("expected source attribute: %v", rec)
	}
}

func TestNewLogger_Formats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		format string
		want   string
	}{
		{format: "text", want: "msg=hello"},
		{format: "pretty", want: "msg=hello"},
		{format: "", want: `"msg":"hello"`},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		newLogger(&buf, LogConfig{Format: tc.format}).Info("hello")
		if !strings.Contains(buf.String(), tc.want) {
			t.Fatalf("format=%q output=%q want substring %q", tc.format, buf.String(), tc.want)
		}
	}
}

func TestNewLogger_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	log.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
}
