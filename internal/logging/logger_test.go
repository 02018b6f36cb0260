// Auditwire - Audit Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditwire

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// captureGlobal points the global logger at a buffer and restores the
// startup logger when the test ends.
func captureGlobal(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	t.Cleanup(func() { Init(Config{Timestamp: true}) })

	var buf bytes.Buffer
	Init(Config{Level: level, Format: "json", Output: &buf})
	return &buf
}

func TestInit_JSONFieldNames(t *testing.T) {
	t.Cleanup(func() { Init(Config{Timestamp: true}) })

	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})

	Info().Str("event_type", "user_logged_in").Msg("envelope persisted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	for _, key := range []string{"time", "level", "message", "event_type"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("missing %q in %v", key, entry)
		}
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestInit_ConsoleFormat(t *testing.T) {
	t.Cleanup(func() { Init(Config{Timestamp: true}) })

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "console", Output: &buf})
	Info().Msg("console output")

	if strings.Contains(buf.String(), `"level"`) {
		t.Errorf("console format produced JSON: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "console output") {
		t.Errorf("message missing: %s", buf.String())
	}
}

func TestInit_Caller(t *testing.T) {
	buf := captureGlobal(t, "info")
	Init(Config{Caller: true, Output: buf})

	Info().Msg("with caller")
	if !strings.Contains(buf.String(), `"caller":"`) {
		t.Errorf("caller missing: %s", buf.String())
	}
}

func TestInit_EmptyConfigUsesDefaults(t *testing.T) {
	t.Cleanup(func() { Init(Config{Timestamp: true}) })

	Init(Config{})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", zerolog.GlobalLevel())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warn":     zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		" error ":  zerolog.ErrorLevel,
		"fatal":    zerolog.FatalLevel,
		"panic":    zerolog.PanicLevel,
		"disabled": zerolog.Disabled,
		"verbose":  zerolog.InfoLevel,
		"":         zerolog.InfoLevel,
	}
	for input, want := range tests {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLevelFunctions(t *testing.T) {
	buf := captureGlobal(t, "trace")

	emit := map[string]func(){
		"trace": func() { Trace().Msg("m") },
		"debug": func() { Debug().Msg("m") },
		"info":  func() { Info().Msg("m") },
		"warn":  func() { Warn().Msg("m") },
		"error": func() { Error().Msg("m") },
	}
	for level, fn := range emit {
		buf.Reset()
		fn()
		if !strings.Contains(buf.String(), `"level":"`+level+`"`) {
			t.Errorf("%s: got %s", level, buf.String())
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureGlobal(t, "warn")

	Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn not logged: %s", buf.String())
	}
}
