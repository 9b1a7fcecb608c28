package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"warn", WARN},
		{"error", ERROR},
		{"info", INFO},
		{"", INFO},
		{"verbose", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{level: WARN, output: &buf, fields: map[string]interface{}{}}

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")
	logger.Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level should be dropped:\n%s", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "shown error") {
		t.Errorf("messages at or above the level should be written:\n%s", out)
	}
}

func TestFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{level: DEBUG, output: &buf, fields: map[string]interface{}{}}

	logger.Info("saved %d wins in %s", 3, "12ms")

	if !strings.Contains(buf.String(), "saved 3 wins in 12ms") {
		t.Errorf("format args should be applied:\n%s", buf.String())
	}
}

func TestWithFields_SortedAndInherited(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{level: DEBUG, output: &buf, fields: map[string]interface{}{}}

	child := logger.WithField("zone", "storage").WithField("attempt", 2)
	child.Info("retrying")

	out := buf.String()
	if !strings.Contains(out, "attempt=2 zone=storage") {
		t.Errorf("fields should print inherited and key-sorted:\n%s", out)
	}

	// Parent is not mutated by the child.
	buf.Reset()
	logger.Info("plain")
	if strings.Contains(buf.String(), "zone=") {
		t.Errorf("WithField must not leak into the parent logger:\n%s", buf.String())
	}
}
