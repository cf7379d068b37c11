package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]string {
	t.Helper()
	var out []map[string]string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]string{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN)
	l.Info("dropped")
	l.Warn("kept", "enrollment_id", "e-1", "err", errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.Equal(t, "e-1", lines[0]["enrollment_id"])
	assert.Equal(t, "boom", lines[0]["err"])
}

func TestLoggerRedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG).With("component", "enrollment")
	l.Info("composed", "contact_email", "john.doe@example.com", "note", "cc ab@example.com please")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "enrollment", lines[0]["component"])
	assert.Equal(t, "jo***@example.com", lines[0]["contact_email"])
	assert.Equal(t, "cc ***@example.com please", lines[0]["note"])
}

func TestLoggerKeepsNonAddressValues(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG)
	l.Info("enrollment transition", "from", "active", "to", "completed")
	l.Info("ses sent", "to", "marie.dupont@pyrowave.com")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "active", lines[0]["from"])
	assert.Equal(t, "completed", lines[0]["to"])
	assert.Equal(t, "ma***@pyrowave.com", lines[1]["to"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": DEBUG, "INFO": INFO, "warn": WARN, "Error": ERROR} {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	got, ok := ParseLevel("verbose")
	assert.False(t, ok)
	assert.Equal(t, INFO, got)
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}
