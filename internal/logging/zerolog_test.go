package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_FieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf))
	ctx := context.Background()

	log.Info(ctx, "otp issued", "user_id", 7)
	log.Error(ctx, "send failed", "err", errors.New("ses down"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "otp issued", lines[0]["message"])
	assert.EqualValues(t, 7, lines[0]["user_id"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "ses down", lines[1]["err"])
}

func TestZerologLogger_WithAndOddArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf)).With("component", "mailer")

	log.Warn(context.Background(), "odd", "dangling")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "mailer", lines[0]["component"])
	assert.Equal(t, "dangling", lines[0]["!BADKEY"])
}

func TestNew_ZerologLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(FormatZerolog, "error", &buf)

	log.Info(context.Background(), "dropped")
	log.Error(context.Background(), "kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["message"])
}
