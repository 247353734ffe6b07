package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_AttachesRunID(t *testing.T) {
	var buf bytes.Buffer
	tmp, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer tmp.Close()

	base := slog.New(slog.NewJSONHandler(tmp, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := WithRunID(context.Background(), "run-123")

	FromContext(ctx, base).Info("collection started")

	data, err := os.ReadFile(tmp.Name())
	require.NoError(t, err)
	buf.Write(data)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-123", entry["run_id"])
	assert.Equal(t, "collection started", entry["msg"])
}

func TestRunIDFromContext_EmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(context.Background()))
}
