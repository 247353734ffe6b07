package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

func TestExpandFilename_SubstitutesKnownPlaceholders(t *testing.T) {
	device := model.Device{ID: 42, Name: "core-sw-01"}
	at := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)

	got := ExpandFilename("{device_name}_{device_id}_{timestamp}.txt", device, at)
	assert.Equal(t, "core-sw-01_42_20260305T123000Z.txt", got)
}

func TestExpandFilename_LeavesUnknownPlaceholdersLiteral(t *testing.T) {
	device := model.Device{ID: 1, Name: "r1"}
	got := ExpandFilename("{device_name}_{unknown}.txt", device, time.Now())
	assert.Equal(t, "r1_{unknown}.txt", got)
}

func TestWriteCapture_WritesFileAtomically(t *testing.T) {
	root := t.TempDir()

	path, size, err := WriteCapture(root, "arp", "r1_1.txt", []byte("hello capture"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello capture")), size)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello capture", string(data))
	assert.Equal(t, filepath.Join(root, "arp", "r1_1.txt"), path)
}

func TestWriteCapture_LeavesNoTempFilesBehind(t *testing.T) {
	root := t.TempDir()

	_, _, err := WriteCapture(root, "arp", "r1_1.txt", []byte("data"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "arp"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1_1.txt", entries[0].Name())
}

func TestWriteCapture_OverwritesExistingFile(t *testing.T) {
	root := t.TempDir()

	_, _, err := WriteCapture(root, "arp", "r1_1.txt", []byte("first"))
	require.NoError(t, err)
	path, size, err := WriteCapture(root, "arp", "r1_1.txt", []byte("second version"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("second version")), size)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second version", string(data))
}
