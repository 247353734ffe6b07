// Package persist writes capture transcripts to disk and commits the
// matching history/capture rows, the single-writer funnel described in
// §4.5: atomic file writes (temp file + rename in the same directory) and
// a serialized history commit so concurrent device workers never race on
// the history database.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

// ExpandFilename substitutes {device_name}, {device_id} and {timestamp} in
// pattern. Unknown placeholders are left untouched.
func ExpandFilename(pattern string, device model.Device, at time.Time) string {
	replacer := strings.NewReplacer(
		"{device_name}", device.Name,
		"{device_id}", strconv.FormatInt(device.ID, 10),
		"{timestamp}", at.UTC().Format("20060102T150405Z"),
	)
	return replacer.Replace(pattern)
}

// WriteCapture atomically writes content to <root>/<subdir>/<filename>,
// creating directories as needed. It never leaves a partial file readable
// at the destination path: content lands in a temp file in the same
// directory first, then is renamed into place.
func WriteCapture(root, subdir, filename string, content []byte) (path string, size int64, err error) {
	dir := filepath.Join(root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating capture directory %s: %w", dir, err)
	}

	destPath := filepath.Join(dir, filename)

	tmpFile, err := os.CreateTemp(dir, ".tmp-capture-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating temp capture file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	n, err := tmpFile.Write(content)
	if err != nil {
		tmpFile.Close()
		return "", 0, fmt.Errorf("writing capture content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", 0, fmt.Errorf("closing temp capture file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", 0, fmt.Errorf("renaming capture into place: %w", err)
	}

	success = true
	return destPath, int64(n), nil
}
