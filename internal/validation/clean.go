// Package validation scores raw device output against structured-text
// extraction templates, selecting the best match and reporting whether it
// clears the job's minimum score.
package validation

import (
	"regexp"
	"strings"

	"github.com/scottpeterman/velocitycollector/internal/sshexec"
)

// trailingPromptPattern matches a bare device CLI prompt line, the same
// shape sshexec watches for mid-session, ported from the Python original's
// _clean_output.
var trailingPromptPattern = regexp.MustCompile(`^[\w\-.]+[#>$)]\s*$`)

// CleanOutput strips ANSI control sequences, the command echo preamble (if
// command is non-empty and found), bare device prompt lines and trailing
// blank lines from raw output before it's handed to the extraction engine.
// Unlike the session
// reader's live ANSI stripping, this also removes everything the device
// printed before its own echo of the command, since an interactive shell
// leaves that artifact in the buffer.
func CleanOutput(raw, command string) string {
	cleaned := sshexec.FilterANSI(raw)
	lines := strings.Split(cleaned, "\n")

	startIdx := 0
	if command != "" {
		cmdLower := strings.ToLower(strings.TrimSpace(command))
		for i, line := range lines {
			if strings.Contains(strings.ToLower(line), cmdLower) {
				startIdx = i + 1
				break
			}
		}
	}

	out := make([]string, 0, len(lines)-startIdx)
	for _, line := range lines[startIdx:] {
		if trailingPromptPattern.MatchString(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}

	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}

	return strings.Join(out, "\n")
}
