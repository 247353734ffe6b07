package sshexec

import "regexp"

// ansiPattern strips ANSI escape sequences and other terminal control
// characters from raw SSH output before prompt detection, unifying the two
// slightly different regexes the Python original used in
// filter_ansi_sequences and inline inside _extract_clean_prompt into one.
var ansiPattern = regexp.MustCompile(
	"\x1b\\[[0-9;?]*[a-zA-Z]" + // CSI sequences
		"|\x1b[()][AB012]" + // character set selection
		"|\x07" + // BEL
		"|[\x00-\x08\x0B\x0C\x0E-\x1F]", // remaining control chars, keep \t\n\r
)

// FilterANSI removes escape sequences and control characters from s.
func FilterANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}
