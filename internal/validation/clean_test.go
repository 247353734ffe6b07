package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanOutput_StripsPreambleAndTrailingPrompt(t *testing.T) {
	raw := "router1# show ip arp\r\n" +
		"Protocol  Address     Age (min)  Hardware Addr   Type   Interface\r\n" +
		"Internet  10.0.0.1    -          aabb.ccdd.eeff  ARPA   Gi0/0\r\n" +
		"router1# "

	cleaned := CleanOutput(raw, "show ip arp")

	assert.NotContains(t, cleaned, "show ip arp")
	assert.NotContains(t, cleaned, "router1#")
	assert.Contains(t, cleaned, "10.0.0.1")
}

func TestCleanOutput_StripsANSI(t *testing.T) {
	raw := "switch# \x1b[1mshow version\x1b[0m\r\nIOS 15.2\r\nswitch# "
	cleaned := CleanOutput(raw, "show version")
	assert.NotContains(t, cleaned, "\x1b")
	assert.Contains(t, cleaned, "IOS 15.2")
}

func TestCleanOutput_NoCommandReturnsANSIStrippedAsIs(t *testing.T) {
	// Content lines come back as-is; only the trailing blank line is dropped.
	raw := "line one\nline two\n"
	assert.Equal(t, "line one\nline two", CleanOutput(raw, ""))
}
