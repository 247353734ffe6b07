package sshexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterANSI(t *testing.T) {
	input := "\x1b[1mrouter1\x1b[0m# show version\r\n\x07IOS Version 15.2\r\n"
	got := FilterANSI(input)
	assert.Equal(t, "router1# show version\r\nIOS Version 15.2\r\n", got)
}

func TestFilterANSI_KeepsNewlinesAndTabs(t *testing.T) {
	input := "line one\n\tline two\r\n"
	assert.Equal(t, input, FilterANSI(input))
}
