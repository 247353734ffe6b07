package sshexec

import (
	"errors"
	"net"
	"strings"

	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Category is a finer-grained SSH failure classification than store.Kind,
// grounded in the Python original's SSHErrorCategory enum
// (vcollector/ssh/executor.py categorize_ssh_error). Every Category maps
// onto exactly one store.Kind via ToKind, which is what the rest of the
// collection core actually branches on.
type Category string

const (
	CategorySuccess           Category = "success"
	CategoryConnectionRefused Category = "connection_refused"
	CategoryConnectionTimeout Category = "connection_timeout"
	CategoryDNSFailure        Category = "dns_failure"
	CategoryAuthFailure       Category = "auth_failure"
	CategoryKeyExchange       Category = "key_exchange"
	CategoryCommandTimeout    Category = "command_timeout"
	CategoryPromptDetection   Category = "prompt_detection"
	CategoryChannelError      Category = "channel_error"
	CategoryProtocolError     Category = "protocol_error"
	CategorySocketError       Category = "socket_error"
	CategoryUnknown           Category = "unknown"
)

// ToKind maps a fine-grained Category onto the store.Kind taxonomy that
// drives propagation policy (§7).
func (c Category) ToKind() store.Kind {
	switch c {
	case CategoryAuthFailure:
		return store.KindAuthFailed
	case CategoryConnectionTimeout, CategoryCommandTimeout:
		return store.KindTimeout
	case CategoryConnectionRefused, CategoryDNSFailure, CategoryKeyExchange, CategorySocketError, CategoryProtocolError:
		return store.KindTransportError
	case CategoryPromptDetection, CategoryChannelError:
		return store.KindCommandError
	default:
		return store.KindCommandError
	}
}

// Categorize inspects err's message and type to classify an SSH failure,
// the same way the Python original's categorize_ssh_error does by
// substring-matching the stringified exception.
func Categorize(err error) Category {
	if err == nil {
		return CategorySuccess
	}

	msg := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if strings.Contains(msg, "command") || strings.Contains(msg, "execute") {
			return CategoryCommandTimeout
		}
		return CategoryConnectionTimeout
	}

	switch {
	case strings.Contains(msg, "connection refused"):
		return CategoryConnectionRefused
	case strings.Contains(msg, "prompt detection"):
		return CategoryPromptDetection
	case strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		if strings.Contains(msg, "command") || strings.Contains(msg, "execute") {
			return CategoryCommandTimeout
		}
		return CategoryConnectionTimeout
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "name or service not known") || strings.Contains(msg, "getaddrinfo") || strings.Contains(msg, "no address"):
		return CategoryDNSFailure
	case strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "permission denied") || strings.Contains(msg, "no supported methods remain") || strings.Contains(msg, "auth"):
		return CategoryAuthFailure
	case strings.Contains(msg, "key exchange") || strings.Contains(msg, "kex") || strings.Contains(msg, "no common algorithm") || strings.Contains(msg, "incompatible"):
		return CategoryKeyExchange
	case strings.Contains(msg, "prompt"):
		return CategoryPromptDetection
	case strings.Contains(msg, "channel") || strings.Contains(msg, "eof"):
		return CategoryChannelError
	case strings.Contains(msg, "ssh:"):
		return CategoryProtocolError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CategorySocketError
	}

	return CategoryUnknown
}
