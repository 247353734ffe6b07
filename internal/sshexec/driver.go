package sshexec

import "golang.org/x/crypto/ssh"

// legacyKeyExchanges widens the accepted KEX set for old network gear that
// speaks only diffie-hellman-group1/14, ported from the Python original's
// LegacySSHClientEnhancements.configure_legacy_algorithms ordered list.
var legacyKeyExchanges = []string{
	"diffie-hellman-group1-sha1",
	"diffie-hellman-group14-sha1",
	"diffie-hellman-group-exchange-sha1",
	"diffie-hellman-group-exchange-sha256",
	"ecdh-sha2-nistp256",
	"ecdh-sha2-nistp384",
	"ecdh-sha2-nistp521",
	"curve25519-sha256",
	"curve25519-sha256@libssh.org",
	"diffie-hellman-group16-sha512",
	"diffie-hellman-group18-sha512",
}

// legacyCiphers mirrors the same source's cipher preference list: the
// legacy CBC/3DES ciphers first, then modern AEAD ciphers as fallback.
var legacyCiphers = []string{
	"aes128-cbc",
	"aes256-cbc",
	"3des-cbc",
	"aes192-cbc",
	"aes128-ctr",
	"aes192-ctr",
	"aes256-ctr",
	"aes256-gcm@openssh.com",
	"aes128-gcm@openssh.com",
	"chacha20-poly1305@openssh.com",
}

// legacyHostKeyAlgorithms mirrors the host-key preference list: legacy
// ssh-rsa/ssh-dss first, modern algorithms as fallback.
var legacyHostKeyAlgorithms = []string{
	"ssh-rsa",
	"ssh-dss",
	"ecdsa-sha2-nistp256",
	"ecdsa-sha2-nistp384",
	"ecdsa-sha2-nistp521",
	"ssh-ed25519",
	"rsa-sha2-256",
	"rsa-sha2-512",
}

// DriverHint captures what the SSH layer needs to know about a device's
// platform: the prompt convention its paging-disable command implies, and
// whether it needs the widened legacy negotiation set.
type DriverHint struct {
	Name             string // netmiko-style device type, e.g. "cisco_ios"
	PagingDisableCmd string
	Legacy           bool
}

// ApplyLegacyNegotiation widens cfg's KeyExchanges/Ciphers when hint.Legacy
// is set. x/crypto/ssh.Config falls back to its own defaults when these
// fields are left empty, so a non-legacy hint degrades gracefully.
func (h DriverHint) ApplyLegacyNegotiation(cfg *ssh.Config) {
	if !h.Legacy {
		return
	}
	cfg.KeyExchanges = legacyKeyExchanges
	cfg.Ciphers = legacyCiphers
}

// LegacyHostKeyAlgorithms returns the widened host-key algorithm list for a
// legacy-hinted device, or nil (library default) otherwise.
func (h DriverHint) LegacyHostKeyAlgorithms() []string {
	if !h.Legacy {
		return nil
	}
	return legacyHostKeyAlgorithms
}
