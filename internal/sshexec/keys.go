package sshexec

import "golang.org/x/crypto/ssh"

// parsePrivateKey parses PEM-encoded key material, using the passphrase if
// the key is encrypted.
func parsePrivateKey(keyContent, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase([]byte(keyContent), []byte(passphrase))
	}
	return ssh.ParsePrivateKey([]byte(keyContent))
}
