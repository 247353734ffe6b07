package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

const (
	vaultMetaKeySalt     = "kdf_salt"
	vaultMetaKeyVerifier = "verifier"
)

// CredentialStore persists vault metadata (salt + verifier) and encrypted
// credential rows. It never sees plaintext; encryption/decryption happens in
// internal/vault.
type CredentialStore struct{}

// NewCredentialStore constructs the sqlite-backed CredentialStore.
func NewCredentialStore() *CredentialStore { return &CredentialStore{} }

var _ store.CredentialStore = (*CredentialStore)(nil)

func (s *CredentialStore) GetVaultMetadata(ctx context.Context, tx store.DBTransaction) ([]byte, []byte, bool, error) {
	var salt, verifier []byte

	row := tx.QueryRowContext(ctx, "SELECT value FROM vault_metadata WHERE key = ?", vaultMetaKeySalt)
	if err := row.Scan(&salt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("read vault salt: %w", err)
	}

	row = tx.QueryRowContext(ctx, "SELECT value FROM vault_metadata WHERE key = ?", vaultMetaKeyVerifier)
	if err := row.Scan(&verifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("read vault verifier: %w", err)
	}

	return salt, verifier, true, nil
}

func (s *CredentialStore) SetVaultMetadata(ctx context.Context, tx store.DBTransaction, salt []byte, verifier []byte) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vault_metadata(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		vaultMetaKeySalt, salt); err != nil {
		return fmt.Errorf("set vault salt: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vault_metadata(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		vaultMetaKeyVerifier, verifier); err != nil {
		return fmt.Errorf("set vault verifier: %w", err)
	}
	return nil
}

const credentialColumns = `id, name, username, password_encrypted, ssh_key_encrypted,
	ssh_key_passphrase_encrypted, is_default, created_at, updated_at`

func (s *CredentialStore) ListCredentials(ctx context.Context, tx store.DBTransaction) ([]model.Credential, error) {
	rows, err := tx.QueryContext(ctx, "SELECT "+credentialColumns+" FROM credentials ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *CredentialStore) GetCredential(ctx context.Context, tx store.DBTransaction, id int64) (model.Credential, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+credentialColumns+" FROM credentials WHERE id = ?", id)
	c, err := scanCredentialRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, store.ErrNotFound
	}
	return c, err
}

func (s *CredentialStore) GetDefaultCredential(ctx context.Context, tx store.DBTransaction) (model.Credential, bool, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+credentialColumns+" FROM credentials WHERE is_default = 1")
	c, err := scanCredentialRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, false, nil
	}
	if err != nil {
		return model.Credential{}, false, err
	}
	return c, true, nil
}

func (s *CredentialStore) AddCredential(ctx context.Context, tx store.DBTransaction, c model.Credential) (int64, error) {
	now := time.Now().UTC()

	if c.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE credentials SET is_default = 0 WHERE is_default = 1"); err != nil {
			return 0, fmt.Errorf("clear prior default credential: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO credentials(name, username, password_encrypted, ssh_key_encrypted,
			ssh_key_passphrase_encrypted, is_default, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Username, c.PasswordEncrypted, c.SSHKeyEncrypted,
		c.SSHKeyPassphraseEncrypted, c.IsDefault, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert credential: %w", err)
	}
	return res.LastInsertId()
}

func (s *CredentialStore) RemoveCredential(ctx context.Context, tx store.DBTransaction, id int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM credentials WHERE id = ?", id); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}

// SetDefault clears every other default flag before setting this one,
// enforcing "at most one default credential" at write time.
func (s *CredentialStore) SetDefault(ctx context.Context, tx store.DBTransaction, id int64) error {
	if _, err := tx.ExecContext(ctx, "UPDATE credentials SET is_default = 0 WHERE is_default = 1"); err != nil {
		return fmt.Errorf("clear prior default credential: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE credentials SET is_default = 1, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set default credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanCredential(rows *sql.Rows) (model.Credential, error) { return scanCredentialRow(rows) }

func scanCredentialRow(r rowScanner) (model.Credential, error) {
	var c model.Credential
	var pw, key, pass sql.NullString
	if err := r.Scan(&c.ID, &c.Name, &c.Username, &pw, &key, &pass, &c.IsDefault, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return model.Credential{}, err
	}
	c.PasswordEncrypted = []byte(pw.String)
	c.SSHKeyEncrypted = []byte(key.String)
	c.SSHKeyPassphraseEncrypted = []byte(pass.String)
	return c, nil
}
