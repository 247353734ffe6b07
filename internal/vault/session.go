package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// Session is the Secret Store Session entity from §3: it owns the derived
// key for the process lifetime, never persists it, and discards all
// decrypted material on Lock. A single unlock populates an in-memory
// decrypted-credential cache, keyed by credential id, satisfying the "O(1)
// by id" cache law.
type Session struct {
	db    *sql.DB
	creds store.CredentialStore

	mu      sync.RWMutex
	key     []byte
	salt    []byte
	cache   map[int64]model.SSHCredentials
	unlocked bool
}

// NewSession wires a Session to an already-migrated vault database.
func NewSession(db *sql.DB, creds store.CredentialStore) *Session {
	return &Session{db: db, creds: creds}
}

// IsUnlocked reports whether decrypted material is currently available.
func (s *Session) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlocked
}

// InitVault sets up a brand-new vault: generates a salt, derives a key, and
// stores a verifier. It fails if vault_metadata already has a salt.
func (s *Session) InitVault(ctx context.Context, password string) error {
	salt, verifier, found, err := s.creds.GetVaultMetadata(ctx, s.db)
	if err != nil {
		return fmt.Errorf("check existing vault metadata: %w", err)
	}
	if found && len(salt) > 0 {
		return errors.New("vault already initialized")
	}
	_ = verifier

	newSalt, err := NewSalt()
	if err != nil {
		return err
	}
	key := DeriveKey(password, newSalt)

	v, err := SealVerifier(key)
	if err != nil {
		return fmt.Errorf("seal verifier: %w", err)
	}

	if err := s.creds.SetVaultMetadata(ctx, s.db, newSalt, v); err != nil {
		return fmt.Errorf("persist vault metadata: %w", err)
	}

	s.mu.Lock()
	s.key, s.salt, s.unlocked = key, newSalt, true
	s.cache = map[int64]model.SSHCredentials{}
	s.mu.Unlock()

	return nil
}

// Unlock derives the key from password, checks it against the stored
// verifier, and — on success — decrypts every credential row into the
// in-memory cache. A failed unlock leaves the session locked.
func (s *Session) Unlock(ctx context.Context, password string) error {
	salt, verifier, found, err := s.creds.GetVaultMetadata(ctx, s.db)
	if err != nil {
		return fmt.Errorf("read vault metadata: %w", err)
	}
	if !found {
		return errors.New("vault not initialized")
	}

	key := DeriveKey(password, salt)
	if err := OpenVerifier(key, verifier); err != nil {
		return store.Wrap(store.KindSecretStoreLocked, "vault.Unlock", ErrWrongPassword)
	}

	rows, err := s.creds.ListCredentials(ctx, s.db)
	if err != nil {
		return fmt.Errorf("list credentials: %w", err)
	}

	cache := make(map[int64]model.SSHCredentials, len(rows))
	for _, row := range rows {
		plain, err := decryptCredential(key, row)
		if err != nil {
			return fmt.Errorf("decrypt credential %q: %w", row.Name, err)
		}
		cache[row.ID] = plain
	}

	s.mu.Lock()
	s.key, s.salt, s.unlocked, s.cache = key, salt, true, cache
	s.mu.Unlock()

	return nil
}

// Lock discards the derived key and every decrypted credential. After Lock
// returns, no decrypted material remains reachable from the Session.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.cache {
		delete(s.cache, k)
	}
	s.cache = nil
	zero(s.key)
	s.key = nil
	s.unlocked = false
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GetByID returns the decrypted credentials cached under id.
func (s *Session) GetByID(id int64) (model.SSHCredentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.unlocked {
		return model.SSHCredentials{}, false
	}
	c, ok := s.cache[id]
	return c, ok
}

// GetDefault returns the credential flagged default, if one exists in cache.
func (s *Session) GetDefault(ctx context.Context) (model.SSHCredentials, bool, error) {
	row, found, err := s.creds.GetDefaultCredential(ctx, s.db)
	if err != nil {
		return model.SSHCredentials{}, false, err
	}
	if !found {
		return model.SSHCredentials{}, false, nil
	}
	c, ok := s.GetByID(row.ID)
	return c, ok, nil
}

// ListInfo returns the non-secret credential projection, usable without
// requiring an unlocked session.
func (s *Session) ListInfo(ctx context.Context) ([]model.CredentialInfo, error) {
	rows, err := s.creds.ListCredentials(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]model.CredentialInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CredentialInfo{
			ID:          r.ID,
			Name:        r.Name,
			Username:    r.Username,
			IsDefault:   r.IsDefault,
			HasPassword: len(r.PasswordEncrypted) > 0,
			HasSSHKey:   len(r.SSHKeyEncrypted) > 0,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return out, nil
}

// AddCredential encrypts plaintext material under the session key and
// persists it, requiring the session to be unlocked.
func (s *Session) AddCredential(ctx context.Context, name string, plain model.SSHCredentials, isDefault bool) (int64, error) {
	s.mu.RLock()
	key, unlocked := s.key, s.unlocked
	s.mu.RUnlock()
	if !unlocked {
		return 0, store.Wrap(store.KindSecretStoreLocked, "vault.AddCredential", errors.New("vault is locked"))
	}

	row := model.Credential{Name: name, Username: plain.Username, IsDefault: isDefault}

	var err error
	if plain.Password != "" {
		row.PasswordEncrypted, err = Seal(key, []byte(plain.Password))
		if err != nil {
			return 0, err
		}
	}
	if plain.KeyContent != "" {
		row.SSHKeyEncrypted, err = Seal(key, []byte(plain.KeyContent))
		if err != nil {
			return 0, err
		}
	}
	if plain.KeyPassphrase != "" {
		row.SSHKeyPassphraseEncrypted, err = Seal(key, []byte(plain.KeyPassphrase))
		if err != nil {
			return 0, err
		}
	}

	id, err := s.creds.AddCredential(ctx, s.db, row)
	if err != nil {
		return 0, err
	}

	plain.CredentialID = id
	plain.CredentialName = name
	s.mu.Lock()
	if s.cache != nil {
		s.cache[id] = plain
	}
	s.mu.Unlock()

	return id, nil
}

// RemoveCredential deletes a credential row and its cache entry.
func (s *Session) RemoveCredential(ctx context.Context, id int64) error {
	if err := s.creds.RemoveCredential(ctx, s.db, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	return nil
}

// SetDefault flips the default flag, enforcing at-most-one-default at the
// store layer.
func (s *Session) SetDefault(ctx context.Context, id int64) error {
	return s.creds.SetDefault(ctx, s.db, id)
}

func decryptCredential(key []byte, row model.Credential) (model.SSHCredentials, error) {
	out := model.SSHCredentials{
		CredentialID:   row.ID,
		CredentialName: row.Name,
		Username:       row.Username,
	}

	if len(row.PasswordEncrypted) > 0 {
		p, err := Open(key, row.PasswordEncrypted)
		if err != nil {
			return model.SSHCredentials{}, fmt.Errorf("decrypt password: %w", err)
		}
		out.Password = string(p)
	}
	if len(row.SSHKeyEncrypted) > 0 {
		k, err := Open(key, row.SSHKeyEncrypted)
		if err != nil {
			return model.SSHCredentials{}, fmt.Errorf("decrypt ssh key: %w", err)
		}
		out.KeyContent = string(k)
	}
	if len(row.SSHKeyPassphraseEncrypted) > 0 {
		p, err := Open(key, row.SSHKeyPassphraseEncrypted)
		if err != nil {
			return model.SSHCredentials{}, fmt.Errorf("decrypt key passphrase: %w", err)
		}
		out.KeyPassphrase = string(p)
	}

	return out, nil
}
