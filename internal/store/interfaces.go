// Package store defines the repository contracts the collection core uses
// to reach the inventory, secret, template and history stores, plus the
// shared Kind-tagged error type used to report categorized failures.
package store

import (
	"context"
	"database/sql"

	"github.com/scottpeterman/velocitycollector/internal/model"
)

// DBTransaction abstracts over *sql.DB and *sql.Tx so repository methods can
// run either standalone or inside a caller-managed transaction.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx extends DBTransaction with commit/rollback, satisfied by *sql.Tx.
type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// InventoryStore is the model for devices and their lookup tables. The core
// writes through it only the per-device credential-test and last-collected
// fields (discovery records its credential results here); inventory CRUD is
// an external collaborator.
type InventoryStore interface {
	GetDevices(ctx context.Context, tx DBTransaction, filter model.DeviceFilter) ([]model.Device, error)
	GetDevice(ctx context.Context, tx DBTransaction, id int64) (model.Device, error)
	UpdateDeviceCredentialTest(ctx context.Context, tx DBTransaction, deviceID int64, credentialID int64, result model.CredentialTestResult) error
	UpdateDeviceLastCollected(ctx context.Context, tx DBTransaction, deviceID int64) error
}

// CredentialStore persists encrypted credential rows and vault metadata.
// Plaintext material never crosses this interface; decryption happens in
// internal/vault using the derived key.
type CredentialStore interface {
	GetVaultMetadata(ctx context.Context, tx DBTransaction) (salt []byte, verifier []byte, found bool, err error)
	SetVaultMetadata(ctx context.Context, tx DBTransaction, salt []byte, verifier []byte) error

	ListCredentials(ctx context.Context, tx DBTransaction) ([]model.Credential, error)
	GetCredential(ctx context.Context, tx DBTransaction, id int64) (model.Credential, error)
	GetDefaultCredential(ctx context.Context, tx DBTransaction) (model.Credential, bool, error)
	AddCredential(ctx context.Context, tx DBTransaction, c model.Credential) (int64, error)
	RemoveCredential(ctx context.Context, tx DBTransaction, id int64) error
	SetDefault(ctx context.Context, tx DBTransaction, id int64) error
}

// TemplateStore is the read-only structured-text template catalog.
type TemplateStore interface {
	FindByRequiredTerms(ctx context.Context, tx DBTransaction, terms []string) ([]model.Template, error)
	Get(ctx context.Context, tx DBTransaction, identifier string) (model.Template, error)
}

// HistoryStore is written exactly twice per run (start, completion) plus
// once per capture. It is the single writer during a run; device workers
// never touch it directly.
type HistoryStore interface {
	CreateRun(ctx context.Context, tx DBTransaction, jobSlug, jobSource string, totalDevices int) (int64, error)
	CompleteRun(ctx context.Context, tx DBTransaction, runID int64, success, failed, skipped int, status model.RunStatus, errMsg string) error
	RecordCapture(ctx context.Context, tx DBTransaction, c model.Capture) (int64, error)
	GetRun(ctx context.Context, tx DBTransaction, runID int64) (model.Run, error)
	ListRunsByJob(ctx context.Context, tx DBTransaction, jobSlug string, limit int) ([]model.Run, error)
}
