// Package model defines the core entities shared across the collection
// execution core: jobs, devices, credentials, templates, runs, captures and
// batches. These types are store-agnostic; the sqlite-backed repositories in
// internal/store/sqlite translate rows into and out of them.
package model

import "time"

// DeviceStatus mirrors the inventory's device lifecycle states.
type DeviceStatus string

const (
	DeviceStatusActive          DeviceStatus = "active"
	DeviceStatusPlanned         DeviceStatus = "planned"
	DeviceStatusStaged          DeviceStatus = "staged"
	DeviceStatusFailed          DeviceStatus = "failed"
	DeviceStatusOffline         DeviceStatus = "offline"
	DeviceStatusDecommissioning DeviceStatus = "decommissioning"
	DeviceStatusInventory       DeviceStatus = "inventory"
)

// CredentialTestResult records the outcome of the last credential probe
// recorded against a device.
type CredentialTestResult string

const (
	CredentialTestUnknown CredentialTestResult = ""
	CredentialTestSuccess CredentialTestResult = "success"
	CredentialTestFailed  CredentialTestResult = "failed"
)

// Site is a physical or logical grouping of devices.
type Site struct {
	ID       int64
	Name     string
	Slug     string
	Status   string
	Address  string
	Facility string
}

// Manufacturer identifies the vendor behind a platform.
type Manufacturer struct {
	ID   int64
	Name string
	Slug string
}

// Platform carries the driver hint used by the SSH layer: the netmiko-style
// device type and the command used to disable output paging.
type Platform struct {
	ID                 int64
	Name               string
	Slug               string
	ManufacturerID     int64
	ManufacturerName   string
	DriverHint         string // e.g. "cisco_ios", "arista_eos", "juniper_junos"
	PagingDisableCmd   string
	LegacySSHNegotiate bool // widen KEX/cipher acceptance for old gear
}

// DeviceRole is the functional role a device plays (core, access, firewall…).
type DeviceRole struct {
	ID   int64
	Name string
	Slug string
}

// Device is the unit the resolver and execution pool operate against.
type Device struct {
	ID       int64
	Name     string
	SiteID   int64
	SiteName string
	SiteSlug string

	PlatformID       int64
	PlatformName     string
	ManufacturerName string
	DriverHint       string
	PagingDisableCmd string
	Legacy           bool

	RoleID   int64
	RoleName string

	Status      DeviceStatus
	PrimaryIP4  string
	PrimaryIP6  string
	SSHPort     int

	PinnedCredentialID   *int64
	CredentialTestedAt   *time.Time
	CredentialTestResult CredentialTestResult

	LastCollectedAt *time.Time
}

// Address returns the device's primary connect address, preferring IPv4 and
// falling back to IPv6 when only that is set.
func (d Device) Address() string {
	if d.PrimaryIP4 != "" {
		return d.PrimaryIP4
	}
	return d.PrimaryIP6
}

// Credential is a named secret. Only the encrypted blobs are persisted; the
// plaintext equivalents live in SSHCredentials, produced only after unlock.
type Credential struct {
	ID                       int64
	Name                     string
	Username                 string
	PasswordEncrypted        []byte
	SSHKeyEncrypted          []byte
	SSHKeyPassphraseEncrypted []byte
	IsDefault                bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// CredentialInfo is the non-secret projection of a Credential, safe to list
// without unlocking the store.
type CredentialInfo struct {
	ID          int64
	Name        string
	Username    string
	IsDefault   bool
	HasPassword bool
	HasSSHKey   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SSHCredentials is the decrypted material resolved for a connection attempt.
// It never touches disk and is discarded when the secret store locks.
type SSHCredentials struct {
	CredentialID  int64
	CredentialName string
	Username      string
	Password      string
	KeyContent    string
	KeyPassphrase string
}

// HasKey reports whether a private key is present.
func (c SSHCredentials) HasKey() bool { return c.KeyContent != "" }

// HasPassword reports whether a password is present.
func (c SSHCredentials) HasPassword() bool { return c.Password != "" }

// Template is a structured-text extraction rule, read-only at run time.
type Template struct {
	ID         int64
	Identifier string
	Body       string
	DedupHash  string
}

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// Run is a history record for one executed job instance.
type Run struct {
	ID            int64
	JobSlug       string
	JobSource     string
	StartedAt     time.Time
	CompletedAt   *time.Time
	TotalDevices  int
	SuccessCount  int
	FailedCount   int
	SkippedCount  int
	Status        RunStatus
	ErrorMessage  string
}

// Capture is a persisted per-device transcript produced by a Run.
type Capture struct {
	ID               int64
	RunID            int64
	DeviceName       string
	CaptureKind      string
	FilePath         string
	FileSize         int64
	CapturedAt       time.Time
	ValidationScore  *float64
}

// DeviceFilter selects a device set for a job. An empty filter matches every
// active device.
type DeviceFilter struct {
	VendorSubstring string // case-insensitive substring against manufacturer name
	SiteID          *int64
	RoleID          *int64
	PlatformID      *int64
	NamePattern     string // regular expression, see resolver package
	Status          DeviceStatus
	Limit           int // 0 = unlimited
}

// ExecutionPolicy bounds concurrency and timing for a job's device pool.
type ExecutionPolicy struct {
	MaxWorkers        int
	PerDeviceTimeout  time.Duration
	InterCommandPause time.Duration
}

// ValidationPolicy controls whether and how output is scored.
type ValidationPolicy struct {
	Enabled      bool
	TemplateFilter string
	MinScore     float64
	SaveOnFail   bool
}

// StoragePolicy controls where and how captures are written.
type StoragePolicy struct {
	OutputSubdir     string
	FilenamePattern  string // supports {device_name}, {device_id}, {timestamp}
}

// CommandSet is the ordered command sequence a job sends to each device.
type CommandSet struct {
	PagingDisableCommand string // optional prelude, errors are non-fatal
	Commands             []string
}

// Job is the declarative unit of collection.
type Job struct {
	ID      int64
	Slug    string
	Enabled bool

	CaptureKind string
	VendorHint  string

	Commands CommandSet

	Filter     DeviceFilter
	Validation ValidationPolicy
	Execution  ExecutionPolicy
	Storage    StoragePolicy
}

// Batch is a persistent descriptor naming an ordered list of jobs.
type Batch struct {
	Name            string
	JobSlugs        []string
	StopOnFailure   bool
	InterJobPause   time.Duration
	MaxConcurrent   int // 0 or 1 = sequential
}
