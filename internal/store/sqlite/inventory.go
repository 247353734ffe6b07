package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// InventoryStore reads the device/site/platform/role tables. It is read-only
// by contract: the core never mutates inventory except to record the result
// of a credential test.
type InventoryStore struct{}

// NewInventoryStore constructs the sqlite-backed InventoryStore.
func NewInventoryStore() *InventoryStore { return &InventoryStore{} }

var _ store.InventoryStore = (*InventoryStore)(nil)

const deviceDetailColumns = `
	id, name, site_id, site_name, site_slug,
	platform_id, platform_name, manufacturer_name, netmiko_device_type,
	paging_disable_command, legacy_ssh_negotiate,
	role_id, role_name,
	status, primary_ip4, primary_ip6, ssh_port,
	credential_id, credential_tested_at, credential_test_result,
	last_collected_at`

// GetDevices materializes the filter's matching device set ordered by
// (site, name), matching §4.1's determinism requirement. Name-pattern
// matching is not pushed to SQL (sqlite lacks POSIX regex), and neither is
// the limit; the vendor substring, site/platform/role ids and status are.
// The caller's resolver applies the name-regex pass and then the limit in
// process.
func (s *InventoryStore) GetDevices(ctx context.Context, tx store.DBTransaction, filter model.DeviceFilter) ([]model.Device, error) {
	query := "SELECT " + deviceDetailColumns + " FROM v_device_detail WHERE 1=1"
	var args []interface{}

	status := filter.Status
	if status == "" {
		status = model.DeviceStatusActive
	}
	query += " AND status = ?"
	args = append(args, string(status))

	if filter.SiteID != nil {
		query += " AND site_id = ?"
		args = append(args, *filter.SiteID)
	}
	if filter.RoleID != nil {
		query += " AND role_id = ?"
		args = append(args, *filter.RoleID)
	}
	if filter.PlatformID != nil {
		query += " AND platform_id = ?"
		args = append(args, *filter.PlatformID)
	}
	if filter.VendorSubstring != "" {
		query += " AND LOWER(manufacturer_name) LIKE ?"
		args = append(args, "%"+strings.ToLower(filter.VendorSubstring)+"%")
	}
	query += " AND (primary_ip4 != '' OR primary_ip6 != '') ORDER BY site_name, name"

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var out []model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *InventoryStore) GetDevice(ctx context.Context, tx store.DBTransaction, id int64) (model.Device, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+deviceDetailColumns+" FROM v_device_detail WHERE id = ?", id)
	d, err := scanDeviceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, store.ErrNotFound
	}
	return d, err
}

func (s *InventoryStore) UpdateDeviceCredentialTest(ctx context.Context, tx store.DBTransaction, deviceID int64, credentialID int64, result model.CredentialTestResult) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE devices SET credential_id = ?, credential_tested_at = ?, credential_test_result = ?, updated_at = ? WHERE id = ?`,
		credentialID, time.Now().UTC(), string(result), time.Now().UTC(), deviceID)
	if err != nil {
		return fmt.Errorf("update device credential test: %w", err)
	}
	return nil
}

func (s *InventoryStore) UpdateDeviceLastCollected(ctx context.Context, tx store.DBTransaction, deviceID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE devices SET last_collected_at = ?, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), time.Now().UTC(), deviceID)
	if err != nil {
		return fmt.Errorf("update device last_collected_at: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(rows *sql.Rows) (model.Device, error) { return scanDeviceRow(rows) }

func scanDeviceRow(r rowScanner) (model.Device, error) {
	var d model.Device
	var platformID, roleID, credentialID sql.NullInt64
	var platformName, manufacturerName, netmikoType, pagingCmd, roleName sql.NullString
	var legacy sql.NullBool
	var status, testResult string
	var credTestedAt, lastCollected sql.NullTime

	err := r.Scan(
		&d.ID, &d.Name, &d.SiteID, &d.SiteName, &d.SiteSlug,
		&platformID, &platformName, &manufacturerName, &netmikoType,
		&pagingCmd, &legacy,
		&roleID, &roleName,
		&status, &d.PrimaryIP4, &d.PrimaryIP6, &d.SSHPort,
		&credentialID, &credTestedAt, &testResult,
		&lastCollected,
	)
	if err != nil {
		return model.Device{}, err
	}

	d.Status = model.DeviceStatus(status)
	d.CredentialTestResult = model.CredentialTestResult(testResult)
	if platformID.Valid {
		d.PlatformID = platformID.Int64
	}
	d.PlatformName = platformName.String
	d.ManufacturerName = manufacturerName.String
	d.DriverHint = netmikoType.String
	d.PagingDisableCmd = pagingCmd.String
	d.Legacy = legacy.Bool
	if roleID.Valid {
		d.RoleID = roleID.Int64
	}
	d.RoleName = roleName.String
	if credentialID.Valid {
		id := credentialID.Int64
		d.PinnedCredentialID = &id
	}
	if credTestedAt.Valid {
		t := credTestedAt.Time
		d.CredentialTestedAt = &t
	}
	if lastCollected.Valid {
		t := lastCollected.Time
		d.LastCollectedAt = &t
	}
	return d, nil
}
