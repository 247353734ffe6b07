package vault

import (
	"context"
	"errors"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

// ResolveForDevice implements §4.2's resolution chain: a device's pinned
// credential (only if it last tested successful), then an explicit run-wide
// override, then the store default, failing the device otherwise.
func (s *Session) ResolveForDevice(ctx context.Context, device model.Device, override *model.SSHCredentials) (model.SSHCredentials, error) {
	if !s.IsUnlocked() {
		return model.SSHCredentials{}, store.Wrap(store.KindSecretStoreLocked, "vault.ResolveForDevice", errors.New("vault is locked"))
	}

	if device.PinnedCredentialID != nil && device.CredentialTestResult == model.CredentialTestSuccess {
		if c, ok := s.GetByID(*device.PinnedCredentialID); ok {
			return c, nil
		}
	}

	if override != nil {
		return *override, nil
	}

	if def, ok, err := s.GetDefault(ctx); err != nil {
		return model.SSHCredentials{}, err
	} else if ok {
		return def, nil
	}

	return model.SSHCredentials{}, store.Wrap(store.KindNoCredential, "vault.ResolveForDevice",
		errors.New("no credential available for device "+device.Name))
}
