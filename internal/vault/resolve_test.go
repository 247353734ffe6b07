package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottpeterman/velocitycollector/internal/model"
	"github.com/scottpeterman/velocitycollector/internal/store"
)

func TestResolveForDevice_PinnedWins(t *testing.T) {
	fake := newFakeCredentialStore()
	s := NewSession(nil, fake)
	require.NoError(t, s.InitVault(context.Background(), "pw"))

	pinnedID, err := s.AddCredential(context.Background(), "legacy", model.SSHCredentials{Username: "u1", Password: "p1"}, false)
	require.NoError(t, err)
	_, err = s.AddCredential(context.Background(), "lab", model.SSHCredentials{Username: "u2", Password: "p2"}, true)
	require.NoError(t, err)

	device := model.Device{
		Name:                 "router1",
		PinnedCredentialID:   &pinnedID,
		CredentialTestResult: model.CredentialTestSuccess,
	}

	got, err := s.ResolveForDevice(context.Background(), device, nil)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Username)
}

func TestResolveForDevice_FallsBackToDefault(t *testing.T) {
	fake := newFakeCredentialStore()
	s := NewSession(nil, fake)
	require.NoError(t, s.InitVault(context.Background(), "pw"))

	_, err := s.AddCredential(context.Background(), "lab", model.SSHCredentials{Username: "u2", Password: "p2"}, true)
	require.NoError(t, err)

	device := model.Device{Name: "router2"}

	got, err := s.ResolveForDevice(context.Background(), device, nil)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.Username)
}

func TestResolveForDevice_OverrideBeatsDefault(t *testing.T) {
	fake := newFakeCredentialStore()
	s := NewSession(nil, fake)
	require.NoError(t, s.InitVault(context.Background(), "pw"))
	_, err := s.AddCredential(context.Background(), "lab", model.SSHCredentials{Username: "u2", Password: "p2"}, true)
	require.NoError(t, err)

	override := model.SSHCredentials{Username: "override-user", Password: "override-pass"}
	got, err := s.ResolveForDevice(context.Background(), model.Device{Name: "router3"}, &override)
	require.NoError(t, err)
	assert.Equal(t, "override-user", got.Username)
}

func TestResolveForDevice_NoCredential(t *testing.T) {
	fake := newFakeCredentialStore()
	s := NewSession(nil, fake)
	require.NoError(t, s.InitVault(context.Background(), "pw"))

	_, err := s.ResolveForDevice(context.Background(), model.Device{Name: "router4"}, nil)
	require.Error(t, err)
	kind, ok := store.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, store.KindNoCredential, kind)
}

func TestResolveForDevice_IgnoresPinnedWhenTestFailed(t *testing.T) {
	fake := newFakeCredentialStore()
	s := NewSession(nil, fake)
	require.NoError(t, s.InitVault(context.Background(), "pw"))

	pinnedID, err := s.AddCredential(context.Background(), "legacy", model.SSHCredentials{Username: "u1", Password: "p1"}, false)
	require.NoError(t, err)
	_, err = s.AddCredential(context.Background(), "lab", model.SSHCredentials{Username: "u2", Password: "p2"}, true)
	require.NoError(t, err)

	device := model.Device{
		Name:                 "router5",
		PinnedCredentialID:   &pinnedID,
		CredentialTestResult: model.CredentialTestFailed,
	}

	got, err := s.ResolveForDevice(context.Background(), device, nil)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.Username, "a failed-test pin must fall through to the default, not be retried")
}
