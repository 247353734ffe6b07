package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scottpeterman/velocitycollector/internal/store"
)

func TestExitCode_ConfigKindsAreTwo(t *testing.T) {
	for _, kind := range []store.Kind{store.KindConfigError, store.KindInventoryEmpty, store.KindSecretStoreLocked} {
		err := store.Wrap(kind, "test", errors.New("boom"))
		assert.Equal(t, 2, exitCode(err), "kind %s", kind)
	}
}

func TestExitCode_DeviceKindsAreOne(t *testing.T) {
	for _, kind := range []store.Kind{store.KindNoCredential, store.KindAuthFailed, store.KindTimeout, store.KindTransportError, store.KindCommandError, store.KindValidationFailed, store.KindPersistenceError} {
		err := store.Wrap(kind, "test", errors.New("boom"))
		assert.Equal(t, 1, exitCode(err), "kind %s", kind)
	}
}

func TestExitCode_UnwrappedErrorIsOne(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("plain error, no Kind")))
}
