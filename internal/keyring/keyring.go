// Package keyring caches container passcodes and the credential store
// password in the OS keyring.
package keyring

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "tdvault"
	storePrefix = "store:"
)

// ErrNotFound is returned when no entry exists for a key
var ErrNotFound = keyring.ErrNotFound

// ContainerID returns the keyring account name for a container directory.
// It is derived from the absolute path so relative invocations share it.
func ContainerID(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve container path: %w", err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:16]), nil
}

// SavePasscode stores a container passcode
func SavePasscode(containerID, passcode string) error {
	return keyring.Set(serviceName, containerID, passcode)
}

// GetPasscode retrieves a container passcode
func GetPasscode(containerID string) (string, error) {
	return keyring.Get(serviceName, containerID)
}

// DeletePasscode removes a container passcode
func DeletePasscode(containerID string) error {
	return keyring.Delete(serviceName, containerID)
}

// HasPasscode checks if a passcode is cached for the container
func HasPasscode(containerID string) bool {
	_, err := keyring.Get(serviceName, containerID)
	return err == nil
}

// SaveStorePassword stores the credential store password
func SaveStorePassword(storeID, password string) error {
	return keyring.Set(serviceName, storePrefix+storeID, password)
}

// GetStorePassword retrieves the credential store password
func GetStorePassword(storeID string) (string, error) {
	return keyring.Get(serviceName, storePrefix+storeID)
}

// DeleteStorePassword removes the credential store password.
// A missing entry is not an error.
func DeleteStorePassword(storeID string) error {
	err := keyring.Delete(serviceName, storePrefix+storeID)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasStorePassword reports whether a store password is cached
func HasStorePassword(storeID string) bool {
	_, err := GetStorePassword(storeID)
	return err == nil
}
