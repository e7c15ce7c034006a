package utils

import (
	"fmt"
	"os"
	"path/filepath"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
)

// BotContainerPath returns the credential container for one bot on one
// server. The directory is created on first use.
func BotContainerPath(tenant, botID string) string {
	path := filepath.Join(coreconfig.Global.Paths.Auth, tenant, "bot_"+botID)
	_ = os.MkdirAll(path, 0755)
	return path
}

// BotContainerPathNoCreate returns the container path without touching
// the filesystem. Used when checking for or removing a container.
func BotContainerPathNoCreate(tenant, botID string) string {
	return filepath.Join(coreconfig.Global.Paths.Auth, tenant, "bot_"+botID)
}

// PairingContainerPath returns the throwaway container for one pairing
// request. Everything under it is removed on teardown.
func PairingContainerPath(requestID string) string {
	path := filepath.Join(coreconfig.Global.Paths.Auth, "_pairing", requestID)
	_ = os.MkdirAll(path, 0755)
	return path
}

// EnsureBaseDirectories creates the storage roots the process expects.
func EnsureBaseDirectories() error {
	dirs := []string{
		coreconfig.Global.Paths.Auth,
		filepath.Join(coreconfig.Global.Paths.Auth, "_pairing"),
		coreconfig.Global.Paths.Storage,
	}

	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}
