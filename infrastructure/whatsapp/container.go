package whatsapp

import (
	"fmt"
	"os"
	"path/filepath"

	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/AzielCF/az-fleet/pkg/utils"
	"github.com/sirupsen/logrus"
)

const credsFileName = "creds.json"

// Container is one bot's credential directory on disk. The socket
// library owns every file inside it except creds.json, which the worker
// materializes from the bot row before the first connect.
type Container struct {
	tenant string
	botID  string
	path   string
}

// NewContainer resolves (and creates) the container directory for a bot
// on a tenant.
func NewContainer(tenant, botID string) *Container {
	return &Container{
		tenant: tenant,
		botID:  botID,
		path:   utils.BotContainerPath(tenant, botID),
	}
}

// Path returns the container directory.
func (c *Container) Path() string {
	return c.path
}

// CredsPath returns the location of the materialized credentials file.
func (c *Container) CredsPath() string {
	return filepath.Join(c.path, credsFileName)
}

// SessionDSN returns the sqlite DSN for the worker's whatsmeow device
// store, kept inside the container so destroy/migrate move everything
// at once.
func (c *Container) SessionDSN() string {
	return fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(c.path, "session.db"))
}

// HasCredentials reports whether creds.json exists in the container.
func (c *Container) HasCredentials() bool {
	info, err := os.Stat(c.CredsPath())
	return err == nil && !info.IsDir()
}

// WriteCredentials materializes the row blob into the container.
func (c *Container) WriteCredentials(blob string) error {
	if err := os.WriteFile(c.CredsPath(), []byte(blob), 0600); err != nil {
		logrus.WithError(err).Errorf("[WORKER] Failed to write credentials for bot %s", c.botID)
		return pkgError.ErrContainerIO
	}
	return nil
}

// ReadCredentials returns the materialized blob, empty when absent.
func (c *Container) ReadCredentials() (string, error) {
	data, err := os.ReadFile(c.CredsPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", pkgError.ErrContainerIO
	}
	return string(data), nil
}

// RemoveContainer deletes a bot's container directory. Only destroy
// calls this; graceful stops never touch credentials.
func RemoveContainer(tenant, botID string) error {
	path := utils.BotContainerPathNoCreate(tenant, botID)
	if err := os.RemoveAll(path); err != nil {
		logrus.WithError(err).Errorf("[WORKER] Failed to remove container %s", path)
		return pkgError.ErrContainerIO
	}
	return nil
}

// MoveContainer relocates a bot's container between tenants during
// migration. A missing source is fine: the worker will rematerialize
// credentials from the row on the next start.
func MoveContainer(botID, fromTenant, toTenant string) error {
	src := utils.BotContainerPathNoCreate(fromTenant, botID)
	dst := utils.BotContainerPathNoCreate(toTenant, botID)

	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return pkgError.ErrContainerIO
	}
	_ = os.RemoveAll(dst)
	if err := os.Rename(src, dst); err != nil {
		logrus.WithError(err).Errorf("[WORKER] Failed to move container for bot %s: %s -> %s", botID, src, dst)
		return pkgError.ErrContainerIO
	}

	logrus.Infof("[WORKER] Moved container for bot %s from %s to %s", botID, fromTenant, toTenant)
	return nil
}
