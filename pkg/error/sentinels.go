package error

import (
	"fmt"
	"strings"
)

// Input errors raised while decoding and validating credential payloads.
var (
	ErrBadEncoding = ValidationError("credentials: payload is not valid base64.")
	ErrBadJson     = ValidationError("credentials: payload is not valid JSON.")
	ErrNoPhone     = ValidationError("credentials: no usable phone number found.")
	ErrBadDuration = ValidationError("months: must be between 1 and 12.")
)

// Policy errors raised by the tenancy and lifecycle rules.
var (
	ErrDuplicateOnThisTenant = PolicyError("phone: already registered on this server.")
	ErrInconsistentLocalBot  = PolicyError("phone: bot exists locally without a registry entry.")
	ErrMigrationSameTenant   = PolicyError("tenant: bot already lives on the target server.")
	ErrNotApproved           = PolicyError("bot: not approved.")
	ErrRejected              = PolicyError("bot: registration was rejected.")
	ErrDormant               = PolicyError("bot: approval expired, bot is dormant.")
	ErrSkipped               = PolicyError("bot: skipped after repeated start failures.")
)

// Transient errors. Callers may retry.
var (
	ErrConnectTimeout      = InternalServerError("socket: connect timed out.")
	ErrCloseRetriable      = InternalServerError("socket: connection closed, retry possible.")
	ErrDatabaseUnavailable = InternalServerError("database: unavailable.")
)

// Fatal errors. Human intervention or fresh credentials required.
var (
	ErrAuthFailed           = InternalServerError("session: authentication failed upstream.")
	ErrBadSession           = InternalServerError("session: credentials rejected or stream replaced.")
	ErrContainerIO          = InternalServerError("container: filesystem operation failed.")
	ErrStartupMisconfigured = InternalServerError("startup: configuration invalid.")
	ErrPairingTimeout       = InternalServerError("pairing: deadline exceeded.")
)

// MissingFields reports which required credential keys are absent.
func MissingFields(fields []string) ValidationError {
	return ValidationError("credentials: missing required keys: " + strings.Join(fields, ", ") + ".")
}

// PhoneMismatch reports a caller supplied phone that disagrees with the
// number extracted from the credentials themselves.
func PhoneMismatch(want, got string) ValidationError {
	return ValidationError(fmt.Sprintf("phone: expected %s but credentials belong to %s.", want, got))
}

// DuplicateOnOtherTenant reports the server already hosting the phone.
func DuplicateOnOtherTenant(tenant string) PolicyError {
	return PolicyError("phone: already registered on server " + tenant + ".")
}

// TenantUnknown reports a target server that does not exist or is inactive.
func TenantUnknown(name string) PolicyError {
	return PolicyError("tenant: server " + name + " unknown or inactive.")
}

// TenantFull reports a target server with no free slot, with capacity
// numbers so operators can see how full it actually is.
func TenantFull(name string, current, capacity int) PolicyError {
	return PolicyError(fmt.Sprintf("tenant: server %s is full (%d/%d bots).", name, current, capacity))
}
