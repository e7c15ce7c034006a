package utils

import (
	"strings"
)

// ResolveTenantName returns the canonical name of the server this
// process manages. Logic:
// 1. Runtime override (RUNTIME_SERVER_NAME), highest priority.
// 2. Static environment name (SERVER_NAME).
// 3. Name stored in the settings table from a previous run.
// 4. Built-in fallback.
// The winner is always returned in canonical uppercase form.
func ResolveTenantName(runtimeName, staticName, stored, fallback string) string {
	if runtimeName != "" {
		return NormalizeTenantName(runtimeName)
	}

	if staticName != "" {
		return NormalizeTenantName(staticName)
	}

	if stored != "" {
		return NormalizeTenantName(stored)
	}

	return NormalizeTenantName(fallback)
}

// NormalizeTenantName trims and uppercases a server name. Tenant names
// are compared in uppercase everywhere.
func NormalizeTenantName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
