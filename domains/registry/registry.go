package registry

import "context"

// Entry maps a phone number to the tenant that owns it. Phones are
// unique across the whole fleet.
type Entry struct {
	Phone      string `json:"phone"`
	TenantName string `json:"tenant_name"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Availability is the outcome of the registry cross-check performed
// before a registration is accepted.
type Availability string

const (
	Available            Availability = "available"
	DuplicateSameTenant  Availability = "duplicate_same_tenant"
	DuplicateOtherTenant Availability = "duplicate_other_tenant"
	InconsistentLocal    Availability = "inconsistent_local"
)

// CheckResult carries the availability verdict plus the owning tenant
// when the phone is already registered somewhere.
type CheckResult struct {
	Availability Availability `json:"availability"`
	OwnerTenant  string       `json:"owner_tenant,omitempty"`
}

type IRegistryUsecase interface {
	Lookup(ctx context.Context, phone string) (Entry, bool, error)
	// Insert claims the phone for a tenant. Unique violations surface
	// as DuplicateOnOtherTenant / DuplicateOnThisTenant policy errors.
	Insert(ctx context.Context, phone, tenantName string) error
	// UpdateTenant moves the phone's ownership during migration.
	UpdateTenant(ctx context.Context, phone, tenantName string) error
	// Remove releases the phone. Only bot destruction calls this.
	Remove(ctx context.Context, phone string) error
	// Check runs the registry cross-check for (phone, tenant).
	Check(ctx context.Context, phone, tenantName string) (CheckResult, error)
	List(ctx context.Context) ([]Entry, error)
}
