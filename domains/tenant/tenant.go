package tenant

import "context"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Tenant is a logical server partition hosting a capped number of bots.
// Names are canonically uppercase everywhere.
type Tenant struct {
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	CurrentCount int    `json:"current_count"`
	Status       Status `json:"status"`
	URL          string `json:"url,omitempty"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// HasFreeSlot reports whether the tenant can accept one more bot.
func (t Tenant) HasFreeSlot() bool {
	return t.CurrentCount < t.Capacity
}

type CreateTenantRequest struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type UpdateTenantRequest struct {
	Capacity    *int    `json:"capacity"`
	Status      *string `json:"status"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
}

// URLMetadata is what the metadata probe extracts from a tenant's URL.
type URLMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ITenantUsecase interface {
	// EnsureDefault seeds the process-local tenant at bootstrap when it
	// does not exist yet and reconciles its bot count.
	EnsureDefault(ctx context.Context) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	GetByName(ctx context.Context, name string) (Tenant, error)
	Create(ctx context.Context, req CreateTenantRequest) (Tenant, error)
	Update(ctx context.Context, name string, req UpdateTenantRequest) (Tenant, error)
	// ProbeURL fetches the tenant's URL and extracts page metadata to
	// fill an empty description.
	ProbeURL(ctx context.Context, name string) (URLMetadata, error)
	// ReconcileCounts recomputes current_count from the bot table.
	ReconcileCounts(ctx context.Context) error
}
