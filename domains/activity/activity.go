package activity

import "context"

// Type tags an audit entry. The set mirrors the lifecycle operations of
// the fleet.
type Type string

const (
	TypeCreation         Type = "creation"
	TypeApproval         Type = "approval"
	TypeRevocation       Type = "revocation"
	TypeRejection        Type = "rejection"
	TypeExpiration       Type = "expiration"
	TypeMigration        Type = "migration"
	TypeDestruction      Type = "destruction"
	TypeCredentialUpdate Type = "credential_update"
	TypeStatusChange     Type = "status_change"
	TypeResume           Type = "resume"
)

// Entry is one append-only audit record. Entries are immutable once
// written; cross-tenant operations carry the remote side.
type Entry struct {
	ID           string `json:"id,omitempty"`
	Type         Type   `json:"type"`
	Description  string `json:"description"`
	BotID        string `json:"bot_id,omitempty"`
	TenantName   string `json:"tenant_name"`
	Phone        string `json:"phone,omitempty"`
	RemoteTenant string `json:"remote_tenant,omitempty"`
	RemoteBotID  string `json:"remote_bot_id,omitempty"`
	Metadata     string `json:"metadata,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	TenantName string
	BotID      string
	Type       Type
	Limit      int
}

type IActivityUsecase interface {
	// Record appends one entry. Recording must never fail the operation
	// that produced it; implementations log and swallow storage errors.
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, filter Filter) ([]Entry, error)
}
