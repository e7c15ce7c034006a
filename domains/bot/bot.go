package bot

import "context"

// Status is the connection state of a bot's socket worker.
type Status string

const (
	StatusOffline Status = "offline"
	StatusLoading Status = "loading"
	StatusOnline  Status = "online"
	StatusError   Status = "error"
)

// ApprovalStatus gates whether a bot may run at all.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalDormant  ApprovalStatus = "dormant"
)

// TypingMode controls the presence shown before the bot replies.
type TypingMode string

const (
	TypingNone      TypingMode = "none"
	TypingTyping    TypingMode = "typing"
	TypingRecording TypingMode = "recording"
)

// Features are the per-bot behavior toggles.
type Features struct {
	AutoLike       bool       `json:"auto_like"`
	AutoReact      bool       `json:"auto_react"`
	AutoViewStatus bool       `json:"auto_view_status"`
	ChatAgent      bool       `json:"chat_agent"`
	TypingMode     TypingMode `json:"typing_mode"`
}

type Bot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Credentials string `json:"-"`

	Features Features `json:"features"`

	Messages int64 `json:"messages"`
	Commands int64 `json:"commands"`

	Status           Status         `json:"status"`
	ApprovalStatus   ApprovalStatus `json:"approval_status"`
	ApprovalDate     string         `json:"approval_date,omitempty"`
	ExpirationMonths int            `json:"expiration_months,omitempty"`

	TenantName string `json:"tenant_name"`
	IsGuest    bool   `json:"is_guest"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type UpdateFeaturesRequest struct {
	AutoLike       *bool   `json:"auto_like"`
	AutoReact      *bool   `json:"auto_react"`
	AutoViewStatus *bool   `json:"auto_view_status"`
	ChatAgent      *bool   `json:"chat_agent"`
	TypingMode     *string `json:"typing_mode"`
}

type IBotUsecase interface {
	List(ctx context.Context, tenant string) ([]Bot, error)
	// ListApproved returns the bots eligible for auto-start on a tenant.
	ListApproved(ctx context.Context, tenant string) ([]Bot, error)
	GetByID(ctx context.Context, id string) (Bot, error)
	GetByPhone(ctx context.Context, phone string) (Bot, error)
	UpdateName(ctx context.Context, id string, name string) (Bot, error)
	UpdateFeatures(ctx context.Context, id string, req UpdateFeaturesRequest) (Bot, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// ConfirmCredentials persists the blob the worker materialized so
	// the row and the container stay in sync.
	ConfirmCredentials(ctx context.Context, id string, blob string) error
	IncrementMessages(ctx context.Context, id string) error
	IncrementCommands(ctx context.Context, id string) error
}
