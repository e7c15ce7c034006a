package fleet

import (
	"context"

	domainBot "github.com/AzielCF/az-fleet/domains/bot"
)

// RegistrationKind distinguishes a fresh row from an existing-bot
// discovery hit.
type RegistrationKind string

const (
	KindNewRegistration  RegistrationKind = "new_registration"
	KindExistingBotFound RegistrationKind = "existing_bot_found"
)

type RegisterRequest struct {
	BotName       string `json:"bot_name"`
	Phone         string `json:"phone"`
	SessionString string `json:"session_string"`
	TargetTenant  string `json:"target_tenant"`
	IsGuest       bool   `json:"is_guest"`
	// FindExisting turns a same-tenant duplicate into a discovery hit
	// instead of a rejection.
	FindExisting bool `json:"find_existing"`

	Features domainBot.Features `json:"features"`
}

type RegisterResponse struct {
	Kind RegistrationKind `json:"kind"`
	Bot  domainBot.Bot    `json:"bot"`
}

type CheckRegistrationResponse struct {
	Registered    bool           `json:"registered"`
	HostingTenant string         `json:"hosting_tenant,omitempty"`
	CurrentTenant string         `json:"current_tenant"`
	HasBotHere    bool           `json:"has_bot_here"`
	Bot           *domainBot.Bot `json:"bot,omitempty"`
}

// ApprovalResponse reports the row after an approve call. Changed is
// false when the bot was already approved and nothing was mutated.
type ApprovalResponse struct {
	Bot     domainBot.Bot `json:"bot"`
	Changed bool          `json:"changed"`
}

type BatchOperation string

const (
	BatchStart   BatchOperation = "start"
	BatchStop    BatchOperation = "stop"
	BatchRestart BatchOperation = "restart"
	BatchApprove BatchOperation = "approve"
)

type BatchRequest struct {
	Operation BatchOperation `json:"operation"`
	BotIDs    []string       `json:"bot_ids"`
	// TargetTenant, when set, restricts the batch to bots hosted there;
	// off-tenant ids fail individually without aborting the batch.
	TargetTenant string `json:"target_tenant,omitempty"`
	// Months applies to the approve operation only.
	Months int `json:"months,omitempty"`
}

type BatchFailure struct {
	BotID  string `json:"bot_id"`
	Reason string `json:"reason"`
}

type BatchResult struct {
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	Failed    []BatchFailure `json:"failed"`
}

// IFleetUsecase is the registration engine plus the lifecycle surface
// the control plane consumes.
type IFleetUsecase interface {
	Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error)
	CheckRegistration(ctx context.Context, phone string) (CheckRegistrationResponse, error)

	Approve(ctx context.Context, botID string, months int) (ApprovalResponse, error)
	Reject(ctx context.Context, botID string) (domainBot.Bot, error)
	Revoke(ctx context.Context, botID string) (domainBot.Bot, error)
	// UpdateCredentials replaces the blob, restarts the worker and
	// preserves the approval state.
	UpdateCredentials(ctx context.Context, botID, sessionString string) (domainBot.Bot, error)
	Migrate(ctx context.Context, botID, targetTenant string) (domainBot.Bot, error)

	StartBot(ctx context.Context, botID string) error
	StopBot(ctx context.Context, botID string) error
	RestartBot(ctx context.Context, botID string) error
	DestroyBot(ctx context.Context, botID string) error

	Batch(ctx context.Context, req BatchRequest) (BatchResult, error)
	// ResumeTenant starts every approved bot on the tenant, returning
	// how many start attempts were dispatched.
	ResumeTenant(ctx context.Context, tenantName string) (int, error)
	// SweepExpirations moves approved bots past their window to dormant,
	// returning how many expired.
	SweepExpirations(ctx context.Context) (int, error)
}
