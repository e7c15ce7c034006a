package pairing

import "context"

// PairingResponse carries the 8-character linking code issued by the
// upstream service, plus the identifiers the caller can use to find the
// harvested guest session afterwards.
type PairingResponse struct {
	Code      string `json:"code"`
	RequestID string `json:"request_id"`
	Phone     string `json:"phone"`
}

// GuestSessionResponse reports whether a pairing request ever produced
// a linked session container.
type GuestSessionResponse struct {
	Found     bool   `json:"found"`
	SessionID string `json:"session_id,omitempty"`
	Phone     string `json:"phone,omitempty"`
	LinkedAt  string `json:"linked_at,omitempty"`
}

type IPairingUsecase interface {
	GeneratePairingCode(ctx context.Context, phone string) (PairingResponse, error)
	GetGuestSession(ctx context.Context, phone string) (GuestSessionResponse, error)
	// SweepExpired removes guest session rows older than the configured
	// TTL, returning how many were reaped.
	SweepExpired(ctx context.Context) (int, error)
}
