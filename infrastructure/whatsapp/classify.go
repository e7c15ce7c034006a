package whatsapp

import (
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"go.mau.fi/whatsmeow/types/events"
)

// CloseReason is the normalized verdict for a socket close event.
type CloseReason string

const (
	CloseRetriable  CloseReason = "closed_retriable"
	CloseAuthFailed CloseReason = "auth_failed"
	CloseBadSession CloseReason = "bad_session"
	CloseTimedOut   CloseReason = "timed_out"
	CloseUnknown    CloseReason = "unknown"
)

// Retriable reports whether a reconnect attempt makes sense.
func (r CloseReason) Retriable() bool {
	return r == CloseRetriable || r == CloseTimedOut
}

// Err maps the reason onto the error taxonomy.
func (r CloseReason) Err() error {
	switch r {
	case CloseAuthFailed:
		return pkgError.ErrAuthFailed
	case CloseBadSession:
		return pkgError.ErrBadSession
	case CloseTimedOut:
		return pkgError.ErrConnectTimeout
	default:
		return pkgError.ErrCloseRetriable
	}
}

// ClassifyEvent translates a whatsmeow connection event into a close
// reason. Returns ok=false for events that are not socket closures.
func ClassifyEvent(evt interface{}) (CloseReason, bool) {
	switch v := evt.(type) {
	case *events.Disconnected:
		return CloseRetriable, true
	case *events.KeepAliveTimeout:
		return CloseTimedOut, true
	case *events.LoggedOut:
		return CloseAuthFailed, true
	case *events.TemporaryBan:
		return CloseAuthFailed, true
	case *events.StreamReplaced:
		return CloseBadSession, true
	case *events.ClientOutdated:
		return CloseBadSession, true
	case *events.ConnectFailure:
		if v.Reason.IsLoggedOut() || v.Reason == events.ConnectFailureTempBanned {
			return CloseAuthFailed, true
		}
		if v.Reason == events.ConnectFailureClientOutdated {
			return CloseBadSession, true
		}
		return CloseUnknown, true
	default:
		return "", false
	}
}
