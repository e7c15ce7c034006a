package credential

import "context"

// ValidateRequest carries either a wire-format session string or an
// already parsed credential document, plus an optional caller-supplied
// phone to cross-check against the extracted identity.
type ValidateRequest struct {
	SessionString string         `json:"session_string"`
	Blob          map[string]any `json:"blob"`
	Phone         string         `json:"phone"`
}

// ValidateResponse is returned when the credentials decode and pass
// structural validation. NormalizedBlob is the storable form.
type ValidateResponse struct {
	Valid          bool           `json:"valid"`
	Phone          string         `json:"phone"`
	NormalizedBlob map[string]any `json:"normalized_blob,omitempty"`
}

// ScanReport is the advisory result of the legacy on-disk duplicate
// scan. It never gates a registration.
type ScanReport struct {
	Checksum   uint32   `json:"checksum"`
	Containers []string `json:"containers"`
}

type ICredentialUsecase interface {
	// Validate decodes, normalizes and extracts the phone identity of a
	// credential payload. Failures are precise validation errors.
	Validate(ctx context.Context, req ValidateRequest) (ValidateResponse, error)
	// ExtractPhone is the short path used when only the identity matters.
	ExtractPhone(ctx context.Context, sessionString string) (string, error)
	// ScanDuplicates checksums the payload and walks the container tree
	// for matching creds.json files. Advisory only.
	ScanDuplicates(ctx context.Context, sessionString string) (ScanReport, error)
}
