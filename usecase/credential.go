package usecase

import (
	"context"
	"strings"

	coreconfig "github.com/AzielCF/az-fleet/core/config"
	domainCredential "github.com/AzielCF/az-fleet/domains/credential"
	"github.com/AzielCF/az-fleet/pkg/credwire"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
)

type credentialService struct{}

// NewCredentialService builds the credential validator. It is pure
// computation over the wire format plus an advisory container scan; no
// storage of its own.
func NewCredentialService() domainCredential.ICredentialUsecase {
	return &credentialService{}
}

// Validate decodes and normalizes a credential payload and extracts its
// phone identity. A caller-supplied phone that disagrees with the
// extracted one is a mismatch, never silently overridden.
func (s *credentialService) Validate(ctx context.Context, req domainCredential.ValidateRequest) (domainCredential.ValidateResponse, error) {
	doc := req.Blob
	if doc == nil {
		if strings.TrimSpace(req.SessionString) == "" {
			return domainCredential.ValidateResponse{}, pkgError.ValidationError("session_string: cannot be blank.")
		}
		decoded, err := credwire.Decode(req.SessionString)
		if err != nil {
			return domainCredential.ValidateResponse{}, err
		}
		doc = decoded
	}

	normalized, err := credwire.Normalize(doc)
	if err != nil {
		return domainCredential.ValidateResponse{}, err
	}

	phone, err := credwire.ExtractPhone(normalized)
	if err != nil {
		return domainCredential.ValidateResponse{}, err
	}

	if want := strings.TrimSpace(req.Phone); want != "" && want != phone {
		return domainCredential.ValidateResponse{}, pkgError.PhoneMismatch(want, phone)
	}

	return domainCredential.ValidateResponse{
		Valid:          true,
		Phone:          phone,
		NormalizedBlob: normalized,
	}, nil
}

func (s *credentialService) ExtractPhone(ctx context.Context, sessionString string) (string, error) {
	doc, err := credwire.Decode(sessionString)
	if err != nil {
		return "", err
	}
	normalized, err := credwire.Normalize(doc)
	if err != nil {
		return "", err
	}
	return credwire.ExtractPhone(normalized)
}

// ScanDuplicates checksums the payload and walks the container tree for
// creds.json files with the same fingerprint. Advisory only; the
// registration path never consults it.
func (s *credentialService) ScanDuplicates(ctx context.Context, sessionString string) (domainCredential.ScanReport, error) {
	doc, err := credwire.Decode(sessionString)
	if err != nil {
		return domainCredential.ScanReport{}, err
	}
	normalized, err := credwire.Normalize(doc)
	if err != nil {
		return domainCredential.ScanReport{}, err
	}

	sum, err := credwire.Checksum(normalized)
	if err != nil {
		return domainCredential.ScanReport{}, err
	}

	root := coreconfig.Global.Paths.Auth
	matches, err := credwire.ScanContainers(root, sum)
	if err != nil {
		return domainCredential.ScanReport{}, err
	}

	return domainCredential.ScanReport{
		Checksum:   sum,
		Containers: matches,
	}, nil
}
