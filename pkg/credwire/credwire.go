// Package credwire decodes and validates the wire-format credential
// strings bots are registered with, and extracts the canonical phone
// identity from the resulting document.
package credwire

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	pkgError "github.com/AzielCF/az-fleet/pkg/error"
)

// Tag is the optional literal prefix of a wire-format session string.
const Tag = "TREKKER~"

// Required session key fields. A credential document missing any of
// them cannot open a socket.
var requiredKeys = []string{"noiseKey", "signedIdentityKey", "signedPreKey", "registrationId"}

// Decode turns a wire-format session string into a parsed JSON
// document. The string may carry the Tag prefix; the remainder must be
// base64 of UTF-8 JSON.
func Decode(raw string) (map[string]any, error) {
	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, Tag)

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, pkgError.ErrBadEncoding
	}

	var doc map[string]any
	if err := json.Unmarshal(decoded, &doc); err != nil {
		return nil, pkgError.ErrBadJson
	}
	return doc, nil
}

// Encode serializes a credential document back into the tagged
// wire format. Encode and Decode round-trip.
func Encode(doc map[string]any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", pkgError.ErrBadJson
	}
	return Tag + base64.StdEncoding.EncodeToString(data), nil
}

// Normalize validates the structure of a decoded credential document
// and returns it in storable form. Two shapes are accepted: a wrapped
// document with the session keys under "creds", and a flat v7 document
// with the session keys at the root. A flat document that already
// carries its own "me" identity is stored verbatim; otherwise it is
// rewrapped with an empty key store.
func Normalize(doc map[string]any) (map[string]any, error) {
	if creds, ok := doc["creds"].(map[string]any); ok {
		if missing := missingKeys(creds); len(missing) > 0 {
			return nil, pkgError.MissingFields(missing)
		}
		return doc, nil
	}

	if missing := missingKeys(doc); len(missing) > 0 {
		return nil, pkgError.MissingFields(missing)
	}

	if me, ok := doc["me"].(map[string]any); ok {
		if _, hasID := me["id"]; hasID {
			return doc, nil
		}
		if _, hasLid := me["lid"]; hasLid {
			return doc, nil
		}
	}

	return map[string]any{"creds": doc, "keys": map[string]any{}}, nil
}

func missingKeys(obj map[string]any) []string {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
