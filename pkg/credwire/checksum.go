package credwire

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	pkgError "github.com/AzielCF/az-fleet/pkg/error"
)

// Checksum computes a 32-bit fingerprint of a credential document. The
// document is serialized canonically (object keys sorted, which
// encoding/json already guarantees for maps) and the bytes are folded
// into a running hash.
func Checksum(doc map[string]any) (uint32, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, pkgError.ErrBadJson
	}

	var h uint32
	for _, b := range data {
		h = h*31 + uint32(b)
	}
	return h, nil
}

// ScanContainers walks the container tree under root looking for
// creds.json files whose checksum matches sum. It returns the matching
// container directories. Advisory only: the registration path relies
// on the registry, never on this scan.
func ScanContainers(root string, sum uint32) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Name() != "creds.json" {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil
		}
		candidate, err := Checksum(doc)
		if err == nil && candidate == sum {
			matches = append(matches, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, pkgError.ErrContainerIO
	}
	return matches, nil
}
