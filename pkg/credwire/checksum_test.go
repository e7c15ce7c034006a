package credwire

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestChecksumIsStable(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()

	sumA, err := Checksum(a)
	if err != nil {
		t.Fatalf("checksum failed: %v", err)
	}
	sumB, err := Checksum(b)
	if err != nil {
		t.Fatalf("checksum failed: %v", err)
	}
	if sumA != sumB {
		t.Fatalf("identical documents must hash identically: %d != %d", sumA, sumB)
	}
}

func TestChecksumSeesValueChanges(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()
	b["creds"].(map[string]any)["registrationId"] = float64(43)

	sumA, _ := Checksum(a)
	sumB, _ := Checksum(b)
	if sumA == sumB {
		t.Fatalf("a changed value must change the checksum")
	}
}

func TestScanContainersFindsMatch(t *testing.T) {
	root := t.TempDir()

	target := sampleDoc()
	other := sampleDoc()
	other["creds"].(map[string]any)["registrationId"] = float64(99)

	writeCreds := func(dir string, doc map[string]any) {
		t.Helper()
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		data, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "creds.json"), data, 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	matchDir := filepath.Join(root, "SERVER1", "bot_aaa")
	writeCreds(matchDir, target)
	writeCreds(filepath.Join(root, "SERVER1", "bot_bbb"), other)

	sum, err := Checksum(target)
	if err != nil {
		t.Fatalf("checksum failed: %v", err)
	}

	matches, err := ScanContainers(root, sum)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(matches) != 1 || matches[0] != matchDir {
		t.Fatalf("expected exactly %s, got %v", matchDir, matches)
	}
}
