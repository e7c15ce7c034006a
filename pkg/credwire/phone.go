package credwire

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	pkgError "github.com/AzielCF/az-fleet/pkg/error"
)

var (
	jidPattern      = regexp.MustCompile(`^(\d+)[@:]`)
	digitRunPattern = regexp.MustCompile(`\d+`)
	colonPattern    = regexp.MustCompile(`(\d{10,15}):`)
)

// maxDescentDepth bounds the fallback walk over the whole document.
const maxDescentDepth = 5

// ExtractPhone produces the canonical phone identity of a credential
// document. Strategies are tried in order and the first digit string
// that passes ValidPhone wins:
//  1. creds.me.lid
//  2. creds.me.id
//  3. me.id
//  4. me.lid
//  5. digit runs inside the serialized creds subtree
//  6. a depth-bounded walk of the whole document
func ExtractPhone(doc map[string]any) (string, error) {
	creds, _ := doc["creds"].(map[string]any)

	if creds != nil {
		if me, ok := creds["me"].(map[string]any); ok {
			if phone, ok := phoneFromJID(me["lid"]); ok {
				return phone, nil
			}
			if phone, ok := phoneFromJID(me["id"]); ok {
				return phone, nil
			}
		}
	}

	if me, ok := doc["me"].(map[string]any); ok {
		if phone, ok := phoneFromJID(me["id"]); ok {
			return phone, nil
		}
		if phone, ok := phoneFromJID(me["lid"]); ok {
			return phone, nil
		}
	}

	if creds != nil {
		if phone, ok := phoneFromDigitRuns(creds); ok {
			return phone, nil
		}
	}

	if phone, ok := descend(doc, 0); ok {
		return phone, nil
	}

	return "", pkgError.ErrNoPhone
}

// ValidPhone reports whether s is a usable phone identity: digits
// only, 10 to 15 of them, no leading zero, numeric value above 10^9.
func ValidPhone(s string) bool {
	if len(s) < 10 || len(s) > 15 {
		return false
	}
	if s[0] == '0' {
		return false
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return false
	}
	return n > 1_000_000_000
}

func phoneFromJID(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	m := jidPattern.FindStringSubmatch(s)
	if m == nil || !ValidPhone(m[1]) {
		return "", false
	}
	return m[1], true
}

func phoneFromDigitRuns(creds map[string]any) (string, bool) {
	serialized, err := json.Marshal(creds)
	if err != nil {
		return "", false
	}
	for _, run := range digitRunPattern.FindAllString(string(serialized), -1) {
		if ValidPhone(run) {
			return run, true
		}
	}
	return "", false
}

// descend walks the document depth-first with sorted keys so the
// result does not depend on map iteration order.
func descend(node any, depth int) (string, bool) {
	if depth > maxDescentDepth {
		return "", false
	}

	switch v := node.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if phone, ok := inspectField(k, v[k]); ok {
				return phone, true
			}
			if phone, ok := descend(v[k], depth+1); ok {
				return phone, true
			}
		}
	case []any:
		for _, item := range v {
			if phone, ok := descend(item, depth+1); ok {
				return phone, true
			}
		}
	}

	return "", false
}

func inspectField(key string, value any) (string, bool) {
	if s, ok := value.(string); ok {
		if m := colonPattern.FindStringSubmatch(s); m != nil && ValidPhone(m[1]) {
			return m[1], true
		}
	}

	folded := strings.ToLower(key)
	if !strings.Contains(folded, "phone") && !strings.Contains(folded, "number") {
		return "", false
	}

	var text string
	switch v := value.(type) {
	case string:
		text = v
	case float64:
		text = fmt.Sprintf("%.0f", v)
	case json.Number:
		text = v.String()
	default:
		return "", false
	}

	digits := stripNonDigits(text)
	if ValidPhone(digits) {
		return digits, true
	}
	return "", false
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
