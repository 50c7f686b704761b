// Package ophash computes the canonical content hash of a normalized
// reorder operation. The hash keys idempotent-replay detection, so two
// encodings of the same intent must always collide and two different
// intents must (cryptographically) never.
package ophash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ytqm/ytqm/internal/models"
)

// domain prefixes the hashed bytes so op hashes can never collide with
// other content-addressed values, and the suffix allows algorithm
// migration later.
const domain = "ytqm/reorder-op/v1"

// Hash returns the hex SHA-256 of the canonical encoding of op.
func Hash(op models.ReorderOp) string {
	op = op.Normalized()

	var overID any
	if op.Dest.OverID != nil {
		overID = *op.Dest.OverID
	}

	canonical := stableStringify(map[string]any{
		"source": map[string]any{
			"list": string(op.Source.List),
			"id":   op.Source.ID,
		},
		"dest": map[string]any{
			"list":   string(op.Dest.List),
			"overId": overID,
			"edge":   string(op.Dest.Edge),
		},
		"mode": string(op.Mode),
	})

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write([]byte(canonical))
	return hex.EncodeToString(h.Sum(nil))
}

// stableStringify renders a value as JSON with object keys sorted, so
// the encoding is independent of map iteration order.
func stableStringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		b, _ := json.Marshal(val)
		return string(b)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = stableStringify(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			kb, _ := json.Marshal(k)
			parts[i] = string(kb) + ":" + stableStringify(val[k])
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "null"
	}
}
