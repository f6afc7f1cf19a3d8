// Package envelope canonicalizes the heterogeneous response shapes the
// backend returns for list operations. Depending on the deployment, a list
// may arrive as a bare JSON array, wrapped under "results" or "data", or as
// a single object. Normalize maps all of them to one ordered record list.
package envelope

import (
	"bytes"
	"encoding/json"
)

// List is the canonical form of a response envelope: the backend-ordered
// records plus a diagnostic flag for shapes nothing matched.
type List struct {
	Records []json.RawMessage
	// Unrecognized is set when the envelope matched none of the known
	// shapes. The list is empty in that case; it is not a hard failure.
	Unrecognized bool
}

// Len returns the number of records in the canonical list.
func (l List) Len() int { return len(l.Records) }

// Normalize applies the shape rules in order, first match wins:
//
//  1. a JSON array passes through unchanged
//  2. an object with an array at "results" yields that array
//  3. an object with an array at "data" yields that array
//  4. any other non-empty object is wrapped as a one-element list
//  5. everything else yields an empty list with Unrecognized set
//
// Normalize is idempotent: feeding a normalized list back through it is the
// identity, since its output already satisfies rule 1.
func Normalize(raw []byte) List {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return List{Unrecognized: true}
	}

	switch trimmed[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return List{Unrecognized: true}
		}
		return List{Records: records}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return List{Unrecognized: true}
		}
		for _, key := range []string{"results", "data"} {
			inner, ok := fields[key]
			if !ok || !isArray(inner) {
				continue
			}
			var records []json.RawMessage
			if err := json.Unmarshal(inner, &records); err != nil {
				return List{Unrecognized: true}
			}
			return List{Records: records}
		}
		if len(fields) == 0 {
			return List{Unrecognized: true}
		}
		clone := make(json.RawMessage, len(trimmed))
		copy(clone, trimmed)
		return List{Records: []json.RawMessage{clone}}
	default:
		// Scalars and malformed payloads have no list interpretation.
		return List{Unrecognized: true}
	}
}

// Decode unmarshals every canonical record into T, preserving order.
func Decode[T any](l List) ([]T, error) {
	out := make([]T, 0, len(l.Records))
	for _, raw := range l.Records {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
