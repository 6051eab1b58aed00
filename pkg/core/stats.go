package core

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Stats is a flat set of numeric counters. Decoding keeps numeric members
// and drops booleans, strings, arrays and objects, so a stat block can be
// folded without type checks.
type Stats map[string]float64

// UnmarshalJSON decodes only the numeric members of a JSON object.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}

	out := make(Stats, len(raw))
	for k, v := range raw {
		if len(v) == 0 {
			continue
		}
		switch v[0] {
		case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			var f float64
			if err := json.Unmarshal(v, &f); err == nil {
				out[k] = f
			}
		}
	}
	*s = out
	return nil
}

// ID returns the "id" member as an int, used by skill distribution entries.
func (s Stats) ID() int {
	return int(s["id"])
}

// Get returns the value of key or zero.
func (s Stats) Get(key string) float64 {
	return s[key]
}

// Keys returns the stat names in sorted order.
func (s Stats) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
