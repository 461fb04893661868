package harvest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AUMikkel/survey-scripts/internal/scopus"
)

// DefaultIDKey is the seed object field holding the document identifier.
const DefaultIDKey = "scopus_id"

// LoadSeeds reads a JSON array of seed objects and returns the normalized
// identifier of each, in file order. Elements that are not objects, or lack
// a usable identifier under idKey, yield "" and are skipped by the
// collector; only an unreadable file or a non-array document is an error.
func LoadSeeds(path, idKey string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seeds: %w", err)
	}
	seeds, err := ParseSeeds(data, idKey)
	if err != nil {
		return nil, fmt.Errorf("parsing seeds %s: %w", path, err)
	}
	return seeds, nil
}

// ParseSeeds extracts seed identifiers from a JSON array of objects.
func ParseSeeds(data []byte, idKey string) ([]string, error) {
	if idKey == "" {
		idKey = DefaultIDKey
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("expected a JSON array of seed objects: %w", err)
	}

	seeds := make([]string, len(elems))
	for i, raw := range elems {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			continue
		}
		seeds[i] = scopus.NormalizeAny(obj[idKey])
	}
	return seeds, nil
}

// Window returns the half-open slice [from, to) of seeds, clamped to the
// list bounds. A non-positive to means "through the end".
func Window(seeds []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to <= 0 || to > len(seeds) {
		to = len(seeds)
	}
	if from >= to {
		return nil
	}
	return seeds[from:to]
}
