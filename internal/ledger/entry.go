package ledger

import (
	"encoding/json"
	"strings"
)

// Entry is one attachment record inside a product's embedded list. File and
// Image hold canonical identity strings, but legacy values (bare names,
// absolute URLs) survive in stored data and are normalized on comparison,
// never rewritten in place.
type Entry struct {
	Title string `json:"title"`
	File  string `json:"file"`
	Image string `json:"image"`
}

// decodeEntries parses a raw ledger field value. Malformed content is
// treated as empty, never as an error: a broken field must not block
// further operation on its product. Entries without a file reference are
// dropped; unknown keys are ignored.
func decodeEntries(raw string) []Entry {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var items []Entry
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	out := items[:0]
	for _, e := range items {
		if strings.TrimSpace(e.File) == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// encodeEntries serializes the full list for write-back. An empty list
// encodes as "[]" so removal leaves well-formed JSON behind.
func encodeEntries(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
