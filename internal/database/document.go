package database

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/iliyamo/manufacturer-api/internal/repository"
)

// toDoc flattens a value into a generic document using its JSON shape, which
// matches the field names used in the document store.
func toDoc(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// decodeDocs decodes a list of JSON documents into out, a pointer to a slice.
func decodeDocs(docs []json.RawMessage, out any) error {
	if docs == nil {
		docs = []json.RawMessage{}
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("decode documents: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode documents: %w", err)
	}
	return nil
}

// docID returns the document id carried by doc, or a fresh one.
func docID(doc map[string]any) string {
	if id, ok := doc[repository.IDField].(string); ok && id != "" {
		return id
	}
	return repository.NewID()
}

// sortedKeys keeps generated queries deterministic.
func sortedKeys(f repository.Filter) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
