// Package model provides the domain records managed by the synchronization
// layer and the generic field-map form the storage adapters operate on.
//
// Storage adapters never interpret a record beyond its "id" and "userId"
// fields. Everything else travels as an opaque field map so that partial
// updates can be merged field-by-field on write.
package model

import (
	"encoding/json"
	"fmt"
)

// Standard collection names. Every record is scoped to exactly one identity
// inside one of these collections.
const (
	CollectionTransactions = "transactions"
	CollectionInvoices     = "invoices"
	CollectionClients      = "clients"
	CollectionProjects     = "projects"
	CollectionEvents       = "events"
	CollectionSettings     = "settings"
)

// StandardCollections are the collections a UI session subscribes to as a
// group when an identity becomes available.
var StandardCollections = []string{
	CollectionTransactions,
	CollectionInvoices,
	CollectionClients,
	CollectionProjects,
	CollectionEvents,
}

// Fields is the wire form of a record: a flat field map. The id field is
// assigned by the producer before first save and is immutable afterwards.
type Fields map[string]any

// ID returns the record's id field, or "" if unset.
func (f Fields) ID() string {
	id, _ := f["id"].(string)
	return id
}

// Clone returns a shallow copy of the field map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge lays the incoming fields over the existing ones, field by field.
// Unspecified fields are preserved. This is the upsert contract both
// adapters implement: a save with a partial record never clobbers fields
// the caller didn't include.
func (f Fields) Merge(in Fields) Fields {
	out := f.Clone()
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Encode converts a typed record into its field-map form via its JSON tags.
func Encode(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return f, nil
}

// Decode converts a field map back into a typed record via its JSON tags.
func Decode(f Fields, v any) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
