// Package identity derives stable record ids for chunks.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// Namespace is the fixed UUIDv5 namespace for chunk ids.
var Namespace = uuid.NameSpaceURL

// Derive returns the UUIDv5 of "{sourceID}: {position}" in Namespace.
// Equal inputs always yield equal ids, so re-ingesting a source overwrites its records.
func Derive(sourceID string, position int) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(Name(sourceID, position)))
}

// DeriveString is Derive formatted in canonical hyphenated form.
func DeriveString(sourceID string, position int) string {
	return Derive(sourceID, position).String()
}

// DeriveAll returns ids for positions 0..n-1 of a source.
func DeriveAll(sourceID string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = DeriveString(sourceID, i)
	}
	return ids
}

// Name is the UUIDv5 name hashed for a chunk.
func Name(sourceID string, position int) string {
	return fmt.Sprintf("%s: %d", sourceID, position)
}
