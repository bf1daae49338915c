package utils

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

var newUUIDv7 = uuid.NewV7

// GenerateUUIDv7 generates a new UUID v7
func GenerateUUIDv7() uuid.UUID {
	id, err := newUUIDv7()
	if err != nil {
		// Fallback to v4 if v7 fails (highly unlikely)
		return uuid.New()
	}
	return id
}

// CompareUUID orders ids by their canonical byte representation, which is the
// same order as their lowercase string form.
func CompareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// SortedUniqueUUIDs returns a sorted copy of ids with duplicates removed
func SortedUniqueUUIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, CompareUUID)
	return slices.Compact(out)
}
