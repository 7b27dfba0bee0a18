package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// fingerprint hashes a canonical JSON encoding of v and returns a
// 16-character hex prefix, used to decide plan staleness (spec.md §4.A,
// §4.E) and as the round-trip identity check for Batch/Plan determinism.
// json.Marshal on a struct with stable field order already produces a
// canonical encoding in Go (unlike Python dict ordering, which the source
// had to sort explicitly), so no separate canonicalization pass is needed
// beyond sorting any map-typed fields the caller passes in.
func fingerprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Fingerprint inputs are always domain value objects built from
		// validated primitives; Marshal cannot fail on them.
		panic("domain: fingerprint: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:16]
}

// sortedFingerprints returns the fingerprints of specs sorted lexically, the
// input to a Batch's own fingerprint (order-independent over spec identity).
func sortedFingerprints[T Spec](specs []T) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Fingerprint()
	}
	sort.Strings(out)
	return out
}
