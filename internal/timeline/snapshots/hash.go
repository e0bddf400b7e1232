package snapshots

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
)

// Hash returns the first 10 hex characters of the SHA-1 of v's JSON form.
// Values that fail to marshal hash as JSON null.
func Hash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b = []byte("null")
	}
	sum := sha1.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])[:10]
}
