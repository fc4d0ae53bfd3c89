package event

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the lowercase hex MD5 digest of the event's JSON
// encoding. Equal events (including Total) always produce equal fingerprints.
// Events holding NaN or infinite amounts have no JSON encoding and return an
// error.
func Fingerprint(e Event) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode event %d for fingerprint: %w", e.Index, err)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
