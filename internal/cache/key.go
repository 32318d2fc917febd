// Package cache provides the per-project response caches: an exact-match
// keyed SQLite cache and a semantic-similarity cache over query embeddings.
package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// EvidenceFingerprints returns the ordered SHA-1 hashes of "source|text" for
// each evidence chunk. A change in retrieved text invalidates cached answers
// built on it.
func EvidenceFingerprints(hits []*store.Hit) []string {
	fps := make([]string, 0, len(hits))
	for _, h := range hits {
		sum := sha1.Sum([]byte(h.Source + "|" + h.Text))
		fps = append(fps, hex.EncodeToString(sum[:]))
	}
	return fps
}

// MakeKey computes the exact-cache key: SHA-256 over the request payload
// serialized with sorted keys.
func MakeKey(model string, messages []llm.Message, extra map[string]any, evidenceFingerprints []string) string {
	// Maps marshal with sorted keys, making the serialization canonical.
	payload := map[string]any{
		"model":    model,
		"messages": messages,
		"extra":    extra,
		"evidence": evidenceFingerprints,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Only unmarshalable extras can get here; hash the model alone
		// rather than failing the request.
		data = []byte(model)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
