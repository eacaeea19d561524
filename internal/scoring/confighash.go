package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/lerianstudio/memory-retrieval/internal/types"
)

// ConfigHash fingerprints cfg so the context cache can invalidate itself when
// scoring weights or decay parameters change between deployments.
func ConfigHash(cfg types.ScoringConfig) string {
	raw, _ := json.Marshal(cfg) // ScoringConfig is all scalars/slices/maps; never errors
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
