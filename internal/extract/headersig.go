package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/local/scansort/internal/textnorm"
)

// HeaderSignature fingerprints the top of a page: the first 20 non-empty
// lines joined with single spaces, normalized, hashed with SHA-256, first 8
// hex digits. Stable against case and whitespace jitter between scans of the
// same letterhead.
func HeaderSignature(text string) string {
	joined := strings.Join(FirstNonEmptyLines(text, 20), " ")
	sum := sha256.Sum256([]byte(textnorm.Normalize(joined)))
	return hex.EncodeToString(sum[:])[:8]
}
