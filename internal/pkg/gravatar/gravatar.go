package gravatar

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// URL derives a deterministic avatar URL from an email address following the
// Gravatar convention: md5 of the trimmed, lowercased address, 200px,
// PG-rated, with the "mystery man" fallback image.
func URL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=200&r=pg&d=mm"
}
