// Package referralcode generates shareable referral codes.
package referralcode

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// Prefix distinguishes Cash Points codes from arbitrary tokens.
const Prefix = "CP"

// Generate creates a random referral code of the form "CP" + 10 hex chars.
// Uniqueness is enforced by the store's unique index; callers retry on
// collision.
func Generate() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + strings.ToUpper(hex.EncodeToString(b)), nil
}
