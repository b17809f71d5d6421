// Package token produces unpredictable, collision-resistant access token
// strings from a cryptographically secure entropy source.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Byte sizes before base64url encoding.
const (
	// SizeDefault provides 192 bits of entropy (32 chars base64url), keeping the
	// encoded token within the 36-character column limit.
	SizeDefault = 24
	// Size128 provides 128 bits of entropy (22 chars base64url).
	Size128 = 16
)

// MaxEncodedLength is the upper bound the store enforces on token strings.
const MaxEncodedLength = 36

// Generate returns a cryptographically secure random token of the given byte
// length, encoded as base64url without padding. The generator holds no state
// between calls.
func Generate(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read entropy source: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
