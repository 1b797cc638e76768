package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// InvitationTokenBytes is the entropy budget for invitation and email
// verification tokens. 32 bytes keeps tokens unguessable while the base64url
// encoding keeps them safe to embed in links.
const InvitationTokenBytes = 32

// GenerateToken returns a URL-safe random token carrying n bytes of entropy.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
