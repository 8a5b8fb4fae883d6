package domain

import (
	"crypto/rand"
	"fmt"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CanvasIDLen is the length of a generated canvas token. The token is the only
// handle on a drawing (share URLs are unauthenticated), so it is drawn from
// crypto/rand.
const CanvasIDLen = 21

// NewCanvasID generates an opaque URL-safe canvas token.
func NewCanvasID() (string, error) {
	b := make([]byte, CanvasIDLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("canvas id: %w", err)
	}
	for i := range b {
		b[i] = idAlphabet[int(b[i])%len(idAlphabet)]
	}
	return string(b), nil
}

// ValidCanvasID reports whether id looks like a token this service issued.
func ValidCanvasID(id string) bool {
	if len(id) < 20 || len(id) > 21 {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !ok {
			return false
		}
	}
	return true
}
