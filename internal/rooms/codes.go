package rooms

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// Alphabet excludes ambiguous characters: 0, O, 1, I, L
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 4

// GenerateCode returns a random room code. Uniqueness is the caller's job.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// NewKey returns a master key for a fresh room.
func NewKey() string {
	return uuid.NewString()
}
