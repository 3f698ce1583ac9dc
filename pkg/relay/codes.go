package relay

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeSpace = 1000000

// CodeSource draws candidate pairing codes. Candidates may collide, the broker retries until it
// finds one that is not pending.
type CodeSource interface {
	Next() (string, error)
}

type randomCodeSource struct{}

func (randomCodeSource) Next() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("failed to draw pairing code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewRandomCodeSource creates a CodeSource drawing uniformly random 6-digit codes
func NewRandomCodeSource() CodeSource {
	return randomCodeSource{}
}

// IsValidCode checks if the string has the shape of a pairing code
func IsValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
