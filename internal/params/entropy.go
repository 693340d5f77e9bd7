package params

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Entropy is the only source of randomness the resolver uses
type Entropy interface {
	// Token returns a URL-safe random string of exactly n characters
	Token(n int) (string, error)

	// IntRange returns a uniform integer in [min, max]
	IntRange(min, max int) (int, error)
}

// CryptoEntropy returns an Entropy backed by crypto/rand
func CryptoEntropy() Entropy {
	return cryptoEntropy{}
}

type cryptoEntropy struct{}

func (cryptoEntropy) Token(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", n)
	}
	// 3 bytes encode to 4 characters
	buf := make([]byte, (n*3)/4+3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}

func (cryptoEntropy) IntRange(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		return 0, fmt.Errorf("failed to draw random number: %w", err)
	}
	return min + int(n.Int64()), nil
}
