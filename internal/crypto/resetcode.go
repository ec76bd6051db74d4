package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// ResetCodeLength is the number of digits in a password reset code.
const ResetCodeLength = 6

// GenerateResetCode creates a cryptographically random numeric one-time code
// for password resets. Codes are short-lived and single-use; the store is
// responsible for both properties.
func GenerateResetCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < ResetCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generating reset code: %w", err)
	}

	return fmt.Sprintf("%0*d", ResetCodeLength, n), nil
}
