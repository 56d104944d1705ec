package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// OTPLength is the number of digits in a one-time passcode
const OTPLength = 6

// generateOTP returns a cryptographically random numeric code. Leading zeros
// are kept.
func generateOTP(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		sb.WriteByte(byte('0' + n.Int64()))
	}
	return sb.String(), nil
}
