// Package internal holds unexported machinery shared by the authgate root
// package. Nothing here is part of the public surface.
package internal

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	verificationCodeMin = 10000
	verificationCodeMax = 99999
)

// NewVerificationCode draws a fixed-width numeric code from the range
// 10000 to 99999 inclusive using the platform CSPRNG.
func NewVerificationCode() (string, error) {
	span := big.NewInt(verificationCodeMax - verificationCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(verificationCodeMin+n.Int64(), 10), nil
}
