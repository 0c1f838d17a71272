package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	couponAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponCodeLength = 8
)

// RandomCodeGenerator implements ports.CodeGenerator with crypto/rand.
type RandomCodeGenerator struct{}

// NewRandomCodeGenerator creates a coupon code generator.
func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

// NewCouponCode returns 8 uppercase alphanumeric characters.
func (g *RandomCodeGenerator) NewCouponCode() (string, error) {
	base := big.NewInt(int64(len(couponAlphabet)))
	buf := make([]byte, couponCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generating coupon code: %w", err)
		}
		buf[i] = couponAlphabet[n.Int64()]
	}
	return string(buf), nil
}
