package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodeGenerator_Format(t *testing.T) {
	g := NewRandomCodeGenerator()
	pattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := g.NewCouponCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	// 36^8 codes; 200 draws colliding would point at a broken source.
	assert.Greater(t, len(seen), 195)
}
