package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(joinCodeChars, r), "unexpected character %q", r)
		}
		seen[code] = true
	}
	// 100 draws from a 32^8 space colliding would indicate a broken RNG.
	assert.Greater(t, len(seen), 95)
}
