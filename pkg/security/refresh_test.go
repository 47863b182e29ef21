package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRefreshToken(t *testing.T) {
	tok, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.Len(t, tok, 64)
	assert.Empty(t, strings.Trim(tok, "0123456789abcdef"), "token should be lowercase hex")

	other, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")

	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
}
