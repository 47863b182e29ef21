package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswords_HashAndCheck(t *testing.T) {
	p := NewPasswords(bcrypt.MinCost)

	hash, err := p.Hash("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, p.Check(hash, "pw123456"))
	assert.False(t, p.Check(hash, "wrong1234"))
}

func TestPasswords_CostOutOfRangeFallsBack(t *testing.T) {
	p := NewPasswords(0)
	assert.Equal(t, DefaultBcryptCost, p.cost)
}

func TestPasswords_CheckMissingAlwaysFalse(t *testing.T) {
	p := NewPasswords(bcrypt.MinCost)
	assert.False(t, p.CheckMissing("pw123456"))
	assert.False(t, p.CheckMissing(""))
}

func TestPasswords_DummyHashMatchesCost(t *testing.T) {
	p := NewPasswords(bcrypt.MinCost + 1)

	cost, err := bcrypt.Cost(p.dummy)
	require.NoError(t, err, "dummy hash is ready before the first unknown-user login")
	assert.Equal(t, bcrypt.MinCost+1, cost)
}
