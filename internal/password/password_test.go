package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.True(t, Verify("correct horse battery staple", hash))
	assert.False(t, Verify("wrong password", hash))
}

func TestHashIsSalted(t *testing.T) {
	h1, err := Hash("same password")
	require.NoError(t, err)
	h2, err := Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, Verify("same password", h1))
	assert.True(t, Verify("same password", h2))
}

func TestVerifyMalformedStored(t *testing.T) {
	assert.False(t, Verify("anything", "not base64!!"))
	assert.False(t, Verify("anything", "c2hvcnQ=")) // valid base64, too short
	assert.False(t, Verify("anything", ""))
}
