package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-festival", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-festival", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-festival"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("not-a-hash", "s3cret-festival"))
}
