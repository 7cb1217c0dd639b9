package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Sw0rdfish")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("Sw0rdfish", hash))
	assert.False(t, VerifyPassword("sw0rdfish", hash))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPassword_UniqueSalt(t *testing.T) {
	h1, err := HashPassword("Sw0rdfish")
	require.NoError(t, err)
	h2, err := HashPassword("Sw0rdfish")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("anything", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("anything", ""))
}

func TestVerifyPassword_TruncationBoundary(t *testing.T) {
	p80 := strings.Repeat("a", 80)
	p72 := strings.Repeat("a", 72)
	p71 := strings.Repeat("a", 71)

	h80, err := HashPassword(p80)
	require.NoError(t, err)
	h72, err := HashPassword(p72)
	require.NoError(t, err)

	// 72-byte prefixes are equal, so either password verifies either hash.
	assert.True(t, VerifyPassword(p72, h80))
	assert.True(t, VerifyPassword(p80, h72))

	assert.False(t, VerifyPassword(p71, h80))
}

func TestTruncatePassword_UTF8Boundary(t *testing.T) {
	// 70 ASCII bytes followed by a 3-byte rune: the rune straddles the
	// 72-byte cut and must be dropped entirely.
	p := strings.Repeat("a", 70) + "€€"

	got := truncatePassword(p)
	assert.Equal(t, []byte(strings.Repeat("a", 70)), got)
}

func TestTruncatePassword_LongUnicode(t *testing.T) {
	p := strings.Repeat("€", 40) // 120 bytes

	hash, err := HashPassword(p)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(p, hash))
}
