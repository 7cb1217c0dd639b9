package oauth

import (
	"testing"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	encoded := EncodeState(State{ReturnTo: "/dashboard", UserID: 42})

	decoded, err := DecodeState(encoded)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", decoded.ReturnTo)
	assert.Equal(t, int64(42), decoded.UserID)
}

func TestState_EmptyIsZero(t *testing.T) {
	decoded, err := DecodeState("")
	require.NoError(t, err)
	assert.Zero(t, decoded)
}

func TestState_MalformedBase64(t *testing.T) {
	_, err := DecodeState("%%%")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestState_MalformedJSON(t *testing.T) {
	_, err := DecodeState("bm90LWpzb24")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
