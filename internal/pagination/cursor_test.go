package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

	encoded := EncodeCursor("doc-42", ts)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, "doc-42", decoded.LastID)
	assert.True(t, ts.Equal(decoded.Timestamp))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty cursor means first page", func(t *testing.T) {
		decoded, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, decoded)
	})

	t.Run("not base64", func(t *testing.T) {
		_, err := DecodeCursor("!!!not-base64!!!")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("missing separator", func(t *testing.T) {
		raw := base64.StdEncoding.EncodeToString([]byte("no-separator-here"))
		_, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		raw := base64.StdEncoding.EncodeToString([]byte("id|not-a-time"))
		_, err := DecodeCursor(raw)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}
