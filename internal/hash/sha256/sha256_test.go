package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", got)

	same, err := h.Hash([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, got, same)

	other, err := h.Hash([]byte("hello!"))
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc123.jpeg", CanonicalName("abc123"))
	assert.Equal(t, "abc123_2024-03-06T16:59:15.865+00:00.jpeg",
		DuplicateName("abc123", "2024-03-06T16:59:15.865+00:00"))
}
