package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSizeDelete(t *testing.T) {
	t.Parallel()

	s := NewObjectStore()
	ctx := context.Background()

	var reported int64
	require.NoError(t, s.Put(ctx, "a.jpeg", []byte("abc"), func(n int64) { reported += n }))
	assert.Equal(t, int64(3), reported)

	size, err := s.Size(ctx, "a.jpeg")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	require.NoError(t, s.Delete(ctx, "a.jpeg"))
	_, err = s.Size(ctx, "a.jpeg")
	require.Error(t, err)
}

func TestFailWith(t *testing.T) {
	t.Parallel()

	s := NewObjectStore()
	boom := errors.New("bucket unavailable")
	s.FailWith(boom)

	err := s.Put(context.Background(), "a.jpeg", []byte("abc"), nil)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, s.Len())

	s.FailWith(nil)
	require.NoError(t, s.Put(context.Background(), "a.jpeg", []byte("abc"), nil))
	assert.Equal(t, 1, s.Len())
}
