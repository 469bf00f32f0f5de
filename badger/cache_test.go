package badger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeguard/mergeguard/badger"
)

func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := badger.Open(t.TempDir())
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get("content:deadbeef")
	assert.False(t, ok)

	require.NoError(t, cache.Set("content:deadbeef", []byte("def f(): pass")))

	got, ok := cache.Get("content:deadbeef")
	require.True(t, ok)
	assert.Equal(t, []byte("def f(): pass"), got)
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cache, err := badger.Open(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Set("symbols:cafe", []byte(`{"path":"a.py"}`)))
	require.NoError(t, cache.Close())

	reopened, err := badger.Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get("symbols:cafe")
	require.True(t, ok)
	assert.JSONEq(t, `{"path":"a.py"}`, string(got))
}
