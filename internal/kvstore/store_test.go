package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Ratio float64 `json:"ratio"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	return map[string]Store{
		"file":   fileStore,
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			in := record{Name: "global", Count: 3, Ratio: 0.5}
			require.NoError(t, store.Set("widget:global", in))

			var out record
			require.NoError(t, store.Get("widget:global", &out))
			require.Equal(t, in, out)
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var out record
			err := store.Get("widget:7", &out)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set("k", record{Name: "first"}))
			require.NoError(t, store.Set("k", record{Name: "second"}))

			var out record
			require.NoError(t, store.Get("k", &out))
			require.Equal(t, "second", out.Name)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set("k", record{Name: "v"}))
			require.NoError(t, store.Delete("k"))

			var out record
			require.ErrorIs(t, store.Get("k", &out), ErrNotFound)

			// Deleting an absent key is not an error.
			require.NoError(t, store.Delete("k"))
		})
	}
}

func TestFileStoreKeyNamespaces(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("widget:3", record{Name: "three"}))
	require.NoError(t, store.Set("widget:global", record{Name: "global"}))

	var out record
	require.NoError(t, store.Get("widget:3", &out))
	require.Equal(t, "three", out.Name)

	require.NoError(t, store.Get("widget:global", &out))
	require.Equal(t, "global", out.Name)
}
