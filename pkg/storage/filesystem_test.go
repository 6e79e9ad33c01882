package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reportes")
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	rel, err := store.Save("../reporte.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "reporte.csv", rel)

	data, err := os.ReadFile(store.Path(rel))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}
