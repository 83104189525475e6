package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

func TestFileStore_LayoutOnDisk(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.SaveLog(ctx, sampleLog("exec-1")))
	require.NoError(t, fs.SaveSeal(ctx, sampleSeal("exec-1")))
	require.NoError(t, fs.SaveBinding(ctx, sampleBinding("bind-1", "exec-1")))

	for _, p := range []string{
		filepath.Join(dir, "logs", "exec-1.json"),
		filepath.Join(dir, "seals", "exec-1.json"),
		filepath.Join(dir, "bindings", "bind-1.json"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestFileStore_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.SaveLog(ctx, sampleLog("exec-1")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "README"), []byte("x"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs", "sub"), 0o700))

	ids, err := fs.ListExecutionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exec-1"}, ids)
}

func TestFileStore_NoTempFileResidue(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.SaveLog(context.Background(), sampleLog("exec-1")))

	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "exec-1.json", entries[0].Name())
}

func TestFileStore_CorruptFileIsStorageError(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "seals", "exec-1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = fs.LoadSeal(context.Background(), "exec-1")
	var serr *contracts.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "decode", serr.Op)
}
