package treebuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"snapstore/pkg/types"
)

func putFileTree(t *testing.T, store interface {
	PutBlob([]byte) (types.Hash, error)
	PutTree([]types.TreeEntry) (types.Hash, error)
}, files map[string]string) types.Hash {
	t.Helper()
	var entries []types.TreeEntry
	for name, content := range files {
		h, err := store.PutBlob([]byte(content))
		require.NoError(t, err)
		entries = append(entries, types.TreeEntry{Name: name, Mode: 0o100644, Kind: types.EntryBlob, Hash: h, Size: uint64(len(content))})
	}
	h, err := store.PutTree(entries)
	require.NoError(t, err)
	return h
}

func TestDiff_NoParentMarksEverythingAdded(t *testing.T) {
	store := newTestStore(t)
	newTree := putFileTree(t, store, map[string]string{"a.txt": "hello"})

	d, err := Compare(store, types.Hash{}, newTree)
	require.NoError(t, err)
	require.Equal(t, 1, d.AddedCount)
	require.Equal(t, 0, d.DeletedCount)
	require.Equal(t, int64(5), d.NetSizeDelta)
}

func TestDiff_ModifiedFile(t *testing.T) {
	store := newTestStore(t)
	oldTree := putFileTree(t, store, map[string]string{"a.txt": "hello"})
	newTree := putFileTree(t, store, map[string]string{"a.txt": "hello world"})

	d, err := Compare(store, oldTree, newTree)
	require.NoError(t, err)
	require.Equal(t, 1, d.ModifiedCount)
	require.Equal(t, int64(6), d.NetSizeDelta)
}

func TestDiff_DeletedFile(t *testing.T) {
	store := newTestStore(t)
	oldTree := putFileTree(t, store, map[string]string{"a.txt": "hello"})
	newTree := putFileTree(t, store, map[string]string{})

	d, err := Compare(store, oldTree, newTree)
	require.NoError(t, err)
	require.Equal(t, 1, d.DeletedCount)
	require.Equal(t, int64(-5), d.NetSizeDelta)
}

func TestDiff_RenameDetection(t *testing.T) {
	store := newTestStore(t)
	oldTree := putFileTree(t, store, map[string]string{"old.txt": "same content"})
	newTree := putFileTree(t, store, map[string]string{"new.txt": "same content"})

	d, err := Compare(store, oldTree, newTree)
	require.NoError(t, err)
	require.Equal(t, 1, d.RenamedCount)
	require.Equal(t, 0, d.AddedCount)
	require.Equal(t, 0, d.DeletedCount)
	require.Len(t, d.Changes, 1)
	require.Equal(t, "old.txt", d.Changes[0].From)
	require.Equal(t, "new.txt", d.Changes[0].Path)
}

func TestDiff_RenameDoesNotConsumeUnrelatedAdd(t *testing.T) {
	store := newTestStore(t)
	oldTree := putFileTree(t, store, map[string]string{"old.txt": "shared"})
	newTree := putFileTree(t, store, map[string]string{
		"new.txt":   "shared",
		"other.txt": "brand new",
	})

	d, err := Compare(store, oldTree, newTree)
	require.NoError(t, err)
	require.Equal(t, 1, d.RenamedCount)
	require.Equal(t, 1, d.AddedCount)
	require.Equal(t, 0, d.DeletedCount)
}

func TestDiff_ModifyThenRenameIsNotMistakenAsRename(t *testing.T) {
	store := newTestStore(t)
	oldTree := putFileTree(t, store, map[string]string{"old.txt": "v1"})
	// Renamed AND modified: content differs, so no shared hash exists and
	// this must surface as delete+add, not a rename.
	newTree := putFileTree(t, store, map[string]string{"new.txt": "v2"})

	d, err := Compare(store, oldTree, newTree)
	require.NoError(t, err)
	require.Equal(t, 0, d.RenamedCount)
	require.Equal(t, 1, d.AddedCount)
	require.Equal(t, 1, d.DeletedCount)
}

func TestDiff_IdenticalTreesProduceNoChanges(t *testing.T) {
	store := newTestStore(t)
	tree := putFileTree(t, store, map[string]string{"a.txt": "same"})

	d, err := Compare(store, tree, tree)
	require.NoError(t, err)
	require.Empty(t, d.Changes)
}
