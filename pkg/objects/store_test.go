package objects

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"snapstore/pkg/types"
)

// TestProperty_PutBlobIsPureFunctionOfContent exercises P1: the hash
// produced by PutBlob is a pure function of the content, and storing the
// same content twice is a no-op beyond the existence check.
func TestProperty_PutBlobIsPureFunctionOfContent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dir := t.TempDir()
		store, err := New(dir, 0)
		require.NoError(t, err)

		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")

		h1, err := store.PutBlob(data)
		require.NoError(t, err)
		h2, err := store.PutBlob(data)
		require.NoError(t, err)
		require.Equal(t, h1, h2)

		got, err := store.Get(h1)
		require.NoError(t, err)
		require.Equal(t, data, got.Blob)
	})
}

func TestStore_PutGetBlob(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	h, err := store.PutBlob([]byte("hello"))
	require.NoError(t, err)
	require.True(t, store.Has(h))

	obj, err := store.Get(h)
	require.NoError(t, err)
	require.Equal(t, types.KindBlob, obj.Kind)
	require.Equal(t, []byte("hello"), obj.Blob)
}

func TestStore_GetNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	_, err = store.Get(types.Hash{0xab})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutTreeSortsEntries(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	blobHash, err := store.PutBlob([]byte("x"))
	require.NoError(t, err)

	unsorted := []types.TreeEntry{
		{Name: "zeta", Mode: 0o100644, Kind: types.EntryBlob, Hash: blobHash, Size: 1},
		{Name: "alpha", Mode: 0o100644, Kind: types.EntryBlob, Hash: blobHash, Size: 1},
	}
	h1, err := store.PutTree(unsorted)
	require.NoError(t, err)

	sorted := []types.TreeEntry{unsorted[1], unsorted[0]}
	h2, err := store.PutTree(sorted)
	require.NoError(t, err)

	require.Equal(t, h1, h2, "tree hash must not depend on caller-provided entry order")

	obj, err := store.Get(h1)
	require.NoError(t, err)
	require.Equal(t, "alpha", obj.Tree[0].Name)
	require.Equal(t, "zeta", obj.Tree[1].Name)
}

func TestStore_DirectoryOrderingAppendsSlash(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	blobHash, _ := store.PutBlob([]byte("x"))
	subTree, _ := store.PutTree(nil)

	entries := []types.TreeEntry{
		{Name: "foo-bar", Mode: 0o100644, Kind: types.EntryBlob, Hash: blobHash},
		{Name: "foo", Mode: 0o040000, Kind: types.EntryTree, Hash: subTree},
	}
	h, err := store.PutTree(entries)
	require.NoError(t, err)

	obj, err := store.Get(h)
	require.NoError(t, err)
	// "foo" (as directory, sorted as "foo/") sorts after "foo-bar",
	// since '-' (0x2d) < '/' (0x2f).
	require.Equal(t, "foo-bar", obj.Tree[0].Name)
	require.Equal(t, "foo", obj.Tree[1].Name)
}

func TestStore_PutCommitRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	treeHash, err := store.PutTree(nil)
	require.NoError(t, err)

	c := types.Commit{
		Tree:      treeHash,
		Parents:   nil,
		Author:    "snapstore-user",
		Timestamp: "2026-07-30T00:00:00Z",
		Message:   "initial checkpoint",
	}
	h, err := store.PutCommit(c)
	require.NoError(t, err)

	obj, err := store.Get(h)
	require.NoError(t, err)
	require.Equal(t, types.KindCommit, obj.Kind)
	require.Equal(t, c, obj.Commit)
}

func TestStore_DeleteThenList(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	h, err := store.PutBlob([]byte("gone soon"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(h))
	require.False(t, store.Has(h))

	hashes, err := store.List()
	require.NoError(t, err)
	require.NotContains(t, hashes, h)
}

func TestStore_StatsCountsByKind(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	_, err = store.PutBlob([]byte("hello"))
	require.NoError(t, err)
	treeHash, err := store.PutTree(nil)
	require.NoError(t, err)
	_, err = store.PutCommit(types.Commit{Tree: treeHash, Author: "a", Timestamp: "t", Message: "m"})
	require.NoError(t, err)

	st, err := store.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, st.BlobCount)
	require.Equal(t, 1, st.TreeCount)
	require.Equal(t, 1, st.CommitCount)
	require.Greater(t, st.UncompressedBlobBytes, int64(0))
}

func TestStore_CorruptObjectGunzipFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0)
	require.NoError(t, err)

	h, err := store.PutBlob([]byte("hello"))
	require.NoError(t, err)

	// Overwrite the loose object with non-gzip bytes to simulate on-disk
	// corruption; Get must surface ErrCorruptObject, not panic or hang.
	require.NoError(t, os.WriteFile(store.objectPath(h), []byte("not gzip data"), 0o644))

	_, err = store.Get(h)
	var corrupt *ErrCorruptObject
	require.ErrorAs(t, err, &corrupt)
}
