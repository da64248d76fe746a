package refs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_CreateAndGetBranch(t *testing.T) {
	s := New(t.TempDir())
	h := mustHash(t, 0x55)

	require.NoError(t, s.CreateBranch("main", h))
	require.True(t, s.BranchExists("main"))

	got, err := s.GetBranch("main")
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestStore_CreateBranchAlreadyExists(t *testing.T) {
	s := New(t.TempDir())
	h := mustHash(t, 0x55)
	require.NoError(t, s.CreateBranch("main", h))

	err := s.CreateBranch("main", h)
	require.ErrorIs(t, err, ErrBranchExists)
}

func TestStore_CreateBranchInvalidName(t *testing.T) {
	s := New(t.TempDir())
	err := s.CreateBranch("HEAD", mustHash(t, 0x01))
	require.ErrorIs(t, err, ErrNameReserved)
}

func TestStore_GetBranchNotFound(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.GetBranch("ghost")
	require.ErrorIs(t, err, ErrBranchNotFound)
}

func TestStore_UpdateBranch(t *testing.T) {
	s := New(t.TempDir())
	h1 := mustHash(t, 0x01)
	h2 := mustHash(t, 0x02)

	require.NoError(t, s.CreateBranch("main", h1))
	require.NoError(t, s.UpdateBranch("main", h2))

	got, err := s.GetBranch("main")
	require.NoError(t, err)
	require.Equal(t, h2, got)
}

func TestStore_UpdateBranchNotFound(t *testing.T) {
	s := New(t.TempDir())
	err := s.UpdateBranch("ghost", mustHash(t, 0x01))
	require.ErrorIs(t, err, ErrBranchNotFound)
}

func TestStore_DeleteBranch(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.CreateBranch("main", mustHash(t, 0x01)))
	require.NoError(t, s.DeleteBranch("main"))
	require.False(t, s.BranchExists("main"))
}

func TestStore_ListBranches(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.CreateBranch("main", mustHash(t, 0x01)))
	require.NoError(t, s.CreateBranch("feature/add-login", mustHash(t, 0x02)))

	names, err := s.ListBranches()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"main", "feature/add-login"}, names)
}

func TestStore_CreateBranchPathConflict(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.CreateBranch("foo", mustHash(t, 0x01)))

	err := s.CreateBranch("foo/bar", mustHash(t, 0x02))
	require.ErrorIs(t, err, ErrBranchPathConflict)
}

func TestStore_CreateBranchPathConflictReverse(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.CreateBranch("foo/bar", mustHash(t, 0x01)))

	err := s.CreateBranch("foo", mustHash(t, 0x02))
	require.ErrorIs(t, err, ErrBranchPathConflict)
}

func TestStore_HeadAttachedToBranchFollowsUpdates(t *testing.T) {
	s := New(t.TempDir())
	h1 := mustHash(t, 0x01)
	h2 := mustHash(t, 0x02)

	require.NoError(t, s.CreateBranch("main", h1))
	require.NoError(t, s.SetHead("refs/heads/main"))

	got, err := s.Resolve("HEAD")
	require.NoError(t, err)
	require.Equal(t, h1, got)

	require.NoError(t, s.UpdateBranch("main", h2))
	got, err = s.Resolve("HEAD")
	require.NoError(t, err)
	require.Equal(t, h2, got, "attached HEAD must follow branch updates")
}
