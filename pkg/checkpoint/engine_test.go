package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"snapstore/pkg/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.BasePath = t.TempDir()
	cfg.Author = "test-author"
	return NewEngine(cfg, Branching, nil)
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestEngine_CreateCheckoutRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()
	writeProjectFile(t, project, "a.txt", "hello")
	writeProjectFile(t, project, "sub/b.txt", "world")

	h, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)
	require.False(t, h.IsZero())

	require.NoError(t, os.RemoveAll(project))
	require.NoError(t, os.MkdirAll(project, 0o755))

	require.NoError(t, e.Checkout(project, "", DefaultCheckoutOptions()))

	content, err := os.ReadFile(filepath.Join(project, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))

	content, err = os.ReadFile(filepath.Join(project, "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "world", string(content))
}

func TestEngine_HistoryOrdersNewestFirst(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()

	writeProjectFile(t, project, "a.txt", "v1")
	h1, err := e.CreateCheckpoint(project, "v1", "")
	require.NoError(t, err)

	writeProjectFile(t, project, "a.txt", "v2")
	h2, err := e.CreateCheckpoint(project, "v2", "")
	require.NoError(t, err)

	history, err := e.GetHistory(project, "")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, h2, history[0].Hash)
	require.Equal(t, h1, history[1].Hash)
	require.Empty(t, history[1].Commit.Parents)
	require.Equal(t, h1, history[0].Commit.Parents[0])
}

func TestEngine_ListFilesAndGetFileContent(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()
	writeProjectFile(t, project, "a.txt", "hello")
	writeProjectFile(t, project, "dir/b.txt", "world")

	_, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	files, err := e.ListFiles(project, "")
	require.NoError(t, err)
	require.Len(t, files, 3) // a.txt, dir, dir/b.txt

	content, err := e.GetFileContent(project, "", "dir/b.txt")
	require.NoError(t, err)
	require.Equal(t, "world", string(content))

	_, err = e.GetFileContent(project, "", "missing.txt")
	require.Error(t, err)
	require.True(t, isNotFound(err))
}

func TestEngine_GetCheckpointChangesDetectsModifyAndAdd(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()

	writeProjectFile(t, project, "a.txt", "v1")
	_, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	writeProjectFile(t, project, "a.txt", "v2")
	writeProjectFile(t, project, "b.txt", "new")
	h2, err := e.CreateCheckpoint(project, "second", "")
	require.NoError(t, err)

	changes, err := e.GetCheckpointChanges(project, h2.String())
	require.NoError(t, err)
	require.False(t, changes.IsMerge)
	require.Equal(t, 1, changes.Diff.ModifiedCount)
	require.Equal(t, 1, changes.Diff.AddedCount)
}

func TestEngine_DeleteLatestCheckpointRequiresAtLeastTwoCommits(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()
	writeProjectFile(t, project, "a.txt", "v1")
	h1, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	err = e.DeleteLatestCheckpoint(project, h1)
	require.Error(t, err)
}

func TestEngine_DeleteLatestCheckpointRestoresParent(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()

	writeProjectFile(t, project, "a.txt", "v1")
	_, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	writeProjectFile(t, project, "a.txt", "v2")
	h2, err := e.CreateCheckpoint(project, "second", "")
	require.NoError(t, err)

	require.NoError(t, e.DeleteLatestCheckpoint(project, h2))

	content, err := os.ReadFile(filepath.Join(project, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(content))

	history, err := e.GetHistory(project, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestEngine_ResetToCheckpointTruncatesHistory(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()

	writeProjectFile(t, project, "a.txt", "v1")
	h1, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	writeProjectFile(t, project, "a.txt", "v2")
	_, err = e.CreateCheckpoint(project, "second", "")
	require.NoError(t, err)

	writeProjectFile(t, project, "a.txt", "v3")
	_, err = e.CreateCheckpoint(project, "third", "")
	require.NoError(t, err)

	require.NoError(t, e.ResetToCheckpoint(project, h1))

	content, err := os.ReadFile(filepath.Join(project, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "v1", string(content))

	history, err := e.GetHistory(project, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, h1, history[0].Hash)
}

func TestEngine_GarbageCollectIsIdempotentAndRetainsReachable(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()

	writeProjectFile(t, project, "a.txt", "v1")
	_, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	require.NoError(t, e.GarbageCollect(project))
	require.NoError(t, e.GarbageCollect(project))

	history, err := e.GetHistory(project, "")
	require.NoError(t, err)
	require.Len(t, history, 1)

	content, err := e.GetFileContent(project, "", "a.txt")
	require.NoError(t, err)
	require.Equal(t, "v1", string(content))
}

func TestEngine_BranchCreateListDelete(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()

	writeProjectFile(t, project, "a.txt", "v1")
	_, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	branches, err := e.ListBranches(project)
	require.NoError(t, err)
	require.Contains(t, branches, "main")

	dir, err := e.projectDir(project)
	require.NoError(t, err)
	_, refStore, err := e.open(dir)
	require.NoError(t, err)
	head, err := refStore.Resolve("HEAD")
	require.NoError(t, err)
	require.NoError(t, refStore.CreateBranch("feature", head))

	require.NoError(t, e.DeleteBranch(project, "feature"))
	branches, err = e.ListBranches(project)
	require.NoError(t, err)
	require.NotContains(t, branches, "feature")

	require.Error(t, e.DeleteBranch(project, "does-not-exist"))
}

func TestEngine_LinearModeRejectsBranchOperations(t *testing.T) {
	cfg := config.Default()
	cfg.BasePath = t.TempDir()
	e := NewEngine(cfg, Linear, nil)
	project := t.TempDir()

	_, err := e.ListBranches(project)
	require.Error(t, err)
}

func TestEngine_StatsReflectsObjectCounts(t *testing.T) {
	e := newTestEngine(t)
	project := t.TempDir()
	writeProjectFile(t, project, "a.txt", "v1")
	_, err := e.CreateCheckpoint(project, "first", "")
	require.NoError(t, err)

	stats, err := e.Stats(project)
	require.NoError(t, err)
	require.Equal(t, 1, stats.BlobCount)
	require.Equal(t, 1, stats.CommitCount)
}
