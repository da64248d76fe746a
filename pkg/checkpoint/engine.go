// Package checkpoint implements the checkpoint engine (§4.5): the
// user-visible API composing the object store, reference store, and tree
// builder into create/checkout/history/diff/delete/reset/GC operations
// over a working directory.
package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"snapstore/pkg/config"
	"snapstore/pkg/logx"
	"snapstore/pkg/objects"
	"snapstore/pkg/refs"
	"snapstore/pkg/treebuild"
	"snapstore/pkg/types"
)

// Mode selects between the two HEAD-advancement strategies the source
// implementation exposes (§4.5 "two variants appear in the source").
type Mode int

const (
	// Branching mode: HEAD is symbolic, defaulting to refs/heads/main.
	// Subsumes linear mode, and is the default.
	Branching Mode = iota
	// Linear mode: HEAD is always detached, single-parent only.
	Linear
)

// warner is the subset of logx.Logger the engine's internal helpers
// need; logx.Logger satisfies it structurally.
type warner interface {
	Warnf(format string, args ...any)
}

// Engine is the checkpoint engine for zero or more project directories;
// one Engine instance may be reused across many projects, since all
// per-project state lives under cfg.BasePath.
type Engine struct {
	cfg  config.Config
	mode Mode
	log  logx.Logger
}

// NewEngine constructs an Engine. A nil log discards all warnings.
func NewEngine(cfg config.Config, mode Mode, log logx.Logger) *Engine {
	if log == nil {
		log = logx.Nop()
	}
	return &Engine{cfg: cfg, mode: mode, log: log}
}

// projectDir returns <base_path>/<16-hex prefix of SHA-256(abs path)>,
// per spec.md §4.5.
func (e *Engine) projectDir(projectPath string) (string, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	prefix := hex.EncodeToString(sum[:])[:16]
	return filepath.Join(e.cfg.BasePath, prefix), nil
}

// LockFilePath returns the path of the advisory lock file for
// projectPath's storage directory, for callers that want to upgrade
// from the engine's single-writer contract to OS-enforced mutual
// exclusion via pkg/lockfile (§5). The engine itself never opens this
// file; acquiring and releasing it is entirely up to the caller.
func (e *Engine) LockFilePath(projectPath string) (string, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lock"), nil
}

// open initializes (idempotently) a project's storage directories and
// returns its object store and reference store.
func (e *Engine) open(dir string) (*objects.Store, *refs.Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "refs", "backups"), 0o755); err != nil {
		return nil, nil, err
	}
	if e.mode == Branching {
		if err := os.MkdirAll(filepath.Join(dir, "refs", "heads"), 0o755); err != nil {
			return nil, nil, err
		}
	}
	objStore, err := objects.New(dir, e.cfg.CompressionLevel)
	if err != nil {
		return nil, nil, err
	}
	return objStore, refs.New(dir), nil
}

// CreateCheckpoint builds a tree from projectPath, commits it on top of
// the current HEAD (if any), and advances HEAD, per §4.5
// create_checkpoint.
func (e *Engine) CreateCheckpoint(projectPath, description, author string) (types.Hash, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return types.Hash{}, err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return types.Hash{}, err
	}

	builder := treebuild.New(objStore, e.cfg.IgnorePatterns, e.cfg.MaxFileSize, e.log)
	treeHash, err := builder.Build(projectPath)
	if err != nil {
		return types.Hash{}, err
	}

	var parents []types.Hash
	if h, err := refStore.Resolve("HEAD"); err == nil {
		parents = []types.Hash{h}
	} else if !errors.Is(err, refs.ErrNotFound) {
		return types.Hash{}, err
	}

	if author == "" {
		author = e.cfg.Author
	}
	if description == "" {
		description = "checkpoint"
	}

	c := types.Commit{
		Tree:      treeHash,
		Parents:   parents,
		Author:    author,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   description,
	}
	commitHash, err := objStore.PutCommit(c)
	if err != nil {
		return types.Hash{}, err
	}

	if err := e.advanceHead(refStore, commitHash); err != nil {
		return types.Hash{}, err
	}
	return commitHash, nil
}

// advanceHead implements §4.5 create_checkpoint step 6.
func (e *Engine) advanceHead(refStore *refs.Store, commitHash types.Hash) error {
	raw, err := refStore.ReadRaw("HEAD")
	switch {
	case err == nil && strings.HasPrefix(raw, "ref: "):
		return refStore.Update(strings.TrimPrefix(raw, "ref: "), commitHash)
	case err == nil:
		return refStore.SetHead(commitHash.String())
	case errors.Is(err, refs.ErrNotFound):
		if e.mode == Branching {
			if err := refStore.Update("refs/heads/main", commitHash); err != nil {
				return err
			}
			return refStore.SetHead("refs/heads/main")
		}
		return refStore.SetHead(commitHash.String())
	default:
		return err
	}
}

// PreviousHead returns the commit HEAD currently points to, or the zero
// hash if HEAD is unset. Intended for callers (see pkg/txn) that need to
// snapshot state before a mutation in order to compensate it on failure.
func (e *Engine) PreviousHead(projectPath string) (types.Hash, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return types.Hash{}, err
	}
	_, refStore, err := e.open(dir)
	if err != nil {
		return types.Hash{}, err
	}
	h, err := refStore.Resolve("HEAD")
	if err != nil {
		if errors.Is(err, refs.ErrNotFound) {
			return types.Hash{}, nil
		}
		return types.Hash{}, err
	}
	return h, nil
}

// RevertHead repoints HEAD (and the branch it tracks, if attached) back
// to previousHash without touching the working directory. A zero
// previousHash is a no-op, since there is nothing to revert to. Used by
// pkg/txn to compensate a failed mutating operation.
func (e *Engine) RevertHead(projectPath string, previousHash types.Hash) error {
	if previousHash.IsZero() {
		return nil
	}
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return err
	}
	_, refStore, err := e.open(dir)
	if err != nil {
		return err
	}
	return e.setHeadTo(refStore, previousHash)
}

// ResolveRef resolves ref (""/"HEAD", a branch name, a refs/-prefixed
// path, or a short/full hash) to a commit hash, for callers (e.g. the
// CLI) that need to turn a user-supplied ref into a hash before calling
// an operation that takes one directly (DeleteLatestCheckpoint,
// ResetToCheckpoint).
func (e *Engine) ResolveRef(projectPath, ref string) (types.Hash, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return types.Hash{}, err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return types.Hash{}, err
	}
	h, _, err := e.resolveRef(objStore, refStore, ref)
	return h, err
}

// setHeadTo repoints HEAD at hash: the branch it currently tracks if
// attached, or detached directly otherwise.
func (e *Engine) setHeadTo(refStore *refs.Store, hash types.Hash) error {
	raw, err := refStore.ReadRaw("HEAD")
	if err == nil && strings.HasPrefix(raw, "ref: ") {
		return refStore.Update(strings.TrimPrefix(raw, "ref: "), hash)
	}
	return refStore.SetHead(hash.String())
}

// resolveRef resolves ref (""/"HEAD", a refs/-prefixed path, a branch
// name, or a short/full hash) to a commit hash, plus the symbolic ref path
// it resolved through (empty if detached/hash).
func (e *Engine) resolveRef(objStore *objects.Store, refStore *refs.Store, ref string) (types.Hash, string, error) {
	switch {
	case ref == "" || ref == "HEAD":
		raw, err := refStore.ReadRaw("HEAD")
		if err != nil {
			if errors.Is(err, refs.ErrNotFound) {
				return types.Hash{}, "", newErr("resolve_ref", KindNotFound, err)
			}
			return types.Hash{}, "", err
		}
		if strings.HasPrefix(raw, "ref: ") {
			target := strings.TrimPrefix(raw, "ref: ")
			h, err := refStore.Resolve(target)
			if err != nil {
				return types.Hash{}, "", wrapRefErr("resolve_ref", err)
			}
			return h, target, nil
		}
		h, err := types.HashFromHex(raw)
		if err != nil {
			return types.Hash{}, "", newErr("resolve_ref", KindCorruptObject, err)
		}
		return h, "", nil

	case strings.HasPrefix(ref, "refs/"):
		h, err := refStore.Resolve(ref)
		if err != nil {
			return types.Hash{}, "", wrapRefErr("resolve_ref", err)
		}
		return h, ref, nil

	default:
		branchRef := "refs/heads/" + ref
		if h, err := refStore.Resolve(branchRef); err == nil {
			return h, branchRef, nil
		}
		if h, err := types.HashFromHex(ref); err == nil {
			if !objStore.Has(h) {
				return types.Hash{}, "", newErr("resolve_ref", KindNotFound, objects.ErrNotFound)
			}
			return h, "", nil
		}
		all, err := objStore.List()
		if err != nil {
			return types.Hash{}, "", err
		}
		h, err := refs.ResolveShortHash(ref, all)
		if err != nil {
			return types.Hash{}, "", wrapRefErr("resolve_ref", err)
		}
		return h, "", nil
	}
}

func wrapRefErr(op string, err error) error {
	var amb *refs.AmbiguousError
	if errors.As(err, &amb) {
		return newErr(op, KindAmbiguous, err)
	}
	if errors.Is(err, refs.ErrNotFound) {
		return newErr(op, KindNotFound, err)
	}
	return err
}

func isNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindNotFound
}

// CheckoutOptions mirrors §4.5 checkout's options.
type CheckoutOptions struct {
	Overwrite           bool
	PreservePermissions bool
}

// DefaultCheckoutOptions returns overwrite=true, preserve_permissions=true.
func DefaultCheckoutOptions() CheckoutOptions {
	return CheckoutOptions{Overwrite: true, PreservePermissions: true}
}

// Checkout resolves ref and materializes it into projectPath, per §4.5
// checkout.
func (e *Engine) Checkout(projectPath, ref string, opts CheckoutOptions) error {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return err
	}

	commitHash, symbolic, err := e.resolveRef(objStore, refStore, ref)
	if err != nil {
		return err
	}
	obj, err := objStore.Get(commitHash)
	if err != nil {
		return err
	}
	if obj.Kind != types.KindCommit {
		return newErr("checkout", KindInvariantViolation, errWrongKind(commitHash, types.KindCommit, obj.Kind))
	}

	if opts.Overwrite {
		if _, err := e.backupCurrent(projectPath, objStore, refStore); err != nil {
			return err
		}
	}

	if err := safeRestore(objStore, obj.Commit.Tree, projectPath, opts.PreservePermissions, e.log); err != nil {
		return err
	}

	if symbolic != "" {
		return refStore.SetHead(symbolic)
	}
	return refStore.SetHead(commitHash.String())
}

// backupCurrent commits the current working tree under
// refs/backups/backup-<unixnano>-<uuid8> without touching HEAD.
func (e *Engine) backupCurrent(projectPath string, objStore *objects.Store, refStore *refs.Store) (types.Hash, error) {
	builder := treebuild.New(objStore, e.cfg.IgnorePatterns, e.cfg.MaxFileSize, e.log)
	treeHash, err := builder.Build(projectPath)
	if err != nil {
		return types.Hash{}, err
	}

	var parents []types.Hash
	if h, err := refStore.Resolve("HEAD"); err == nil {
		parents = []types.Hash{h}
	} else if !errors.Is(err, refs.ErrNotFound) {
		return types.Hash{}, err
	}

	c := types.Commit{
		Tree:      treeHash,
		Parents:   parents,
		Author:    e.cfg.Author,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Message:   "automatic backup before checkout",
	}
	commitHash, err := objStore.PutCommit(c)
	if err != nil {
		return types.Hash{}, err
	}

	name := fmt.Sprintf("refs/backups/backup-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
	if err := refStore.Update(name, commitHash); err != nil {
		return types.Hash{}, err
	}
	return commitHash, nil
}

// safeRestore materializes a tree into destRoot. Untracked files already
// present in destRoot are left alone, per §4.5 step 4.
func safeRestore(store *objects.Store, treeHash types.Hash, destRoot string, preservePermissions bool, log warner) error {
	obj, err := store.Get(treeHash)
	if err != nil {
		return err
	}
	return restoreTree(store, obj.Tree, destRoot, preservePermissions, log)
}

func restoreTree(store *objects.Store, entries []types.TreeEntry, destDir string, preservePermissions bool, log warner) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(destDir, e.Name)
		if e.IsDir() {
			sub, err := store.Get(e.Hash)
			if err != nil {
				return err
			}
			if err := restoreTree(store, sub.Tree, target, preservePermissions, log); err != nil {
				return err
			}
			continue
		}

		blob, err := store.Get(e.Hash)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, blob.Blob, 0o644); err != nil {
			return err
		}
		if preservePermissions && runtime.GOOS != "windows" {
			if err := os.Chmod(target, os.FileMode(e.Mode&0o777)); err != nil {
				log.Warnf("checkpoint: chmod %s failed: %v", target, err)
			}
		}
	}
	return nil
}

// GetHistory performs a BFS from HEAD (or refs/heads/<branch> if given)
// over the commit DAG, per §4.5 get_history. An empty/absent history
// returns (nil, nil) rather than an error.
func (e *Engine) GetHistory(projectPath, branch string) ([]CommitInfo, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return nil, err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return nil, err
	}

	ref := "HEAD"
	if branch != "" {
		ref = "refs/heads/" + branch
	}
	start, _, err := e.resolveRef(objStore, refStore, ref)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return getHistory(objStore, start, e.log)
}

// ListFiles flattens ref's tree, per §4.5 list_files.
func (e *Engine) ListFiles(projectPath, ref string) ([]treebuild.FileInfo, error) {
	objStore, _, commit, err := e.resolveCommit(projectPath, ref)
	if err != nil {
		return nil, err
	}
	return treebuild.ListFiles(objStore, commit.Tree)
}

// GetFileContent reads one file's bytes out of ref's tree, per §4.5
// get_file_content.
func (e *Engine) GetFileContent(projectPath, ref, path string) ([]byte, error) {
	objStore, _, commit, err := e.resolveCommit(projectPath, ref)
	if err != nil {
		return nil, err
	}
	content, err := treebuild.GetFileContent(objStore, commit.Tree, path)
	if errors.Is(err, treebuild.ErrPathNotFound) {
		return nil, newErr("get_file_content", KindNotFound, err)
	}
	return content, err
}

// ChangeSet is the result of get_checkpoint_changes: a Diff plus merge
// metadata for multi-parent commits.
type ChangeSet struct {
	Diff        treebuild.Diff
	IsMerge     bool
	ParentCount int
}

// GetCheckpointChanges compares ref's tree to its first parent's tree,
// per §4.5 get_checkpoint_changes.
func (e *Engine) GetCheckpointChanges(projectPath, ref string) (ChangeSet, error) {
	objStore, _, commit, err := e.resolveCommit(projectPath, ref)
	if err != nil {
		return ChangeSet{}, err
	}

	var parentTree types.Hash
	if len(commit.Parents) > 0 {
		parentObj, err := objStore.Get(commit.Parents[0])
		if err != nil {
			return ChangeSet{}, err
		}
		parentTree = parentObj.Commit.Tree
	}

	d, err := treebuild.Compare(objStore, parentTree, commit.Tree)
	if err != nil {
		return ChangeSet{}, err
	}
	return ChangeSet{Diff: d, IsMerge: len(commit.Parents) > 1, ParentCount: len(commit.Parents)}, nil
}

// resolveCommit is the shared resolve+read+kind-check path for the
// read-only operations above.
func (e *Engine) resolveCommit(projectPath, ref string) (*objects.Store, *refs.Store, types.Commit, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return nil, nil, types.Commit{}, err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return nil, nil, types.Commit{}, err
	}
	commitHash, _, err := e.resolveRef(objStore, refStore, ref)
	if err != nil {
		return nil, nil, types.Commit{}, err
	}
	obj, err := objStore.Get(commitHash)
	if err != nil {
		return nil, nil, types.Commit{}, err
	}
	if obj.Kind != types.KindCommit {
		return nil, nil, types.Commit{}, newErr("resolve_commit", KindInvariantViolation, errWrongKind(commitHash, types.KindCommit, obj.Kind))
	}
	return objStore, refStore, obj.Commit, nil
}

// DeleteLatestCheckpoint implements §4.5 delete_latest_checkpoint.
func (e *Engine) DeleteLatestCheckpoint(projectPath string, targetHash types.Hash) error {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return err
	}

	history, err := e.GetHistory(projectPath, "")
	if err != nil {
		return err
	}
	if len(history) < 2 {
		return newErr("delete_latest_checkpoint", KindInvariantViolation, fmt.Errorf("history has fewer than 2 commits"))
	}
	if history[0].Hash != targetHash {
		return newErr("delete_latest_checkpoint", KindInvariantViolation, fmt.Errorf("target is not the most recent checkpoint"))
	}
	if !history[0].Commit.HasParent() {
		return newErr("delete_latest_checkpoint", KindInvariantViolation, fmt.Errorf("target has no parent"))
	}
	parent := history[0].Commit.Parents[0]

	if _, err := e.backupCurrent(projectPath, objStore, refStore); err != nil {
		return err
	}
	if err := e.setHeadTo(refStore, parent); err != nil {
		return err
	}

	parentObj, err := objStore.Get(parent)
	if err != nil {
		return err
	}
	if err := safeRestore(objStore, parentObj.Commit.Tree, projectPath, true, e.log); err != nil {
		return err
	}
	if err := objStore.Delete(targetHash); err != nil {
		return err
	}

	return e.GarbageCollect(projectPath)
}

// ResetToCheckpoint implements §4.5 reset_to_checkpoint.
func (e *Engine) ResetToCheckpoint(projectPath string, targetHash types.Hash) error {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return err
	}

	prevHead, _, err := e.resolveRef(objStore, refStore, "HEAD")
	if err != nil && !isNotFound(err) {
		return err
	}

	if _, err := e.backupCurrent(projectPath, objStore, refStore); err != nil {
		return err
	}
	if err := e.setHeadTo(refStore, targetHash); err != nil {
		return err
	}

	targetObj, err := objStore.Get(targetHash)
	if err != nil {
		return err
	}
	if targetObj.Kind != types.KindCommit {
		return newErr("reset_to_checkpoint", KindInvariantViolation, errWrongKind(targetHash, types.KindCommit, targetObj.Kind))
	}
	if err := safeRestore(objStore, targetObj.Commit.Tree, projectPath, true, e.log); err != nil {
		return err
	}

	if !prevHead.IsZero() {
		prevHistory, err := getHistory(objStore, prevHead, e.log)
		if err != nil {
			return err
		}
		// Only the commit objects are deleted explicitly, matching
		// DeleteLatestCheckpoint's treatment of trees/blobs: a discarded
		// commit's tree may be shared (by hash) with a retained commit's
		// tree when two checkpoints captured identical content, so
		// reachability of trees and blobs is left entirely to the
		// mark-and-sweep GarbageCollect call below.
		ancestors := ancestorSet(objStore, targetHash)
		for _, ci := range prevHistory {
			if ancestors[ci.Hash] {
				continue
			}
			if err := objStore.Delete(ci.Hash); err != nil {
				return err
			}
		}
	}

	return e.GarbageCollect(projectPath)
}

func ancestorSet(store *objects.Store, start types.Hash) map[types.Hash]bool {
	set := make(map[types.Hash]bool)
	if start.IsZero() {
		return set
	}
	queue := []types.Hash{start}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if set[h] {
			continue
		}
		set[h] = true
		obj, err := store.Get(h)
		if err != nil || obj.Kind != types.KindCommit {
			continue
		}
		queue = append(queue, obj.Commit.Parents...)
	}
	return set
}

// markConcurrency bounds the GC mark phase's fan-out, per spec.md §5
// "reads may proceed concurrently with other reads".
const markConcurrency = 8

type markSet struct {
	mu   sync.Mutex
	seen map[types.Hash]bool
}

func (m *markSet) tryMark(h types.Hash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[h] {
		return false
	}
	m.seen[h] = true
	return true
}

func (m *markSet) has(h types.Hash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[h]
}

// GarbageCollect implements §4.5 garbage_collect: mark everything
// reachable from HEAD and every ref, sweep everything else.
func (e *Engine) GarbageCollect(projectPath string) error {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return err
	}
	objStore, refStore, err := e.open(dir)
	if err != nil {
		return err
	}

	roots, err := e.collectRoots(refStore)
	if err != nil {
		return err
	}

	marked := &markSet{seen: make(map[types.Hash]bool)}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(markConcurrency)
	for _, r := range roots {
		r := r
		g.Go(func() error { return markReachable(ctx, g, objStore, r, marked, e.log) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	all, err := objStore.List()
	if err != nil {
		return err
	}
	for _, h := range all {
		if !marked.has(h) {
			if err := objStore.Delete(h); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) collectRoots(refStore *refs.Store) ([]types.Hash, error) {
	var roots []types.Hash
	if h, err := refStore.Resolve("HEAD"); err == nil {
		roots = append(roots, h)
	} else if !errors.Is(err, refs.ErrNotFound) {
		return nil, err
	}

	for _, prefix := range []string{"refs/heads", "refs/backups"} {
		entries, err := refStore.ListUnder(prefix)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			h, err := refStore.Resolve(entry.Name)
			if err != nil {
				e.log.Warnf("checkpoint: gc: dangling ref %s: %v", entry.Name, err)
				continue
			}
			roots = append(roots, h)
		}
	}
	return roots, nil
}

// markReachable marks hash and recursively fans out to everything it
// points to, submitting each child walk back onto the same bounded
// group g rather than spawning a fresh one per level — a nested group
// per recursion level would let every tree/commit depth add its own
// uncapped batch of goroutines, defeating g's SetLimit(markConcurrency).
// Submitting from within a goroutine g itself launched is safe: g's
// internal WaitGroup counter is already >0 for the caller's own Go
// call, so the nested submission cannot race a concurrent Wait. Children
// are submitted with TryGo; when every slot is taken the child is walked
// on the current goroutine instead, so walkers that hold all slots never
// block waiting for a slot.
func markReachable(ctx context.Context, g *errgroup.Group, store *objects.Store, hash types.Hash, marked *markSet, log warner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !marked.tryMark(hash) {
		return nil
	}

	obj, err := store.Get(hash)
	if err != nil {
		if errors.Is(err, objects.ErrNotFound) {
			log.Warnf("checkpoint: gc: dangling pointer %s", hash)
			return nil
		}
		return err
	}

	var children []types.Hash
	switch obj.Kind {
	case types.KindCommit:
		children = append([]types.Hash{obj.Commit.Tree}, obj.Commit.Parents...)
	case types.KindTree:
		for _, te := range obj.Tree {
			children = append(children, te.Hash)
		}
	}
	for _, child := range children {
		if g.TryGo(func() error { return markReachable(ctx, g, store, child, marked, log) }) {
			continue
		}
		if err := markReachable(ctx, g, store, child, marked, log); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports object counts and dedup-ratio proxy, per §4.5 "Storage
// stats & optimize".
func (e *Engine) Stats(projectPath string) (objects.Stats, error) {
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return objects.Stats{}, err
	}
	objStore, _, err := e.open(dir)
	if err != nil {
		return objects.Stats{}, err
	}
	return objStore.Stats()
}

// OptimizeStorage is currently identical to GarbageCollect, per spec.md
// §4.5 "optimize currently equals garbage_collect".
func (e *Engine) OptimizeStorage(projectPath string) error {
	return e.GarbageCollect(projectPath)
}

// ListBranches lists refs/heads/* (branching mode only).
func (e *Engine) ListBranches(projectPath string) ([]string, error) {
	if e.mode != Branching {
		return nil, newErr("list_branches", KindUnsupported, fmt.Errorf("branches are not available in linear mode"))
	}
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return nil, err
	}
	_, refStore, err := e.open(dir)
	if err != nil {
		return nil, err
	}
	return refStore.ListBranches()
}

// DeleteBranch removes a branch (branching mode only).
func (e *Engine) DeleteBranch(projectPath, name string) error {
	if e.mode != Branching {
		return newErr("delete_branch", KindUnsupported, fmt.Errorf("branches are not available in linear mode"))
	}
	dir, err := e.projectDir(projectPath)
	if err != nil {
		return err
	}
	_, refStore, err := e.open(dir)
	if err != nil {
		return err
	}
	if err := refStore.DeleteBranch(name); err != nil {
		if errors.Is(err, refs.ErrBranchNotFound) {
			return newErr("delete_branch", KindNotFound, err)
		}
		return err
	}
	return nil
}
