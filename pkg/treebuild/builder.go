// Package treebuild implements the tree builder (§4.4): a directory walk
// that applies ignore patterns and a size cap and emits blobs and trees
// into an object store, plus the diff and flattening operations the
// checkpoint engine needs on top of the resulting trees.
package treebuild

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"snapstore/pkg/objects"
	"snapstore/pkg/types"
)

// DefaultMaxFileSize is applied when a Builder is constructed with a
// non-positive maxFileSize.
const DefaultMaxFileSize = 100 << 20 // 100 MiB

// Logger receives warnings for skipped files and directories (oversized
// files, unreadable directories, skipped symlinks).
type Logger interface {
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any) {}

// Builder walks a working directory and writes blobs/trees into an
// object store, returning the root tree hash.
type Builder struct {
	store       *objects.Store
	ignore      *gitignore.GitIgnore
	rawPatterns []string
	maxFileSize int64
	log         Logger
}

// New constructs a Builder. If the patterns fail to compile as gitignore
// lines, matches falls back to the documented substring/suffix matcher
// rather than failing construction.
func New(store *objects.Store, patterns []string, maxFileSize int64, log Logger) *Builder {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if log == nil {
		log = nopLogger{}
	}
	b := &Builder{store: store, rawPatterns: patterns, maxFileSize: maxFileSize, log: log}
	if gi, err := gitignore.CompileIgnoreLines(patterns...); err == nil {
		b.ignore = gi
	}
	return b
}

// Build walks root and returns the hash of the resulting tree.
func (b *Builder) Build(root string) (types.Hash, error) {
	return b.buildDir(root, "")
}

func (b *Builder) matches(rel string) bool {
	if b.ignore != nil {
		return b.ignore.MatchesPath(rel)
	}
	return b.fallbackMatch(rel)
}

// fallbackMatch is the safety net described in §4.4 for a pattern the
// glob library itself rejects.
func (b *Builder) fallbackMatch(rel string) bool {
	for _, p := range b.rawPatterns {
		switch {
		case strings.HasSuffix(p, "/**"):
			prefix := strings.TrimSuffix(p, "/**")
			if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
				return true
			}
		case strings.HasPrefix(p, "*"):
			if strings.HasSuffix(rel, strings.TrimPrefix(p, "*")) {
				return true
			}
		default:
			if rel == p || strings.Contains(rel, p) {
				return true
			}
		}
	}
	return false
}

func (b *Builder) buildDir(absDir, rel string) (types.Hash, error) {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		b.log.Warnf("treebuild: cannot read directory %s: %v", absDir, err)
		return b.store.PutTree(nil)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []types.TreeEntry
	for _, de := range entries {
		childRel := de.Name()
		if rel != "" {
			childRel = rel + "/" + childRel
		}
		if b.matches(childRel) {
			continue
		}

		info, err := de.Info()
		if err != nil {
			b.log.Warnf("treebuild: cannot stat %s: %v", childRel, err)
			continue
		}

		// Symlinks (and any other non-regular file: sockets, devices,
		// FIFOs) are skipped rather than followed.
		if info.Mode()&fs.ModeSymlink != 0 || (!de.IsDir() && !info.Mode().IsRegular()) {
			b.log.Warnf("treebuild: skipping non-regular entry %s", childRel)
			continue
		}

		if de.IsDir() {
			entry, ok, err := b.buildSubtree(absDir, de.Name(), childRel)
			if err != nil {
				return types.Hash{}, err
			}
			if ok {
				out = append(out, entry)
			}
			continue
		}

		entry, ok, err := b.buildFile(absDir, de.Name(), childRel, info)
		if err != nil {
			return types.Hash{}, err
		}
		if ok {
			out = append(out, entry)
		}
	}

	return b.store.PutTree(out)
}

func (b *Builder) buildSubtree(absDir, name, rel string) (types.TreeEntry, bool, error) {
	hash, err := b.buildDir(filepath.Join(absDir, name), rel)
	if err != nil {
		return types.TreeEntry{}, false, err
	}
	sub, err := b.store.Get(hash)
	if err != nil {
		return types.TreeEntry{}, false, err
	}
	if len(sub.Tree) == 0 {
		// I3: an entirely empty (or entirely ignored) directory is not
		// recorded as a tree entry.
		return types.TreeEntry{}, false, nil
	}
	return types.TreeEntry{Name: name, Mode: 0o040000, Kind: types.EntryTree, Hash: hash}, true, nil
}

func (b *Builder) buildFile(absDir, name, rel string, info os.FileInfo) (types.TreeEntry, bool, error) {
	if info.Size() > b.maxFileSize {
		b.log.Warnf("treebuild: skipping %s: %d bytes exceeds max_file_size", rel, info.Size())
		return types.TreeEntry{}, false, nil
	}

	content, err := os.ReadFile(filepath.Join(absDir, name))
	if err != nil {
		b.log.Warnf("treebuild: cannot read %s: %v", rel, err)
		return types.TreeEntry{}, false, nil
	}

	hash, err := b.store.PutBlob(content)
	if err != nil {
		return types.TreeEntry{}, false, err
	}

	mode := uint32(0o100644)
	if info.Mode()&0o111 != 0 {
		mode = 0o100755
	}
	return types.TreeEntry{Name: name, Mode: mode, Kind: types.EntryBlob, Hash: hash, Size: uint64(info.Size())}, true, nil
}
