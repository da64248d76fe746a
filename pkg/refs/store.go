// Package refs implements the reference store (§4.3): HEAD plus named
// refs under refs/heads and refs/backups, symbolic-ref resolution with
// cycle detection, short-hash resolution, and atomic writes.
package refs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"snapstore/pkg/types"
)

const (
	symbolicPrefix = "ref: "
	headName       = "HEAD"
	maxRefChain    = 64 // bounds symbolic resolution before declaring a cycle
)

var (
	// ErrNotFound is returned when a ref does not exist.
	ErrNotFound = errors.New("refs: not found")
	// ErrRefCycle is returned when a symbolic-ref chain does not terminate.
	ErrRefCycle = errors.New("refs: cyclic symbolic ref chain")
	// ErrAmbiguous is returned by ResolveShortHash when a prefix matches
	// more than one object.
	ErrAmbiguous = errors.New("refs: ambiguous short hash")
)

// AmbiguousError carries a sample of the colliding hashes.
type AmbiguousError struct {
	Prefix  string
	Sample  []types.Hash
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("refs: short hash %q is ambiguous (%d+ matches)", e.Prefix, len(e.Sample))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }

// Store is the reference store for one project directory. name values
// are either "HEAD" or a slash-separated ref path such as
// "refs/heads/main" or "refs/backups/backup-123".
type Store struct {
	baseDir string
}

// New returns a Store rooted at baseDir. It does not create any
// directories; callers create refs/heads and refs/backups as needed
// (checkpoint.Engine.open does this, per §4.5 step 1).
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(name))
}

// ReadRaw returns the literal file content of a ref (trimmed of
// trailing whitespace), without following symbolic refs.
func (s *Store) ReadRaw(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Resolve follows "ref: <path>" chains (bounded, cycle-detected) until a
// raw hash is reached.
func (s *Store) Resolve(name string) (types.Hash, error) {
	seen := make(map[string]bool)
	current := name
	for i := 0; i < maxRefChain; i++ {
		if seen[current] {
			return types.Hash{}, ErrRefCycle
		}
		seen[current] = true

		content, err := s.ReadRaw(current)
		if err != nil {
			return types.Hash{}, err
		}
		if strings.HasPrefix(content, symbolicPrefix) {
			current = strings.TrimPrefix(content, symbolicPrefix)
			continue
		}
		return types.HashFromHex(content)
	}
	return types.Hash{}, ErrRefCycle
}

// Update atomically writes "<hash>\n" to name, creating parent
// directories as needed.
func (s *Store) Update(name string, hash types.Hash) error {
	return s.writeAtomic(name, hash.String()+"\n")
}

// SetHead sets HEAD: symbolic ("ref: <target>") if target starts with
// "refs/", otherwise detached (the raw hash text in target).
func (s *Store) SetHead(target string) error {
	if strings.HasPrefix(target, "refs/") {
		return s.writeAtomic(headName, symbolicPrefix+target+"\n")
	}
	return s.writeAtomic(headName, target+"\n")
}

// RefEntry is one (name, raw content) pair returned by ListUnder.
type RefEntry struct {
	Name    string
	Content string
}

// ListUnder returns every ref whose name starts with prefix (e.g.
// "refs/heads" or "refs/backups"), skipping temp files.
func (s *Store) ListUnder(prefix string) ([]RefEntry, error) {
	root := s.path(prefix)
	var out []RefEntry
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, RefEntry{Name: filepath.ToSlash(rel), Content: strings.TrimSpace(string(content))})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

// Delete removes a ref file, then prunes now-empty parent directories
// back up to refs/.
func (s *Store) Delete(name string) error {
	p := s.path(name)
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	dir := filepath.Dir(p)
	refsRoot := filepath.Join(s.baseDir, "refs")
	for dir != refsRoot && strings.HasPrefix(dir, refsRoot) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// writeAtomic writes content to name via temp-file-then-rename.
func (s *Store) writeAtomic(name, content string) error {
	p := s.path(name)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ref-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// ResolveShortHash resolves a 7-63 hex character prefix against the
// given universe of stored hashes (the caller supplies objects.Store's
// List(), since the reference store has no object-listing capability of
// its own). Returns ErrNotFound for zero matches, the unique match for
// one, or an *AmbiguousError (sample of up to 3) for more than one.
func ResolveShortHash(prefix string, all []types.Hash) (types.Hash, error) {
	if len(prefix) < 7 || len(prefix) > 63 {
		return types.Hash{}, fmt.Errorf("refs: short hash prefix must be 7-63 hex chars, got %d", len(prefix))
	}
	var matches []types.Hash
	for _, h := range all {
		if strings.HasPrefix(h.String(), prefix) {
			matches = append(matches, h)
			if len(matches) > 3 {
				break
			}
		}
	}
	switch len(matches) {
	case 0:
		return types.Hash{}, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		sample := matches
		if len(sample) > 3 {
			sample = sample[:3]
		}
		return types.Hash{}, &AmbiguousError{Prefix: prefix, Sample: sample}
	}
}
