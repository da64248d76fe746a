package refs

import (
	"errors"
	"os"
	"strings"

	"snapstore/pkg/types"
)

const headsPrefix = "refs/heads/"

var (
	// ErrBranchExists is returned when creating a branch that already exists.
	ErrBranchExists = errors.New("refs: branch already exists")
	// ErrBranchNotFound is returned when a branch does not exist.
	ErrBranchNotFound = errors.New("refs: branch not found")
	// ErrBranchPathConflict is returned when a branch name conflicts with
	// an existing branch's path (e.g. "foo" exists and "foo/bar" is
	// requested, or vice versa).
	ErrBranchPathConflict = errors.New("refs: branch name conflicts with existing branch path")
)

func branchRef(name string) string {
	return headsPrefix + name
}

// BranchExists reports whether refs/heads/<name> exists.
func (s *Store) BranchExists(name string) bool {
	_, err := os.Stat(s.path(branchRef(name)))
	return err == nil
}

// checkBranchPathConflict guards against nested-name collisions: you
// cannot create "foo/bar" when "foo" is already a branch (file), nor
// "foo" when "foo/bar" exists (directory).
func (s *Store) checkBranchPathConflict(name string) error {
	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		parentRef := branchRef(strings.Join(parts[:i], "/"))
		if info, err := os.Stat(s.path(parentRef)); err == nil && !info.IsDir() {
			return ErrBranchPathConflict
		}
	}
	if info, err := os.Stat(s.path(branchRef(name))); err == nil && info.IsDir() {
		return ErrBranchPathConflict
	}
	return nil
}

// CreateBranch creates refs/heads/<name> pointing at commitHash.
func (s *Store) CreateBranch(name string, commitHash types.Hash) error {
	if err := ValidateRefName(name); err != nil {
		return err
	}
	if s.BranchExists(name) {
		return ErrBranchExists
	}
	if err := s.checkBranchPathConflict(name); err != nil {
		return err
	}
	return s.Update(branchRef(name), commitHash)
}

// UpdateBranch repoints an existing branch.
func (s *Store) UpdateBranch(name string, commitHash types.Hash) error {
	if !s.BranchExists(name) {
		return ErrBranchNotFound
	}
	return s.Update(branchRef(name), commitHash)
}

// GetBranch returns the commit hash refs/heads/<name> points to.
func (s *Store) GetBranch(name string) (types.Hash, error) {
	h, err := s.Resolve(branchRef(name))
	if errors.Is(err, ErrNotFound) {
		return types.Hash{}, ErrBranchNotFound
	}
	return h, err
}

// DeleteBranch removes refs/heads/<name>.
func (s *Store) DeleteBranch(name string) error {
	if !s.BranchExists(name) {
		return ErrBranchNotFound
	}
	return s.Delete(branchRef(name))
}

// ListBranches returns all branch names under refs/heads/.
func (s *Store) ListBranches() ([]string, error) {
	entries, err := s.ListUnder("refs/heads")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimPrefix(e.Name, headsPrefix))
	}
	return names, nil
}
