package treebuild

import (
	"snapstore/pkg/objects"
	"snapstore/pkg/types"
)

// ChangeKind identifies one kind of path-level change in a Diff.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Deleted
	Renamed
)

// Change is one path-level difference between two trees.
type Change struct {
	Kind ChangeKind
	Path string // the new/current path for Added, Modified, Renamed; the removed path for Deleted
	From string // set only for Renamed: the path it was renamed from

	OldHash types.Hash
	NewHash types.Hash
	OldSize uint64
	NewSize uint64
}

// Diff is the result of comparing two trees (§4.5 "Diff algorithm"),
// aggregated with per-kind counts and a net size delta.
type Diff struct {
	Changes []Change

	AddedCount    int
	ModifiedCount int
	DeletedCount  int
	RenamedCount  int
	NetSizeDelta  int64
}

// Compare diffs the tree rooted at newHash against the tree rooted at
// oldHash. oldHash may be the zero hash, meaning "no parent": every file
// in the new tree is reported as added.
func Compare(store *objects.Store, oldHash, newHash types.Hash) (Diff, error) {
	var before []FileInfo
	var err error
	if !oldHash.IsZero() {
		before, err = ListFiles(store, oldHash)
		if err != nil {
			return Diff{}, err
		}
	}
	after, err := ListFiles(store, newHash)
	if err != nil {
		return Diff{}, err
	}
	return diffLists(before, after), nil
}

func diffLists(before, after []FileInfo) Diff {
	oldByPath := make(map[string]FileInfo, len(before))
	newByPath := make(map[string]FileInfo, len(after))
	for _, f := range before {
		if !f.IsDirectory {
			oldByPath[f.Path] = f
		}
	}
	for _, f := range after {
		if !f.IsDirectory {
			newByPath[f.Path] = f
		}
	}

	var d Diff
	addedPaths := make(map[string]bool)

	for path, nf := range newByPath {
		of, existed := oldByPath[path]
		if !existed {
			d.Changes = append(d.Changes, Change{Kind: Added, Path: path, NewHash: nf.Hash, NewSize: nf.Size})
			addedPaths[path] = true
			continue
		}
		if of.Hash != nf.Hash {
			d.Changes = append(d.Changes, Change{
				Kind: Modified, Path: path,
				OldHash: of.Hash, NewHash: nf.Hash,
				OldSize: of.Size, NewSize: nf.Size,
			})
		}
	}

	var deletedCandidates []FileInfo
	for path, of := range oldByPath {
		if _, ok := newByPath[path]; !ok {
			deletedCandidates = append(deletedCandidates, of)
		}
	}

	// Rename detection: group deleted-candidates and newly-added files by
	// blob hash; a deleted file whose hash reappears at a new added path
	// becomes a rename instead of an independent delete+add. A given hash
	// drives at most one rename.
	newByHash := make(map[types.Hash][]string)
	for path := range addedPaths {
		nf := newByPath[path]
		newByHash[nf.Hash] = append(newByHash[nf.Hash], path)
	}

	renamedAway := make(map[string]bool) // new paths consumed by a rename
	var stillDeleted []FileInfo
	for _, of := range deletedCandidates {
		candidates := newByHash[of.Hash]
		var target string
		for _, c := range candidates {
			if !renamedAway[c] {
				target = c
				break
			}
		}
		if target == "" {
			stillDeleted = append(stillDeleted, of)
			continue
		}
		renamedAway[target] = true
		nf := newByPath[target]
		d.Changes = append(d.Changes, Change{
			Kind: Renamed, Path: target, From: of.Path,
			OldHash: of.Hash, NewHash: nf.Hash,
			OldSize: of.Size, NewSize: nf.Size,
		})
	}
	for _, of := range stillDeleted {
		d.Changes = append(d.Changes, Change{Kind: Deleted, Path: of.Path, OldHash: of.Hash, OldSize: of.Size})
	}

	// Drop the preliminary "added" entries that turned out to be the
	// target side of a rename.
	filtered := d.Changes[:0]
	for _, c := range d.Changes {
		if c.Kind == Added && renamedAway[c.Path] {
			continue
		}
		filtered = append(filtered, c)
	}
	d.Changes = filtered

	for _, c := range d.Changes {
		switch c.Kind {
		case Added:
			d.AddedCount++
			d.NetSizeDelta += int64(c.NewSize)
		case Modified:
			d.ModifiedCount++
			d.NetSizeDelta += int64(c.NewSize) - int64(c.OldSize)
		case Deleted:
			d.DeletedCount++
			d.NetSizeDelta -= int64(c.OldSize)
		case Renamed:
			d.RenamedCount++
			d.NetSizeDelta += int64(c.NewSize) - int64(c.OldSize)
		}
	}
	return d
}
