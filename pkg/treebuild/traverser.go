package treebuild

import (
	"errors"
	"strings"

	"snapstore/pkg/objects"
	"snapstore/pkg/types"
)

// ErrPathNotFound is returned by GetFileContent when path does not
// resolve to a blob in the tree.
var ErrPathNotFound = errors.New("treebuild: path not found")

// FileInfo is one flattened entry of a tree, per §4.5 list_files.
type FileInfo struct {
	Path        string // "/"-joined, relative to the tree root
	IsDirectory bool
	Size        uint64
	Hash        types.Hash
}

// ListFiles recursively flattens the tree rooted at hash. Directories are
// included as entries with IsDirectory=true, Size=0.
func ListFiles(store *objects.Store, root types.Hash) ([]FileInfo, error) {
	var out []FileInfo
	if err := flatten(store, root, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(store *objects.Store, hash types.Hash, prefix string, out *[]FileInfo) error {
	obj, err := store.Get(hash)
	if err != nil {
		return err
	}
	for _, e := range obj.Tree {
		path := e.Name
		if prefix != "" {
			path = prefix + "/" + path
		}
		if e.IsDir() {
			*out = append(*out, FileInfo{Path: path, IsDirectory: true})
			if err := flatten(store, e.Hash, path, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, FileInfo{Path: path, Size: e.Size, Hash: e.Hash})
	}
	return nil
}

// GetFileContent resolves path (segment by segment, "/"-separated)
// against the tree rooted at hash and returns the blob's bytes.
func GetFileContent(store *objects.Store, root types.Hash, path string) ([]byte, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	current := root
	for i, seg := range segments {
		obj, err := store.Get(current)
		if err != nil {
			return nil, err
		}
		var found *types.TreeEntry
		for i := range obj.Tree {
			if obj.Tree[i].Name == seg {
				found = &obj.Tree[i]
				break
			}
		}
		if found == nil {
			return nil, ErrPathNotFound
		}
		if i == len(segments)-1 {
			if found.IsDir() {
				return nil, ErrPathNotFound
			}
			blob, err := store.Get(found.Hash)
			if err != nil {
				return nil, err
			}
			return blob.Blob, nil
		}
		if !found.IsDir() {
			return nil, ErrPathNotFound
		}
		current = found.Hash
	}
	return nil, ErrPathNotFound
}
