// Package objects implements the content-addressed object store: a
// key/value store on disk keyed by SHA-256 hash, with two-level sharded
// directories, per-object gzip compression, atomic writes, and
// deduplication on write.
package objects

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"snapstore/pkg/types"
)

// ErrNotFound is returned by Get when a hash is not present.
var ErrNotFound = errors.New("objects: not found")

// listCacheTTL bounds how long a cached directory listing is trusted
// before a fresh readdir is required, per §4.2 "bounded in-process cache
// of the list is kept with a short TTL (5 s)".
const listCacheTTL = 5 * time.Second

var shardPattern = regexp.MustCompile(`^[0-9a-f]{2}/[0-9a-f]{62}$`)

// Object is a decoded object of any kind, as returned by Get.
type Object struct {
	Kind   types.Kind
	Blob   []byte
	Tree   []types.TreeEntry
	Commit types.Commit
}

// Stats summarizes the object store's contents (§4.2 stats()).
type Stats struct {
	BlobCount   int
	TreeCount   int
	CommitCount int

	CompressedBytes   int64
	UncompressedBlobBytes int64
}

// DedupRatio returns an approximation of space saved by compression and
// dedup, as UncompressedBlobBytes / CompressedBytes (1.0 when there is no
// data yet).
func (s Stats) DedupRatio() float64 {
	if s.CompressedBytes == 0 {
		return 1
	}
	return float64(s.UncompressedBlobBytes) / float64(s.CompressedBytes)
}

// Store is the on-disk content-addressed object store for one project.
type Store struct {
	baseDir          string
	compressionLevel int

	mu          sync.Mutex
	cachedList  []types.Hash
	cachedAt    time.Time
}

// New opens (and if necessary initializes) the object store rooted at
// baseDir/objects. compressionLevel follows the gzip scale (0-9); 0
// selects the package default (6).
func New(baseDir string, compressionLevel int) (*Store, error) {
	if compressionLevel <= 0 {
		compressionLevel = gzip.DefaultCompression
	}
	objectsDir := filepath.Join(baseDir, "objects")
	if err := os.MkdirAll(objectsDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{baseDir: baseDir, compressionLevel: compressionLevel}, nil
}

func (s *Store) objectPath(hash types.Hash) string {
	hex := hash.String()
	return filepath.Join(s.baseDir, "objects", hex[:2], hex[2:])
}

// Has reports whether hash is already stored.
func (s *Store) Has(hash types.Hash) bool {
	_, err := os.Stat(s.objectPath(hash))
	return err == nil
}

// PutBlob stores raw file content and returns its hash. A blob with
// identical content already on disk is a no-op beyond the existence
// check (structural dedup, §3 "Identity is structural").
func (s *Store) PutBlob(content []byte) (types.Hash, error) {
	return s.put(types.KindBlob, content)
}

// PutTree sorts and serializes entries and stores the result.
func (s *Store) PutTree(entries []types.TreeEntry) (types.Hash, error) {
	body, err := EncodeTree(entries)
	if err != nil {
		return types.Hash{}, err
	}
	return s.put(types.KindTree, body)
}

// PutCommit serializes and stores a commit.
func (s *Store) PutCommit(c types.Commit) (types.Hash, error) {
	return s.put(types.KindCommit, EncodeCommit(c))
}

func (s *Store) put(kind types.Kind, body []byte) (types.Hash, error) {
	hash := types.SumBody(kind, body)
	if s.Has(hash) {
		return hash, nil
	}
	if err := s.writeObject(hash, kind, body); err != nil {
		return types.Hash{}, err
	}
	s.invalidateList()
	return hash, nil
}

// writeObject gzip-compresses "<kind> <len>\0" + body and writes it
// atomically: to a uniquely named sibling, then renamed into place.
func (s *Store) writeObject(hash types.Hash, kind types.Kind, body []byte) error {
	path := s.objectPath(hash)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.tmp.%s", path, uuid.NewString())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	gz, err := gzip.NewWriterLevel(f, s.compressionLevel)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	fmt.Fprintf(gz, "%s %d\x00", kind, len(body))
	if _, err := gz.Write(body); err != nil {
		gz.Close()
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Get reads and decodes the object stored under hash.
func (s *Store) Get(hash types.Hash) (Object, error) {
	kind, body, err := s.readRaw(hash)
	if err != nil {
		return Object{}, err
	}
	switch kind {
	case types.KindBlob:
		return Object{Kind: types.KindBlob, Blob: body}, nil
	case types.KindTree:
		entries, err := DecodeTree(body)
		if err != nil {
			return Object{}, &ErrCorruptObject{Hash: hash, Reason: err.Error()}
		}
		return Object{Kind: types.KindTree, Tree: entries}, nil
	case types.KindCommit:
		c, err := DecodeCommit(body)
		if err != nil {
			return Object{}, &ErrCorruptObject{Hash: hash, Reason: err.Error()}
		}
		return Object{Kind: types.KindCommit, Commit: c}, nil
	default:
		return Object{}, &ErrCorruptObject{Hash: hash, Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
}

// readRaw reads, decompresses, and validates the framing of one object,
// returning its declared kind and body.
func (s *Store) readRaw(hash types.Hash) (types.Kind, []byte, error) {
	f, err := os.Open(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", nil, &ErrCorruptObject{Hash: hash, Reason: "gunzip failed: " + err.Error()}
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return "", nil, &ErrCorruptObject{Hash: hash, Reason: "gunzip failed: " + err.Error()}
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return "", nil, &ErrCorruptObject{Hash: hash, Reason: "missing header terminator"}
	}
	header := string(raw[:nul])
	body := raw[nul+1:]

	var kind string
	var declaredLen int
	if _, err := fmt.Sscanf(header, "%s %d", &kind, &declaredLen); err != nil {
		return "", nil, &ErrCorruptObject{Hash: hash, Reason: "malformed header: " + header}
	}
	if declaredLen != len(body) {
		return "", nil, &ErrCorruptObject{Hash: hash, Reason: "size mismatch in header"}
	}
	return types.Kind(kind), body, nil
}

// Delete removes an object. Used only by GC and explicit delete/reset
// operations per §3 "Lifecycle".
func (s *Store) Delete(hash types.Hash) error {
	err := os.Remove(s.objectPath(hash))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	s.invalidateList()
	return nil
}

// List returns every hash currently stored, using the bounded TTL cache
// described in §4.2.
func (s *Store) List() ([]types.Hash, error) {
	s.mu.Lock()
	if s.cachedList != nil && time.Since(s.cachedAt) < listCacheTTL {
		cached := make([]types.Hash, len(s.cachedList))
		copy(cached, s.cachedList)
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	var hashes []types.Hash
	objectsDir := filepath.Join(s.baseDir, "objects")
	shards, err := os.ReadDir(objectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(objectsDir, shard.Name()))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			rel := shard.Name() + "/" + e.Name()
			if !shardPattern.MatchString(rel) {
				continue
			}
			h, err := types.HashFromHex(shard.Name() + e.Name())
			if err != nil {
				continue
			}
			hashes = append(hashes, h)
		}
	}

	s.mu.Lock()
	s.cachedList = hashes
	s.cachedAt = time.Now()
	result := make([]types.Hash, len(hashes))
	copy(result, hashes)
	s.mu.Unlock()
	return result, nil
}

func (s *Store) invalidateList() {
	s.mu.Lock()
	s.cachedList = nil
	s.mu.Unlock()
}

// Stats aggregates object counts and on-disk/uncompressed sizes.
func (s *Store) Stats() (Stats, error) {
	hashes, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, h := range hashes {
		info, err := os.Stat(s.objectPath(h))
		if err != nil {
			continue
		}
		st.CompressedBytes += info.Size()

		kind, body, err := s.readRaw(h)
		if err != nil {
			continue
		}
		switch kind {
		case types.KindBlob:
			st.BlobCount++
			st.UncompressedBlobBytes += int64(len(body))
		case types.KindTree:
			st.TreeCount++
		case types.KindCommit:
			st.CommitCount++
		}
	}
	return st, nil
}
