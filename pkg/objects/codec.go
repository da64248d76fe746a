package objects

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"snapstore/pkg/types"
)

// ErrCorruptObject is returned when a stored object's header does not
// match its body, or a tree/commit body cannot be parsed.
type ErrCorruptObject struct {
	Hash   types.Hash
	Reason string
}

func (e *ErrCorruptObject) Error() string {
	return fmt.Sprintf("objects: corrupt object %s: %s", e.Hash, e.Reason)
}

// EncodeBlob returns the raw stored form of a blob: no header beyond the
// framing applied uniformly by the store in Put (see store.go); the blob
// body is the file bytes verbatim.
func EncodeBlob(content []byte) []byte {
	return content
}

// sortEntries orders tree entries per invariant I2: directory entries
// sort as though their name had a trailing "/" appended, so "foo" sorts
// before "foo-bar" but a directory named "foo" sorts where "foo/" would.
// This is the same convention used by Git tree objects and is load
// bearing for byte-identical tree hashes across implementations.
func sortEntries(entries []types.TreeEntry) []types.TreeEntry {
	sorted := make([]types.TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sortKey(sorted[i]) < sortKey(sorted[j])
	})
	return sorted
}

func sortKey(e types.TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// EncodeTree serializes tree entries into the wire form described in
// §4.1/§6: entries sorted per I2, then for each entry
// "<mode_octal> <name> <size_decimal>\0" followed by the 32 raw hash bytes.
func EncodeTree(entries []types.TreeEntry) ([]byte, error) {
	sorted := sortEntries(entries)
	var buf bytes.Buffer
	for _, e := range sorted {
		if strings.ContainsAny(e.Name, "\x00/\n") {
			return nil, fmt.Errorf("objects: invalid tree entry name %q", e.Name)
		}
		fmt.Fprintf(&buf, "%o %s %d\x00", e.Mode, e.Name, e.Size)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes(), nil
}

// DecodeTree parses the wire form produced by EncodeTree. It also accepts
// the legacy form that omits the size field and its leading space
// ("<mode_octal> <name>\0" + hash), treating the missing size as 0.
func DecodeTree(body []byte) ([]types.TreeEntry, error) {
	var entries []types.TreeEntry
	for len(body) > 0 {
		nul := bytes.IndexByte(body, 0)
		if nul < 0 {
			return nil, fmt.Errorf("objects: truncated tree entry header")
		}
		header := string(body[:nul])
		rest := body[nul+1:]
		if len(rest) < 32 {
			return nil, fmt.Errorf("objects: truncated tree entry hash")
		}
		var hash types.Hash
		copy(hash[:], rest[:32])
		body = rest[32:]

		// Names may themselves contain spaces, so the mode is split off
		// the front and the size (if present) off the back; whatever
		// remains in the middle is the name, verbatim.
		modeEnd := strings.IndexByte(header, ' ')
		if modeEnd < 0 {
			return nil, fmt.Errorf("objects: malformed tree entry header %q", header)
		}
		mode, err := strconv.ParseUint(header[:modeEnd], 8, 32)
		if err != nil {
			return nil, fmt.Errorf("objects: malformed tree entry mode %q: %w", header[:modeEnd], err)
		}
		nameAndSize := header[modeEnd+1:]

		var name string
		var size uint64
		if sizeStart := strings.LastIndexByte(nameAndSize, ' '); sizeStart >= 0 {
			if n, serr := strconv.ParseUint(nameAndSize[sizeStart+1:], 10, 64); serr == nil {
				name = nameAndSize[:sizeStart]
				size = n
			} else {
				// Legacy form: "<mode> <name>\0<hash>", size implied 0.
				name = nameAndSize
			}
		} else {
			name = nameAndSize
		}

		entries = append(entries, types.TreeEntry{
			Name: name,
			Mode: uint32(mode),
			Kind: types.EntryKindFromMode(uint32(mode)),
			Hash: hash,
			Size: size,
		})
	}
	return entries, nil
}

// EncodeCommit serializes a commit per §4.1: "tree <hash>\n", then zero
// or more "parent <hash>\n" lines, "author <string>\n",
// "timestamp <RFC3339>\n", a blank line, then the message verbatim.
func EncodeCommit(c types.Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "timestamp %s\n", c.Timestamp)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// DecodeCommit is the inverse of EncodeCommit.
func DecodeCommit(body []byte) (types.Commit, error) {
	var c types.Commit
	text := string(body)
	headerEnd := strings.Index(text, "\n\n")
	if headerEnd < 0 {
		return c, fmt.Errorf("objects: commit missing header/message separator")
	}
	header := text[:headerEnd]
	c.Message = text[headerEnd+2:]

	sawTree := false
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			return c, fmt.Errorf("objects: malformed commit header line %q", line)
		}
		key, value := parts[0], parts[1]
		switch key {
		case "tree":
			h, err := types.HashFromHex(value)
			if err != nil {
				return c, fmt.Errorf("objects: malformed commit tree hash: %w", err)
			}
			c.Tree = h
			sawTree = true
		case "parent":
			h, err := types.HashFromHex(value)
			if err != nil {
				return c, fmt.Errorf("objects: malformed commit parent hash: %w", err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			c.Author = value
		case "timestamp":
			c.Timestamp = value
		default:
			return c, fmt.Errorf("objects: unknown commit header key %q", key)
		}
	}
	if !sawTree {
		return c, fmt.Errorf("objects: commit missing tree header")
	}
	return c, nil
}
