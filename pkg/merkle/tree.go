// Package merkle builds domain-separated Merkle trees over named evidence entries.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"
)

const (
	leafTag = "riskmate:evidence:leaf:v1"
	nodeTag = "riskmate:evidence:node:v1"
)

// ErrUnknownLeaf is returned when a proof is requested for a path not in the tree.
var ErrUnknownLeaf = errors.New("merkle: unknown leaf")

type Leaf struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// Tree is a binary hash tree. Leaves are sorted by path; an odd node at any level is
// paired with itself.
type Tree struct {
	Leaves []Leaf
	Root   string
	levels [][]string
}

// Build hashes each entry's RFC 8785 canonical JSON and builds the tree bottom-up.
// An empty map yields an empty Root.
func Build(entries map[string]any) (*Tree, error) {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	leaves := make([]Leaf, len(paths))
	for i, p := range paths {
		canonical, err := Canonical(entries[p])
		if err != nil {
			return nil, fmt.Errorf("leaf %s: %w", p, err)
		}
		leaves[i] = Leaf{Path: p, Hash: LeafHash(p, canonical)}
	}
	return fromLeaves(leaves), nil
}

func fromLeaves(leaves []Leaf) *Tree {
	t := &Tree{Leaves: leaves}
	if len(leaves) == 0 {
		return t
	}

	level := make([]string, len(leaves))
	for i, l := range leaves {
		level[i] = l.Hash
	}
	for len(level) > 1 {
		t.levels = append(t.levels, level)
		level = nextLevel(level)
	}
	t.levels = append(t.levels, level)
	t.Root = level[0]
	return t
}

// Canonical returns the JCS form of v.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// LeafHash is SHA-256 over the leaf tag, path and canonical bytes, NUL separated.
func LeafHash(path string, canonical []byte) string {
	var buf bytes.Buffer
	buf.WriteString(leafTag)
	buf.WriteByte(0)
	buf.WriteString(path)
	buf.WriteByte(0)
	buf.Write(canonical)
	return sha256Hex(buf.Bytes())
}

func nextLevel(hashes []string) []string {
	if len(hashes)%2 != 0 {
		hashes = append(hashes, hashes[len(hashes)-1])
	}
	out := make([]string, len(hashes)/2)
	for i := 0; i < len(hashes); i += 2 {
		out[i/2] = nodeHash(hashes[i], hashes[i+1])
	}
	return out
}

func nodeHash(left, right string) string {
	var buf bytes.Buffer
	buf.WriteString(nodeTag)
	buf.WriteByte(0)
	buf.Write(hexToBytes(left))
	buf.Write(hexToBytes(right))
	return sha256Hex(buf.Bytes())
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hexToBytes(s string) []byte {
	b, _ := hex.DecodeString(s)
	return b
}
