package merkle

import "fmt"

// InclusionProof shows that one leaf is committed to by Root.
type InclusionProof struct {
	LeafPath string      `json:"leaf_path"`
	LeafHash string      `json:"leaf_hash"`
	Root     string      `json:"merkle_root"`
	Path     []ProofStep `json:"proof_path"`
}

type ProofStep struct {
	Side        string `json:"side"` // "L" or "R"
	SiblingHash string `json:"sibling_hash"`
}

// Prove returns the inclusion proof for the leaf at path.
func (t *Tree) Prove(path string) (*InclusionProof, error) {
	idx := -1
	for i, l := range t.Leaves {
		if l.Path == path {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLeaf, path)
	}

	proof := &InclusionProof{LeafPath: path, LeafHash: t.Leaves[idx].Hash, Root: t.Root}
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := idx ^ 1
		if sibling >= len(level) {
			sibling = idx
		}
		side := "R"
		if sibling < idx {
			side = "L"
		}
		proof.Path = append(proof.Path, ProofStep{Side: side, SiblingHash: level[sibling]})
		idx /= 2
	}
	return proof, nil
}

// Verify recomputes the root from the proof. A non-empty expectedRoot must also
// match the proof's root.
func (p InclusionProof) Verify(expectedRoot string) bool {
	if expectedRoot != "" && p.Root != expectedRoot {
		return false
	}
	current := p.LeafHash
	for _, step := range p.Path {
		if step.Side == "L" {
			current = nodeHash(step.SiblingHash, current)
		} else {
			current = nodeHash(current, step.SiblingHash)
		}
	}
	return current == p.Root
}
