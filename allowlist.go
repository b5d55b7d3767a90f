package deedmarket

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MembershipVerifier checks inclusion of a member address in the allow-list
// commitment. Pluggable so core logic is testable without real proofs.
type MembershipVerifier interface {
	Verify(proof []common.Hash, root common.Hash, member common.Address) bool
}

// MerkleVerifier verifies keccak256 sorted-pair merkle proofs with
// leaf = keccak256(member address bytes).
type MerkleVerifier struct{}

func (MerkleVerifier) Verify(proof []common.Hash, root common.Hash, member common.Address) bool {
	node := crypto.Keccak256Hash(member.Bytes())
	for _, sib := range proof {
		node = hashPair(node, sib)
	}
	return node == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return crypto.Keccak256Hash(a[:], b[:])
	}
	return crypto.Keccak256Hash(b[:], a[:])
}

// AllowTree builds the full sorted-pair tree over a member set. Used by admin
// tooling to publish a root and issue proofs, and by tests.
type AllowTree struct {
	levels [][]common.Hash // levels[0] = sorted leaves
}

func NewAllowTree(members []common.Address) *AllowTree {
	leaves := make([]common.Hash, 0, len(members))
	for _, m := range members {
		leaves = append(leaves, crypto.Keccak256Hash(m.Bytes()))
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i][:], leaves[j][:]) < 0
	})

	levels := [][]common.Hash{leaves}
	for cur := leaves; len(cur) > 1; {
		next := make([]common.Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 == len(cur) {
				// odd node is promoted unchanged
				next = append(next, cur[i])
				continue
			}
			next = append(next, hashPair(cur[i], cur[i+1]))
		}
		levels = append(levels, next)
		cur = next
	}
	return &AllowTree{levels: levels}
}

func (t *AllowTree) Root() common.Hash {
	if len(t.levels) == 0 || len(t.levels[0]) == 0 {
		return common.Hash{}
	}
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for member, or false if member is not a leaf.
func (t *AllowTree) Proof(member common.Address) ([]common.Hash, bool) {
	if len(t.levels) == 0 {
		return nil, false
	}
	leaf := crypto.Keccak256Hash(member.Bytes())
	idx := -1
	for i, l := range t.levels[0] {
		if l == leaf {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	proof := make([]common.Hash, 0, len(t.levels))
	for _, level := range t.levels[:len(t.levels)-1] {
		sib := idx ^ 1
		if sib < len(level) {
			proof = append(proof, level[sib])
		}
		idx /= 2
	}
	return proof, true
}

// SetAllowRoot replaces the allow-list commitment. Effective immediately:
// proofs built against the previous root fail from the next call on.
func (s *Deedmarket) SetAllowRoot(root common.Hash) error {
	s.stateLocker.Lock()
	defer s.stateLocker.Unlock()

	if err := s.store.SaveAllowRoot(root); err != nil {
		log.Error("s.store.SaveAllowRoot(root)", "err", err, "root", root.Hex())
		return err
	}
	// audit trail only; the bolt record is authoritative
	if err := s.wdb.InsertRootRecord(root.Hex()); err != nil {
		log.Error("s.wdb.InsertRootRecord(root)", "err", err, "root", root.Hex())
	}
	return nil
}

func (s *Deedmarket) AllowRoot() common.Hash {
	return s.store.LoadAllowRoot()
}

// IsAllowed checks proof against the root current at call time.
func (s *Deedmarket) IsAllowed(proof []common.Hash, member common.Address) bool {
	return s.verifier.Verify(proof, s.store.LoadAllowRoot(), member)
}
