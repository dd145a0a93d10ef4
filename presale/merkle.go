package presale

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLeaf hashes an address into its allow-list leaf.
func AddressLeaf(addr common.Address) [32]byte {
	var leaf [32]byte
	copy(leaf[:], crypto.Keccak256(addr.Bytes()))
	return leaf
}

// VerifyAllowList walks a sibling proof from the address leaf up to root.
// Pairs are hashed in ascending byte order rather than positional order, so
// the proof carries no left/right flags and generation and verification
// always agree.
func VerifyAllowList(root [32]byte, addr common.Address, proof [][32]byte) bool {
	node := AddressLeaf(addr)
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var h [32]byte
	copy(h[:], crypto.Keccak256(a[:], b[:]))
	return h
}

// AllowList builds the full tree for a membership set, for operators rotating
// campaign roots and for generating proofs handed to callers.
type AllowList struct {
	levels [][][32]byte
	index  map[common.Address]int
}

func BuildAllowList(members []common.Address) *AllowList {
	al := &AllowList{index: make(map[common.Address]int)}
	leaves := make([][32]byte, len(members))
	for i, m := range members {
		leaves[i] = AddressLeaf(m)
		al.index[m] = i
	}
	al.levels = append(al.levels, leaves)
	for level := leaves; len(level) > 1; {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// odd node is promoted unchanged
				next = append(next, level[i])
			} else {
				next = append(next, hashPair(level[i], level[i+1]))
			}
		}
		al.levels = append(al.levels, next)
		level = next
	}
	return al
}

func (al *AllowList) Root() [32]byte {
	top := al.levels[len(al.levels)-1]
	if len(top) == 0 {
		return [32]byte{}
	}
	return top[0]
}

// Proof returns the sibling path for a member, or false for an outsider.
func (al *AllowList) Proof(addr common.Address) ([][32]byte, bool) {
	pos, found := al.index[addr]
	if !found {
		return nil, false
	}
	var proof [][32]byte
	for _, level := range al.levels[:len(al.levels)-1] {
		sibling := pos ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		pos >>= 1
	}
	return proof, true
}
