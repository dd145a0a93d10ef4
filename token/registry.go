package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mintgate/mintd/presale"
)

// Registry is a reference asset registry. It owns token state exclusively;
// the engine only requests issuance through the presale.AssetRegistry
// interface and receives back token ids.
type Registry struct {
	mu       sync.Mutex
	uris     map[presale.Rarity]string
	minters  map[common.Address]bool
	next     uint64
	owners   map[uint64]common.Address
	rarities map[uint64]presale.Rarity
}

func NewRegistry(uris map[presale.Rarity]string) *Registry {
	return &Registry{
		uris:     uris,
		minters:  make(map[common.Address]bool),
		owners:   make(map[uint64]common.Address),
		rarities: make(map[uint64]presale.Rarity),
	}
}

func (r *Registry) AuthorizeMinter(minter common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minters[minter] = true
}

func (r *Registry) RevokeMinter(minter common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.minters, minter)
}

func (r *Registry) SetRarityURI(rarity presale.Rarity, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uris[rarity] = uri
}

func (r *Registry) IsRarityURIConfigured(rarity presale.Rarity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uris[rarity] != ""
}

// Issue creates one token per rarity for the recipient. All-or-nothing: an
// unauthorized minter or an unconfigured rarity URI fails the whole batch.
func (r *Registry) Issue(ctx context.Context, minter, recipient common.Address, rarities []presale.Rarity) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.minters[minter] {
		return nil, fmt.Errorf("unauthorized minter %s", minter)
	}
	for _, rarity := range rarities {
		if r.uris[rarity] == "" {
			return nil, fmt.Errorf("rarity %s has no metadata URI", rarity)
		}
	}

	ids := make([]uint64, len(rarities))
	for i, rarity := range rarities {
		r.next += 1
		r.owners[r.next] = recipient
		r.rarities[r.next] = rarity
		ids[i] = r.next
	}
	return ids, nil
}

func (r *Registry) OwnerOf(id uint64) (common.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, found := r.owners[id]
	return owner, found
}

func (r *Registry) RarityOf(id uint64) (presale.Rarity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rarity, found := r.rarities[id]
	return rarity, found
}

func (r *Registry) URI(id uint64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rarity, found := r.rarities[id]
	if !found {
		return "", false
	}
	return r.uris[rarity], true
}

// TokensOf enumerates a wallet's tokens in issuance order.
func (r *Registry) TokensOf(owner common.Address) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint64
	for id := uint64(1); id <= r.next; id++ {
		if r.owners[id] == owner {
			ids = append(ids, id)
		}
	}
	return ids
}

// TotalIssued is the count of all tokens ever issued.
func (r *Registry) TotalIssued() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
