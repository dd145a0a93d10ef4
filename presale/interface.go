package presale

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Store owns all orchestrator state: campaigns, the consumed-nonce set,
// per-wallet counts, fee-claim balances and mint records. Nothing outside the
// engine mutates it.
type Store interface {
	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)

	AllocateCampaignId() (uint64, error)
	WriteCampaign(c *Campaign) error
	ReadCampaign(id uint64) (*Campaign, error)
	ListCampaigns() ([]*Campaign, error)

	IsNonceUsed(key [32]byte) (bool, error)
	ConsumeNonce(key [32]byte) error

	ReadWalletCount(campaign uint64, wallet common.Address) (uint64, error)

	// ApplyMint commits one mint's effects as a unit: campaign total,
	// wallet count when restricted, fee-claim accruals and the record.
	ApplyMint(rec *MintRecord, restricted bool, fees []*FeeAccrual) error

	ReadFeeClaim(recipient common.Address, d Denomination) (*big.Int, error)
	ClearFeeClaim(recipient common.Address, d Denomination) (*big.Int, error)
	WriteFeeClaim(recipient common.Address, d Denomination, amount *big.Int) error

	ReadMintRecord(id string) (*MintRecord, error)
	ListMintRecords(limit int) ([]*MintRecord, error)
}

// AssetRegistry is the external collaborator that owns token state. The
// engine only requests issuance and receives back opaque token ids.
type AssetRegistry interface {
	Issue(ctx context.Context, minter, recipient common.Address, rarities []Rarity) ([]uint64, error)
}

// PaymentLedger is the fungible collaborator for one denomination. The native
// ledger implements the same surface with attached-value semantics.
type PaymentLedger interface {
	BalanceOf(addr common.Address) (*big.Int, error)
	Allowance(owner, spender common.Address) (*big.Int, error)
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
	Transfer(from, to common.Address, amount *big.Int) error
}

// TimeSource lets tests drive campaign windows; the daemon uses the
// store-backed Clock.
type TimeSource interface {
	Now() time.Time
}

// MintRecord is emitted for every accepted mint.
type MintRecord struct {
	Id           string
	Campaign     uint64
	Caller       common.Address
	TokenIds     []uint64
	Quantity     uint64
	Price        *big.Int
	Denomination Denomination
	CreatedAt    time.Time
}

// FeeAccrual is one recipient's share of a collected payment, claimable
// through WithdrawFees.
type FeeAccrual struct {
	Recipient    common.Address
	Denomination Denomination
	Amount       *big.Int
}
