package presale

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/uuid"
)

// FeeRecipient receives a fixed percentage share of every collected payment.
// Shares must sum to 100 and exactly one recipient is named treasury, which
// absorbs division remainders.
type FeeRecipient struct {
	Name    string
	Address common.Address
	Share   uint
}

const treasuryRecipientName = "treasury"

type EngineConfig struct {
	Authority common.Address
	Account   common.Address
	Fees      []*FeeRecipient
	Clock     TimeSource
}

// Engine orchestrates the mint flow over its store and collaborators. All
// mint attempts are serialized by the engine mutex, so the second-ordered of
// two concurrent requests sees the first's price impact.
type Engine struct {
	mu    sync.Mutex
	depth int32

	store    Store
	registry AssetRegistry
	ledgers  map[Denomination]PaymentLedger
	clock    TimeSource

	authority common.Address
	account   common.Address
	fees      []*FeeRecipient
	treasury  int
}

func BuildEngine(store Store, registry AssetRegistry, ledgers map[Denomination]PaymentLedger, conf *EngineConfig) (*Engine, error) {
	e := &Engine{
		store:     store,
		registry:  registry,
		ledgers:   ledgers,
		clock:     conf.Clock,
		authority: conf.Authority,
		account:   conf.Account,
	}
	if e.clock == nil {
		clock, err := NewClock(store)
		if err != nil {
			return nil, err
		}
		e.clock = clock
	}
	err := e.setFees(conf.Fees)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) setFees(fees []*FeeRecipient) error {
	var sum uint
	treasury := -1
	for i, f := range fees {
		sum += f.Share
		if f.Name == treasuryRecipientName {
			if treasury >= 0 {
				return fmt.Errorf("%w: duplicate treasury recipient", ErrInvalidFeeShares)
			}
			treasury = i
		}
	}
	if sum != 100 || treasury < 0 {
		return fmt.Errorf("%w: shares sum %d treasury %d", ErrInvalidFeeShares, sum, treasury)
	}
	e.fees = fees
	e.treasury = treasury
	return nil
}

// MintRequest is one caller-submitted mint attempt. Value is the attached
// native payment and ignored for token denominations.
type MintRequest struct {
	CampaignId   uint64
	Payer        common.Address
	Denomination Denomination
	Value        *big.Int
	Proof        [][32]byte
	Attestation  []byte
	Nonce        [32]byte
	Quantity     uint64
}

// BatchMint runs the full authorization pipeline. The nonce is consumed as
// the first state mutation, before payment and cap checks, so a failed
// attempt still burns it and a retry needs a fresh nonce and attestation.
func (e *Engine) BatchMint(ctx context.Context, req *MintRequest) (*MintRecord, error) {
	// a transfer or issuance callback must not re-enter the pipeline
	if atomic.LoadInt32(&e.depth) != 0 {
		return nil, ErrReentrantCall
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.store.ReadCampaign(req.CampaignId)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCampaign, req.CampaignId)
	}
	now := e.clock.Now()
	if !campaign.IsActive(now) {
		return nil, fmt.Errorf("%w: %d", ErrCampaignInactive, campaign.Id)
	}
	if campaign.Restricted() && !VerifyAllowList(campaign.AllowListRoot, req.Payer, req.Proof) {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, req.Payer)
	}

	err = e.store.ConsumeNonce(NonceKey(req.Nonce))
	if err != nil {
		return nil, err
	}

	if req.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity %d", ErrQuantityMismatch, req.Quantity)
	}
	att, err := VerifyAttestation(req.Payer, req.Nonce, int(req.Quantity), req.Attestation)
	if err != nil {
		return nil, err
	}
	if att.Signer != e.authority {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedSigner, att.Signer)
	}
	if uint64(len(att.Rarities)) != req.Quantity {
		return nil, fmt.Errorf("%w: %d rarities for quantity %d", ErrQuantityMismatch, len(att.Rarities), req.Quantity)
	}

	price, err := campaign.BatchPrice(req.Denomination, req.Quantity)
	if err != nil {
		return nil, err
	}
	ledger := e.ledgers[req.Denomination]
	if ledger == nil {
		return nil, fmt.Errorf("%w: %s", ErrDenominationDisabled, req.Denomination)
	}
	collect := price
	if req.Denomination == DenominationNative {
		if req.Value == nil || req.Value.Cmp(price) < 0 {
			return nil, fmt.Errorf("%w: value %s price %s", ErrInsufficientPayment, req.Value, price)
		}
		collect = req.Value
	} else {
		balance, err := ledger.BalanceOf(req.Payer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentTransferFailed, err)
		}
		allowance, err := ledger.Allowance(req.Payer, e.account)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentTransferFailed, err)
		}
		if balance.Cmp(price) < 0 || allowance.Cmp(price) < 0 {
			return nil, fmt.Errorf("%w: balance %s allowance %s price %s", ErrInsufficientPayment, balance, allowance, price)
		}
	}

	if campaign.TotalMinted+req.Quantity > campaign.MaxSupply {
		return nil, fmt.Errorf("%w: %d+%d > %d", ErrExceedsPresaleSupply, campaign.TotalMinted, req.Quantity, campaign.MaxSupply)
	}
	if campaign.Restricted() {
		count, err := e.store.ReadWalletCount(campaign.Id, req.Payer)
		if err != nil {
			return nil, err
		}
		if count+req.Quantity > campaign.MaxPerAddress {
			return nil, fmt.Errorf("%w: %d+%d > %d", ErrExceedsMaxPerAddress, count, req.Quantity, campaign.MaxPerAddress)
		}
	}

	atomic.StoreInt32(&e.depth, 1)
	defer atomic.StoreInt32(&e.depth, 0)

	err = ledger.TransferFrom(e.account, req.Payer, e.account, collect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentTransferFailed, err)
	}
	tokenIds, err := e.registry.Issue(ctx, e.account, req.Payer, att.Rarities)
	if err != nil {
		rerr := ledger.Transfer(e.account, req.Payer, collect)
		if rerr != nil {
			panic(rerr)
		}
		return nil, err
	}

	rec := &MintRecord{
		Id:           uuid.Must(uuid.NewV4()).String(),
		Campaign:     campaign.Id,
		Caller:       req.Payer,
		TokenIds:     tokenIds,
		Quantity:     req.Quantity,
		Price:        price,
		Denomination: req.Denomination,
		CreatedAt:    now,
	}
	err = e.store.ApplyMint(rec, campaign.Restricted(), e.splitFees(req.Denomination, collect))
	if err != nil {
		panic(err)
	}
	logger.Printf("BatchMint(%d, %s) => %d tokens for %s %s\n", campaign.Id, req.Payer, len(tokenIds), price, req.Denomination)
	return rec, nil
}

func (e *Engine) splitFees(d Denomination, total *big.Int) []*FeeAccrual {
	hundred := big.NewInt(100)
	accruals := make([]*FeeAccrual, len(e.fees))
	assigned := new(big.Int)
	for i, f := range e.fees {
		amount := new(big.Int).Mul(total, new(big.Int).SetUint64(uint64(f.Share)))
		amount.Div(amount, hundred)
		accruals[i] = &FeeAccrual{
			Recipient:    f.Address,
			Denomination: d,
			Amount:       amount,
		}
		assigned.Add(assigned, amount)
	}
	if remainder := new(big.Int).Sub(total, assigned); remainder.Sign() > 0 {
		t := accruals[e.treasury]
		t.Amount.Add(t.Amount, remainder)
	}
	return accruals
}

// WithdrawFees moves a recipient's accrued share out through the ledger, the
// pull half of fee distribution.
func (e *Engine) WithdrawFees(recipient common.Address, d Denomination) (*big.Int, error) {
	if atomic.LoadInt32(&e.depth) != 0 {
		return nil, ErrReentrantCall
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ledger := e.ledgers[d]
	if ledger == nil {
		return nil, fmt.Errorf("%w: %s", ErrDenominationDisabled, d)
	}
	claim, err := e.store.ClearFeeClaim(recipient, d)
	if err != nil {
		return nil, err
	}
	if claim.Sign() == 0 {
		return claim, nil
	}
	atomic.StoreInt32(&e.depth, 1)
	defer atomic.StoreInt32(&e.depth, 0)
	err = ledger.Transfer(e.account, recipient, claim)
	if err != nil {
		werr := e.store.WriteFeeClaim(recipient, d, claim)
		if werr != nil {
			panic(werr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentTransferFailed, err)
	}
	logger.Printf("WithdrawFees(%s, %s) => %s\n", recipient, d, claim)
	return claim, nil
}

func (e *Engine) CreateCampaign(params *CampaignParams) (*Campaign, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	err := params.validate(now)
	if err != nil {
		return nil, err
	}
	id, err := e.store.AllocateCampaignId()
	if err != nil {
		return nil, err
	}
	campaign := &Campaign{
		Id:            id,
		StartsAt:      params.StartsAt,
		EndsAt:        params.EndsAt,
		MaxSupply:     params.MaxSupply,
		MaxPerAddress: params.MaxPerAddress,
		Pricing:       params.Pricing,
		AllowListRoot: params.AllowListRoot,
		Active:        true,
		CreatedAt:     now,
	}
	err = e.store.WriteCampaign(campaign)
	if err != nil {
		return nil, err
	}
	logger.Printf("CreateCampaign(%d) window [%s, %s) supply %d\n", id, campaign.StartsAt, campaign.EndsAt, campaign.MaxSupply)
	return campaign, nil
}

func (e *Engine) readCampaign(id uint64) (*Campaign, error) {
	campaign, err := e.store.ReadCampaign(id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCampaign, id)
	}
	return campaign, nil
}

func (e *Engine) UpdateCampaignPricing(id uint64, pricing map[Denomination]*Pricing) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.readCampaign(id)
	if err != nil {
		return err
	}
	campaign.Pricing = pricing
	return e.store.WriteCampaign(campaign)
}

// UpdateCampaignWindow moves the campaign window. The start is immutable once
// the campaign has begun.
func (e *Engine) UpdateCampaignWindow(id uint64, startsAt, endsAt time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.readCampaign(id)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	if campaign.Begun(now) && !startsAt.Equal(campaign.StartsAt) {
		return fmt.Errorf("%w: %d began at %s", ErrWindowLocked, id, campaign.StartsAt)
	}
	if !endsAt.After(startsAt) {
		return fmt.Errorf("%w: start %s end %s", ErrInvalidWindow, startsAt, endsAt)
	}
	campaign.StartsAt = startsAt
	campaign.EndsAt = endsAt
	return e.store.WriteCampaign(campaign)
}

func (e *Engine) UpdateCampaignCaps(id, maxSupply, maxPerAddress uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.readCampaign(id)
	if err != nil {
		return err
	}
	if maxSupply < campaign.TotalMinted {
		return fmt.Errorf("%w: supply %d below minted %d", ErrExceedsPresaleSupply, maxSupply, campaign.TotalMinted)
	}
	campaign.MaxSupply = maxSupply
	campaign.MaxPerAddress = maxPerAddress
	return e.store.WriteCampaign(campaign)
}

func (e *Engine) SetAllowListRoot(id uint64, root [32]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.readCampaign(id)
	if err != nil {
		return err
	}
	campaign.AllowListRoot = root
	return e.store.WriteCampaign(campaign)
}

func (e *Engine) SetCampaignActive(id uint64, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.readCampaign(id)
	if err != nil {
		return err
	}
	campaign.Active = active
	return e.store.WriteCampaign(campaign)
}

// PauseAll clears the active flag on every campaign.
func (e *Engine) PauseAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaigns, err := e.store.ListCampaigns()
	if err != nil {
		return err
	}
	for _, campaign := range campaigns {
		campaign.Active = false
		err = e.store.WriteCampaign(campaign)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) RotateAuthority(authority common.Address) {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger.Printf("RotateAuthority(%s) => %s\n", e.authority, authority)
	e.authority = authority
}

func (e *Engine) SetFeeRecipients(fees []*FeeRecipient) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setFees(fees)
}

func (e *Engine) GetCampaign(id uint64) (*Campaign, error) {
	return e.readCampaign(id)
}

func (e *Engine) ListCampaigns() ([]*Campaign, error) {
	return e.store.ListCampaigns()
}

func (e *Engine) GetCurrentPrice(id uint64, d Denomination) (*big.Int, error) {
	campaign, err := e.readCampaign(id)
	if err != nil {
		return nil, err
	}
	return campaign.UnitPrice(d)
}

// IsEligible reports allow-list membership; unrestricted campaigns admit
// every caller.
func (e *Engine) IsEligible(id uint64, addr common.Address, proof [][32]byte) (bool, error) {
	campaign, err := e.readCampaign(id)
	if err != nil {
		return false, err
	}
	if !campaign.Restricted() {
		return true, nil
	}
	return VerifyAllowList(campaign.AllowListRoot, addr, proof), nil
}

func (e *Engine) IsNonceUsed(nonce [32]byte) (bool, error) {
	return e.store.IsNonceUsed(NonceKey(nonce))
}

func (e *Engine) ListMintRecords(limit int) ([]*MintRecord, error) {
	return e.store.ListMintRecords(limit)
}
