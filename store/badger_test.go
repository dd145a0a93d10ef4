package store

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mintgate/mintd/presale"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *BadgerStore {
	bs, err := OpenBadgerInMemory(context.Background())
	require.Nil(t, err)
	t.Cleanup(func() { bs.Close() })
	return bs
}

func TestProperty(t *testing.T) {
	require := require.New(t)
	bs := testStore(t)

	val, err := bs.ReadProperty([]byte("missing"))
	require.Nil(err)
	require.Nil(val)

	require.Nil(bs.WriteProperty([]byte("checkpoint"), []byte{1, 2, 3}))
	val, err = bs.ReadProperty([]byte("checkpoint"))
	require.Nil(err)
	require.Equal([]byte{1, 2, 3}, val)
}

func TestCampaignRoundtrip(t *testing.T) {
	require := require.New(t)
	bs := testStore(t)

	id, err := bs.AllocateCampaignId()
	require.Nil(err)
	require.Equal(uint64(1), id)
	id, err = bs.AllocateCampaignId()
	require.Nil(err)
	require.Equal(uint64(2), id)

	campaign := &presale.Campaign{
		Id:            id,
		StartsAt:      time.Unix(1700000000, 0),
		EndsAt:        time.Unix(1700086400, 0),
		MaxSupply:     500,
		MaxPerAddress: 5,
		Pricing: map[presale.Denomination]*presale.Pricing{
			presale.DenominationNative: {
				Base:      big.NewInt(1000000000000000),
				Increment: big.NewInt(50000000000000),
			},
			presale.DenominationStable: {
				Base:      big.NewInt(25000000),
				Increment: new(big.Int),
			},
		},
		AllowListRoot: [32]byte{7, 7, 7},
		TotalMinted:   13,
		Active:        true,
		CreatedAt:     time.Unix(1699999999, 0),
	}
	require.Nil(bs.WriteCampaign(campaign))

	read, err := bs.ReadCampaign(id)
	require.Nil(err)
	require.Equal(campaign.Id, read.Id)
	require.True(campaign.StartsAt.Equal(read.StartsAt))
	require.Equal(campaign.MaxSupply, read.MaxSupply)
	require.Equal(campaign.AllowListRoot, read.AllowListRoot)
	require.Equal(campaign.TotalMinted, read.TotalMinted)
	require.Equal(campaign.Pricing[presale.DenominationNative].Base, read.Pricing[presale.DenominationNative].Base)
	require.Equal(campaign.Pricing[presale.DenominationStable].Increment, read.Pricing[presale.DenominationStable].Increment)
	require.True(read.Restricted())

	missing, err := bs.ReadCampaign(99)
	require.Nil(err)
	require.Nil(missing)

	all, err := bs.ListCampaigns()
	require.Nil(err)
	require.Len(all, 1)
}

func TestNonceConsumeOnce(t *testing.T) {
	require := require.New(t)
	bs := testStore(t)

	key := [32]byte{1, 2, 3}
	used, err := bs.IsNonceUsed(key)
	require.Nil(err)
	require.False(used)

	require.Nil(bs.ConsumeNonce(key))
	used, err = bs.IsNonceUsed(key)
	require.Nil(err)
	require.True(used)

	require.ErrorIs(bs.ConsumeNonce(key), presale.ErrNonceAlreadyUsed)
}

func TestApplyMint(t *testing.T) {
	require := require.New(t)
	bs := testStore(t)

	id, err := bs.AllocateCampaignId()
	require.Nil(err)
	campaign := &presale.Campaign{
		Id:            id,
		StartsAt:      time.Unix(1700000000, 0),
		EndsAt:        time.Unix(1700086400, 0),
		MaxSupply:     10,
		MaxPerAddress: 5,
		AllowListRoot: [32]byte{1},
		Active:        true,
	}
	require.Nil(bs.WriteCampaign(campaign))

	caller := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	treasury := common.HexToAddress("0x00000000000000000000000000000000000000f6")
	rec := &presale.MintRecord{
		Id:           "3f2aa7cd-9d7a-4f1e-8c1a-2b6f0c7d9e11",
		Campaign:     id,
		Caller:       caller,
		TokenIds:     []uint64{1, 2},
		Quantity:     2,
		Price:        big.NewInt(210),
		Denomination: presale.DenominationNative,
		CreatedAt:    time.Unix(1700000100, 0),
	}
	fees := []*presale.FeeAccrual{
		{Recipient: treasury, Denomination: presale.DenominationNative, Amount: big.NewInt(210)},
	}
	require.Nil(bs.ApplyMint(rec, true, fees))

	read, err := bs.ReadCampaign(id)
	require.Nil(err)
	require.Equal(uint64(2), read.TotalMinted)

	count, err := bs.ReadWalletCount(id, caller)
	require.Nil(err)
	require.Equal(uint64(2), count)

	claim, err := bs.ReadFeeClaim(treasury, presale.DenominationNative)
	require.Nil(err)
	require.Equal(big.NewInt(210), claim)

	stored, err := bs.ReadMintRecord(rec.Id)
	require.Nil(err)
	require.Equal(rec.TokenIds, stored.TokenIds)
	require.Equal(rec.Price, stored.Price)
	require.Equal(rec.Denomination, stored.Denomination)

	// a second mint accrues on top
	rec2 := *rec
	rec2.Id = "5f0c9332-10b7-49c4-9f37-60e2f1c4b7aa"
	rec2.CreatedAt = rec.CreatedAt.Add(time.Second)
	require.Nil(bs.ApplyMint(&rec2, true, fees))

	claim, err = bs.ReadFeeClaim(treasury, presale.DenominationNative)
	require.Nil(err)
	require.Equal(big.NewInt(420), claim)

	recs, err := bs.ListMintRecords(10)
	require.Nil(err)
	require.Len(recs, 2)
	require.Equal(rec2.Id, recs[0].Id)

	recs, err = bs.ListMintRecords(1)
	require.Nil(err)
	require.Len(recs, 1)
}

func TestFeeClaimClear(t *testing.T) {
	require := require.New(t)
	bs := testStore(t)

	recipient := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	claim, err := bs.ClearFeeClaim(recipient, presale.DenominationUtility)
	require.Nil(err)
	require.Equal(int64(0), claim.Int64())

	require.Nil(bs.WriteFeeClaim(recipient, presale.DenominationUtility, big.NewInt(77)))
	claim, err = bs.ClearFeeClaim(recipient, presale.DenominationUtility)
	require.Nil(err)
	require.Equal(big.NewInt(77), claim)

	claim, err = bs.ReadFeeClaim(recipient, presale.DenominationUtility)
	require.Nil(err)
	require.Equal(int64(0), claim.Int64())
}
