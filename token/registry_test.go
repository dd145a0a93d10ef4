package token

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mintgate/mintd/presale"
	"github.com/stretchr/testify/require"
)

func TestRegistryIssue(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	r := NewRegistry(map[presale.Rarity]string{
		presale.RarityCommon: "ipfs://meta/common",
		presale.RarityRare:   "ipfs://meta/rare",
	})
	minter := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	// unauthorized minter
	_, err := r.Issue(ctx, minter, recipient, []presale.Rarity{presale.RarityCommon})
	require.NotNil(err)

	r.AuthorizeMinter(minter)
	ids, err := r.Issue(ctx, minter, recipient, []presale.Rarity{presale.RarityCommon, presale.RarityRare})
	require.Nil(err)
	require.Equal([]uint64{1, 2}, ids)

	owner, found := r.OwnerOf(1)
	require.True(found)
	require.Equal(recipient, owner)
	rarity, found := r.RarityOf(2)
	require.True(found)
	require.Equal(presale.RarityRare, rarity)
	uri, found := r.URI(1)
	require.True(found)
	require.Equal("ipfs://meta/common", uri)
	require.Equal([]uint64{1, 2}, r.TokensOf(recipient))

	// unconfigured rarity fails the whole batch
	_, err = r.Issue(ctx, minter, recipient, []presale.Rarity{presale.RarityCommon, presale.RarityEpic})
	require.NotNil(err)
	require.Equal(uint64(2), r.TotalIssued())

	r.RevokeMinter(minter)
	_, err = r.Issue(ctx, minter, recipient, []presale.Rarity{presale.RarityCommon})
	require.NotNil(err)

	require.False(r.IsRarityURIConfigured(presale.RarityEpic))
	r.SetRarityURI(presale.RarityEpic, "ipfs://meta/epic")
	require.True(r.IsRarityURIConfigured(presale.RarityEpic))
}
