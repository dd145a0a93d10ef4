package token

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestLedgerTransferFrom(t *testing.T) {
	require := require.New(t)

	l := NewLedger("utility")
	l.Mint(alice, big.NewInt(100))

	// spender needs an allowance
	err := l.TransferFrom(carol, alice, bob, big.NewInt(10))
	require.NotNil(err)

	l.Approve(alice, carol, big.NewInt(25))
	require.Nil(l.TransferFrom(carol, alice, bob, big.NewInt(10)))

	balance, err := l.BalanceOf(bob)
	require.Nil(err)
	require.Equal(big.NewInt(10), balance)

	allowance, err := l.Allowance(alice, carol)
	require.Nil(err)
	require.Equal(big.NewInt(15), allowance)

	// allowance exhausted
	err = l.TransferFrom(carol, alice, bob, big.NewInt(20))
	require.NotNil(err)

	// balance exhausted even with allowance
	l.Approve(alice, carol, big.NewInt(1000))
	err = l.TransferFrom(carol, alice, bob, big.NewInt(500))
	require.NotNil(err)
}

func TestNativeLedger(t *testing.T) {
	require := require.New(t)

	l := NewNativeLedger()
	l.Mint(alice, big.NewInt(100))

	// native transfers skip allowance bookkeeping
	require.Nil(l.TransferFrom(carol, alice, bob, big.NewInt(40)))

	allowance, err := l.Allowance(alice, carol)
	require.Nil(err)
	require.Equal(big.NewInt(60), allowance)

	require.Nil(l.Transfer(bob, carol, big.NewInt(40)))
	balance, err := l.BalanceOf(carol)
	require.Nil(err)
	require.Equal(big.NewInt(40), balance)

	err = l.Transfer(bob, carol, big.NewInt(1))
	require.NotNil(err)
}
