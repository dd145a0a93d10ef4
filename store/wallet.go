package store

import (
	"encoding/binary"
	"math/big"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mintgate/mintd/presale"
)

func (bs *BadgerStore) ReadWalletCount(campaign uint64, wallet common.Address) (uint64, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return readWalletCount(txn, campaign, wallet)
}

func readWalletCount(txn *badger.Txn, campaign uint64, wallet common.Address) (uint64, error) {
	item, err := txn.Get(buildWalletCountKey(campaign, wallet))
	if err == badger.ErrKeyNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(val), nil
}

func writeWalletCount(txn *badger.Txn, campaign uint64, wallet common.Address, count uint64) error {
	val := binary.BigEndian.AppendUint64(nil, count)
	return txn.Set(buildWalletCountKey(campaign, wallet), val)
}

func buildWalletCountKey(campaign uint64, wallet common.Address) []byte {
	key := binary.BigEndian.AppendUint64([]byte(prefixWalletCount), campaign)
	return append(key, wallet.Bytes()...)
}

func (bs *BadgerStore) ReadFeeClaim(recipient common.Address, d presale.Denomination) (*big.Int, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return readFeeClaim(txn, recipient, d)
}

// ClearFeeClaim deletes and returns the accrued balance in one update.
func (bs *BadgerStore) ClearFeeClaim(recipient common.Address, d presale.Denomination) (*big.Int, error) {
	var claim *big.Int
	err := bs.db.Update(func(txn *badger.Txn) error {
		old, err := readFeeClaim(txn, recipient, d)
		if err != nil {
			return err
		}
		claim = old
		if old.Sign() == 0 {
			return nil
		}
		return txn.Delete(buildFeeClaimKey(recipient, d))
	})
	return claim, err
}

func (bs *BadgerStore) WriteFeeClaim(recipient common.Address, d presale.Denomination, amount *big.Int) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(buildFeeClaimKey(recipient, d), amount.Bytes())
	})
}

func readFeeClaim(txn *badger.Txn, recipient common.Address, d presale.Denomination) (*big.Int, error) {
	item, err := txn.Get(buildFeeClaimKey(recipient, d))
	if err == badger.ErrKeyNotFound {
		return new(big.Int), nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(val), nil
}

func accrueFeeClaim(txn *badger.Txn, fee *presale.FeeAccrual) error {
	old, err := readFeeClaim(txn, fee.Recipient, fee.Denomination)
	if err != nil {
		return err
	}
	old.Add(old, fee.Amount)
	return txn.Set(buildFeeClaimKey(fee.Recipient, fee.Denomination), old.Bytes())
}

func buildFeeClaimKey(recipient common.Address, d presale.Denomination) []byte {
	key := append([]byte(prefixFeeClaim), recipient.Bytes()...)
	return append(key, byte(d))
}
