package store

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/mintgate/mintd/presale"
)

// The nonce set is a write-once one-bit witness. Keys arrive already
// normalized by presale.NonceKey; entries are never cleared.

func (bs *BadgerStore) IsNonceUsed(key [32]byte) (bool, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	_, err := txn.Get(buildNonceKey(key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (bs *BadgerStore) ConsumeNonce(key [32]byte) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		k := buildNonceKey(key)
		_, err := txn.Get(k)
		if err == nil {
			return presale.ErrNonceAlreadyUsed
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(k, []byte{1})
	})
}

func buildNonceKey(key [32]byte) []byte {
	return append([]byte(prefixNonce), key[:]...)
}
