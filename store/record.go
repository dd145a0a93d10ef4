package store

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/MixinNetwork/mixin/common"
	"github.com/dgraph-io/badger/v3"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/mintgate/mintd/presale"
)

type mintRecordPayload struct {
	Id           string
	Campaign     uint64
	Caller       []byte
	TokenIds     []uint64
	Quantity     uint64
	Price        []byte
	Denomination int
	CreatedAt    time.Time
}

func encodeMintRecord(rec *presale.MintRecord) *mintRecordPayload {
	return &mintRecordPayload{
		Id:           rec.Id,
		Campaign:     rec.Campaign,
		Caller:       rec.Caller.Bytes(),
		TokenIds:     rec.TokenIds,
		Quantity:     rec.Quantity,
		Price:        bigBytes(rec.Price),
		Denomination: int(rec.Denomination),
		CreatedAt:    rec.CreatedAt,
	}
}

func decodeMintRecord(p *mintRecordPayload) *presale.MintRecord {
	return &presale.MintRecord{
		Id:           p.Id,
		Campaign:     p.Campaign,
		Caller:       ethcommon.BytesToAddress(p.Caller),
		TokenIds:     p.TokenIds,
		Quantity:     p.Quantity,
		Price:        new(big.Int).SetBytes(p.Price),
		Denomination: presale.Denomination(p.Denomination),
		CreatedAt:    p.CreatedAt,
	}
}

func writeMintRecord(txn *badger.Txn, rec *presale.MintRecord) error {
	key := []byte(prefixMintPayload + rec.Id)
	val := common.MsgpackMarshalPanic(encodeMintRecord(rec))
	err := txn.Set(key, val)
	if err != nil {
		return err
	}
	return txn.Set(buildMintTimedKey(rec), []byte{1})
}

func (bs *BadgerStore) ReadMintRecord(id string) (*presale.MintRecord, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return readMintRecord(txn, id)
}

// ListMintRecords returns the most recent records first.
func (bs *BadgerStore) ListMintRecords(limit int) ([]*presale.MintRecord, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefixMintTimed)
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := append([]byte(prefixMintTimed), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	var recs []*presale.MintRecord
	for it.Seek(seek); it.Valid(); it.Next() {
		key := it.Item().Key()
		id := string(key[len(opts.Prefix)+8:])
		rec, err := readMintRecord(txn, id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
		if len(recs) == limit {
			break
		}
	}
	return recs, nil
}

func readMintRecord(txn *badger.Txn, id string) (*presale.MintRecord, error) {
	item, err := txn.Get([]byte(prefixMintPayload + id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var p mintRecordPayload
	err = common.MsgpackUnmarshal(val, &p)
	if err != nil {
		return nil, err
	}
	return decodeMintRecord(&p), nil
}

func buildMintTimedKey(rec *presale.MintRecord) []byte {
	buf := make([]byte, 8)
	ts := rec.CreatedAt.UnixNano()
	binary.BigEndian.PutUint64(buf, uint64(ts))
	key := append([]byte(prefixMintTimed), buf...)
	return append(key, []byte(rec.Id)...)
}
