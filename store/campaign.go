package store

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/MixinNetwork/mixin/common"
	"github.com/dgraph-io/badger/v3"
	"github.com/mintgate/mintd/presale"
)

type pricingPayload struct {
	Base      []byte
	Increment []byte
}

type campaignPayload struct {
	Id            uint64
	StartsAt      time.Time
	EndsAt        time.Time
	MaxSupply     uint64
	MaxPerAddress uint64
	Pricing       map[int]*pricingPayload
	AllowListRoot []byte
	TotalMinted   uint64
	Active        bool
	CreatedAt     time.Time
}

func encodeCampaign(c *presale.Campaign) *campaignPayload {
	p := &campaignPayload{
		Id:            c.Id,
		StartsAt:      c.StartsAt,
		EndsAt:        c.EndsAt,
		MaxSupply:     c.MaxSupply,
		MaxPerAddress: c.MaxPerAddress,
		Pricing:       make(map[int]*pricingPayload, len(c.Pricing)),
		AllowListRoot: c.AllowListRoot[:],
		TotalMinted:   c.TotalMinted,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
	}
	for d, pr := range c.Pricing {
		p.Pricing[int(d)] = &pricingPayload{
			Base:      bigBytes(pr.Base),
			Increment: bigBytes(pr.Increment),
		}
	}
	return p
}

func decodeCampaign(p *campaignPayload) *presale.Campaign {
	c := &presale.Campaign{
		Id:            p.Id,
		StartsAt:      p.StartsAt,
		EndsAt:        p.EndsAt,
		MaxSupply:     p.MaxSupply,
		MaxPerAddress: p.MaxPerAddress,
		Pricing:       make(map[presale.Denomination]*presale.Pricing, len(p.Pricing)),
		TotalMinted:   p.TotalMinted,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
	}
	copy(c.AllowListRoot[:], p.AllowListRoot)
	for d, pr := range p.Pricing {
		c.Pricing[presale.Denomination(d)] = &presale.Pricing{
			Base:      new(big.Int).SetBytes(pr.Base),
			Increment: new(big.Int).SetBytes(pr.Increment),
		}
	}
	return c
}

func bigBytes(i *big.Int) []byte {
	if i == nil {
		return nil
	}
	return i.Bytes()
}

func (bs *BadgerStore) AllocateCampaignId() (uint64, error) {
	var id uint64
	err := bs.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyCampaignCounter)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			id = 1
		} else if err != nil {
			return err
		} else {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id = binary.BigEndian.Uint64(val) + 1
		}
		return txn.Set(key, binary.BigEndian.AppendUint64(nil, id))
	})
	return id, err
}

func (bs *BadgerStore) WriteCampaign(c *presale.Campaign) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return writeCampaign(txn, c)
	})
}

func (bs *BadgerStore) ReadCampaign(id uint64) (*presale.Campaign, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return readCampaign(txn, id)
}

func (bs *BadgerStore) ListCampaigns() ([]*presale.Campaign, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixCampaignPayload)
	it := txn.NewIterator(opts)
	defer it.Close()

	var campaigns []*presale.Campaign
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var p campaignPayload
		err = common.MsgpackUnmarshal(val, &p)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, decodeCampaign(&p))
	}
	return campaigns, nil
}

func writeCampaign(txn *badger.Txn, c *presale.Campaign) error {
	val := common.MsgpackMarshalPanic(encodeCampaign(c))
	return txn.Set(buildCampaignKey(c.Id), val)
}

func readCampaign(txn *badger.Txn, id uint64) (*presale.Campaign, error) {
	item, err := txn.Get(buildCampaignKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var p campaignPayload
	err = common.MsgpackUnmarshal(val, &p)
	if err != nil {
		return nil, err
	}
	return decodeCampaign(&p), nil
}

func buildCampaignKey(id uint64) []byte {
	key := []byte(prefixCampaignPayload)
	return binary.BigEndian.AppendUint64(key, id)
}
