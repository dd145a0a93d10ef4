package store

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/mintgate/mintd/presale"
)

// ApplyMint commits every effect of an accepted mint in a single update:
// the campaign running total, the payer's wallet count on restricted
// campaigns, the fee-claim accruals and the mint record. The engine has
// already validated caps under its lock, so a violation here is an invariant
// break, not an error.
func (bs *BadgerStore) ApplyMint(rec *presale.MintRecord, restricted bool, fees []*presale.FeeAccrual) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		campaign, err := readCampaign(txn, rec.Campaign)
		if err != nil {
			return err
		}
		if campaign == nil {
			panic(rec.Campaign)
		}
		campaign.TotalMinted += rec.Quantity
		if campaign.TotalMinted > campaign.MaxSupply {
			panic(campaign.TotalMinted)
		}
		err = writeCampaign(txn, campaign)
		if err != nil {
			return err
		}

		if restricted {
			count, err := readWalletCount(txn, rec.Campaign, rec.Caller)
			if err != nil {
				return err
			}
			count += rec.Quantity
			if count > campaign.MaxPerAddress {
				panic(count)
			}
			err = writeWalletCount(txn, rec.Campaign, rec.Caller, count)
			if err != nil {
				return err
			}
		}

		for _, fee := range fees {
			err = accrueFeeClaim(txn, fee)
			if err != nil {
				return err
			}
		}

		return writeMintRecord(txn, rec)
	})
}
