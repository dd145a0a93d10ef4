package presale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"
)

type Configuration struct {
	Engine struct {
		Authority  string `toml:"authority"`
		Account    string `toml:"account"`
		AdminToken string `toml:"admin-token"`
	} `toml:"engine"`
	API struct {
		Listen string `toml:"listen"`
	} `toml:"api"`
	Fees     []FeeConfig       `toml:"fees"`
	Rarities map[string]string `toml:"rarities"`
	Funding  []FundingConfig   `toml:"funding"`
}

type FeeConfig struct {
	Name    string `toml:"name"`
	Address string `toml:"address"`
	Share   uint   `toml:"share"`
}

// FundingConfig seeds a reference ledger balance at boot. Amounts are human
// decimal strings scaled into base units.
type FundingConfig struct {
	Denomination string `toml:"denomination"`
	Address      string `toml:"address"`
	Amount       string `toml:"amount"`
	Decimals     int32  `toml:"decimals"`
}

func Setup(path string) (*Configuration, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Configuration
	err = tree.Unmarshal(&conf)
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(conf.Engine.Authority) {
		return nil, fmt.Errorf("invalid authority address %s", conf.Engine.Authority)
	}
	if !common.IsHexAddress(conf.Engine.Account) {
		return nil, fmt.Errorf("invalid engine account %s", conf.Engine.Account)
	}
	if _, err := conf.FeeRecipients(); err != nil {
		return nil, err
	}
	if _, err := conf.RarityURIs(); err != nil {
		return nil, err
	}
	if _, err := conf.FundingGrants(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (conf *Configuration) AuthorityAddress() common.Address {
	return common.HexToAddress(conf.Engine.Authority)
}

func (conf *Configuration) EngineAccount() common.Address {
	return common.HexToAddress(conf.Engine.Account)
}

func (conf *Configuration) FeeRecipients() ([]*FeeRecipient, error) {
	fees := make([]*FeeRecipient, len(conf.Fees))
	for i, f := range conf.Fees {
		if !common.IsHexAddress(f.Address) {
			return nil, fmt.Errorf("invalid fee recipient address %s", f.Address)
		}
		fees[i] = &FeeRecipient{
			Name:    f.Name,
			Address: common.HexToAddress(f.Address),
			Share:   f.Share,
		}
	}
	return fees, nil
}

func (conf *Configuration) RarityURIs() (map[Rarity]string, error) {
	uris := make(map[Rarity]string, len(conf.Rarities))
	for name, uri := range conf.Rarities {
		r, err := RarityFromString(name)
		if err != nil {
			return nil, err
		}
		uris[r] = uri
	}
	return uris, nil
}

type FundingGrant struct {
	Denomination Denomination
	Address      common.Address
	Amount       *big.Int
}

func (conf *Configuration) FundingGrants() ([]*FundingGrant, error) {
	grants := make([]*FundingGrant, len(conf.Funding))
	for i, f := range conf.Funding {
		d, err := DenominationFromString(f.Denomination)
		if err != nil {
			return nil, err
		}
		if !common.IsHexAddress(f.Address) {
			return nil, fmt.Errorf("invalid funding address %s", f.Address)
		}
		amt, err := decimal.NewFromString(f.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid funding amount %s", f.Amount)
		}
		scaled := amt.Shift(f.Decimals)
		if !scaled.Equal(scaled.Truncate(0)) {
			return nil, fmt.Errorf("funding amount %s not integral at %d decimals", f.Amount, f.Decimals)
		}
		grants[i] = &FundingGrant{
			Denomination: d,
			Address:      common.HexToAddress(f.Address),
			Amount:       scaled.BigInt(),
		}
	}
	return grants, nil
}
