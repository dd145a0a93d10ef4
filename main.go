package main

import (
	"context"
	"flag"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/mintgate/mintd/api"
	"github.com/mintgate/mintd/presale"
	"github.com/mintgate/mintd/store"
	"github.com/mintgate/mintd/token"
)

func main() {
	ctx := context.Background()

	bp := flag.String("d", "~/.mintgate/mintd/data", "database directory path")
	cp := flag.String("c", "~/.mintgate/mintd/config.toml", "configuration file path")
	flag.Parse()

	if strings.HasPrefix(*cp, "~/") {
		usr, _ := user.Current()
		*cp = filepath.Join(usr.HomeDir, (*cp)[2:])
	}
	conf, err := presale.Setup(*cp)
	if err != nil {
		panic(err)
	}

	if strings.HasPrefix(*bp, "~/") {
		usr, _ := user.Current()
		*bp = filepath.Join(usr.HomeDir, (*bp)[2:])
	}
	db, err := store.OpenBadger(ctx, *bp)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	uris, err := conf.RarityURIs()
	if err != nil {
		panic(err)
	}
	registry := token.NewRegistry(uris)
	registry.AuthorizeMinter(conf.EngineAccount())

	ledgers := map[presale.Denomination]presale.PaymentLedger{
		presale.DenominationNative:  token.NewNativeLedger(),
		presale.DenominationUtility: token.NewLedger("utility"),
		presale.DenominationStable:  token.NewLedger("stable"),
	}
	grants, err := conf.FundingGrants()
	if err != nil {
		panic(err)
	}
	for _, g := range grants {
		ledgers[g.Denomination].(*token.Ledger).Mint(g.Address, g.Amount)
	}

	fees, err := conf.FeeRecipients()
	if err != nil {
		panic(err)
	}
	engine, err := presale.BuildEngine(db, registry, ledgers, &presale.EngineConfig{
		Authority: conf.AuthorityAddress(),
		Account:   conf.EngineAccount(),
		Fees:      fees,
	})
	if err != nil {
		panic(err)
	}

	err = api.Serve(ctx, engine, conf.Engine.AdminToken, conf.API.Listen)
	if err != nil {
		panic(err)
	}
}
