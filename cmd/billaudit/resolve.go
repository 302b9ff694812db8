package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/logging"
	"github.com/gyeh/billaudit/internal/tier"
)

var resolveOpts struct {
	service string
	city    string
	tier    string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the standard price a service would be audited against",
	RunE:  runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&resolveOpts.service, "service", "", "Service name as billed (required)")
	f.StringVar(&resolveOpts.city, "city", "", "City of the hospital")
	f.StringVar(&resolveOpts.tier, "tier", "", "Force a pricing tier")
	_ = resolveCmd.MarkFlagRequired("service")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	resolver, err := newResolver()
	if err != nil {
		log.Error().Err(err).Msg("pricing configuration invalid")
		os.Exit(exitcode.UsageError)
	}
	var forced tier.CityTier
	if resolveOpts.tier != "" {
		if forced, err = tier.Parse(resolveOpts.tier); err != nil {
			log.Error().Err(err).Msg("invalid --tier")
			os.Exit(exitcode.UsageError)
		}
	}

	ledger := openLedger(context.Background(), log)
	defer ledger.Close()

	res := resolver.Lookup(resolveOpts.service, resolveOpts.city, forced, ledger.Snapshot())
	fmt.Printf("%s in %q: %.2f (source: %s, tier: %s)\n",
		resolveOpts.service, resolveOpts.city, res.Price, res.Source, resolver.TierLabel(res.Tier))
	return nil
}
