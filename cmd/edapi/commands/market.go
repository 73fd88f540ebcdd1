package commands

import (
	"os"

	"edcompanion/internal/importer"

	"github.com/spf13/cobra"
)

var (
	marketYes           *bool
	marketDefaults      *bool
	marketShips         *bool
	marketIgnoreUnknown *bool
	marketEddn          *bool
)

func init() {
	flags := marketCmd.Flags()
	marketYes = flags.Bool("yes", false, "Import without asking for confirmation.")
	marketDefaults = flags.Bool("defaults", false, "Answer every station question with its default.")
	marketShips = flags.Bool("ships", false, "Record the ships sold at this station.")
	marketIgnoreUnknown = flags.Bool("ignore-unknown", false, "Skip commodities the trade database does not know about.")
	marketEddn = flags.Bool("eddn", false, "Also publish the market, shipyard and outfitting to EDDN.")
	rootCmd.AddCommand(marketCmd)
}

var marketCmd = &cobra.Command{
	Use:   "market [--yes] [--defaults] [--ships] [--ignore-unknown] [--eddn]",
	Short: "Imports the market of the station you are docked at into the trade database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := loadProfile(ctx)
		if err != nil {
			return err
		}
		err = p.CheckDocked()
		if err != nil {
			return err
		}

		normalizer, err := newNormalizer()
		if err != nil {
			return err
		}
		store, closeDB, err := openTradeDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		imp := importer.New(store, normalizer, input, os.Stdout, tel)
		_, err = imp.Run(ctx, importer.RunOptions{
			Profile:       p,
			Yes:           *marketYes,
			Defaults:      *marketDefaults,
			Ships:         *marketShips,
			IgnoreUnknown: *marketIgnoreUnknown,
			Color:         colorEnabled(),
			KeepTemp:      *debug,
		})
		if err != nil {
			return err
		}

		if *marketEddn {
			return publish(ctx, p, normalizer, false)
		}
		return nil
	},
}
