package commands

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"edcompanion/internal/tradedb"

	"github.com/spf13/cobra"
)

func init() {
	dbCmd.AddCommand(dbInitCmd)
	rootCmd.AddCommand(dbCmd)
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manages the trade database.",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates the trade database schema and adds every known ship.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		normalizer, err := newNormalizer()
		if err != nil {
			return err
		}
		store, closeDB, err := openTradeDB(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		names := []string{}
		for _, name := range normalizer.Tables().TradeShipNames {
			names = append(names, name)
		}
		sort.Strings(names)
		names = slices.Compact(names)

		added := 0
		for _, name := range names {
			_, err := store.LookupShip(ctx, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, tradedb.ErrNotFound) {
				return err
			}
			_, err = store.AddShip(ctx, name, 0)
			if err != nil {
				return err
			}
			added++
		}
		fmt.Printf("Trade database is ready, added %d ships.\n", added)
		return nil
	},
}
