package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/eddn"
	"edcompanion/internal/normalize"
	"edcompanion/internal/profile"

	"github.com/spf13/cobra"
)

var eddnPlainUploader *bool

func init() {
	eddnPlainUploader = eddnCmd.Flags().Bool("plain-uploader", false, "Send the commander name as is instead of its hash.")
	rootCmd.AddCommand(eddnCmd)
}

var eddnCmd = &cobra.Command{
	Use:   "eddn [--plain-uploader]",
	Short: "Publishes the market, shipyard and outfitting of the station you are docked at to EDDN.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(cmd.Context())
		if err != nil {
			return err
		}
		normalizer, err := newNormalizer()
		if err != nil {
			return err
		}
		return publish(cmd.Context(), p, normalizer, *eddnPlainUploader)
	},
}

// publish posts every non-empty collection of the station, a failed post is
// reported and the remaining ones are still attempted.
func publish(ctx context.Context, p profile.Profile, normalizer normalize.Normalizer, plain bool) error {
	err := p.CheckDocked()
	if err != nil {
		return err
	}
	system, station := p.System(), p.Station()

	opts := eddn.Options{
		Gateways:        config.Eddn.Gateways,
		SoftwareName:    config.Eddn.SoftwareName,
		SoftwareVersion: version,
		Uploader:        p.Commander.Name,
		PlainUploader:   plain || config.Eddn.PlainUploader,
		Test:            config.Eddn.Test,
		Clock:           chrono.NewStandardImpl(),
	}
	if *debug {
		output, err := telemetry.NewFilesystemOutput(".dev/http/eddn")
		if err != nil {
			return err
		}
		opts.Output = output
	}
	publisher := eddn.NewPublisher(opts, tel)

	var failed []error
	report := func(err error) {
		if err != nil {
			fmt.Println("Failed:", err)
			failed = append(failed, err)
		}
	}

	if p.HasMarket() {
		commodities, err := normalizer.FeedCommodities(p.Commodities())
		if err != nil {
			tel.ReportWarning("eddn.normalize", err)
		}
		if len(commodities) > 0 {
			fmt.Println("Posting commodities to EDDN...")
			report(publisher.PublishCommodities(ctx, system, station, commodities))
		}
	}

	if p.HasShipyard() {
		ships, err := normalizer.FeedShipNames(p.LastStarport.Ships.Names())
		if err != nil {
			return err
		}
		sort.Strings(ships)
		if len(ships) > 0 {
			fmt.Println("Posting shipyard to EDDN...")
			report(publisher.PublishShipyard(ctx, system, station, ships))
		}
	}

	if p.HasOutfitting() {
		modules := normalizer.FeedModules(*p.LastStarport.Modules)
		if len(modules) > 0 {
			fmt.Println("Posting outfitting to EDDN...")
			report(publisher.PublishOutfitting(ctx, system, station, modules))
		}
	}

	return errors.Join(failed...)
}
