// Package importer brings the trade database up to date with the market of the
// station the commander is docked at.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"edcompanion/internal/components/assert"
	"edcompanion/internal/components/prompt"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/normalize"
	"edcompanion/internal/profile"
	"edcompanion/internal/tradedb"
)

const (
	report_importer_normalize = "importer.normalize"
	report_importer_ships     = "importer.ships"
	report_importer_temp_file = "importer.temp-file"
)

var (
	ErrNoMarket = errors.New("this station does not appear to have a commodity market")
	ErrAborted  = errors.New("import aborted")
)

// TradeDB is everything the importer needs from the trade database.
type TradeDB interface {
	StationStore
	LookupShip(ctx context.Context, name string) (tradedb.Ship, error)
	AddShipVendor(ctx context.Context, ship tradedb.Ship, station tradedb.Station) error
	ShipVendors(ctx context.Context, station tradedb.Station) ([]string, error)
	PricesAt(ctx context.Context, system, station string) (map[string]tradedb.Price, error)
	ImportPrices(ctx context.Context, r io.Reader, opts tradedb.ImportOptions) (tradedb.ImportResult, error)
}

type Importer struct {
	db         TradeDB
	normalizer normalize.Normalizer
	prompt     prompt.Provider
	out        io.Writer
	tel        telemetry.API
}

func New(db TradeDB, normalizer normalize.Normalizer, provider prompt.Provider, out io.Writer, tel telemetry.API) Importer {
	assert.NotNil("trade db", db)
	assert.NotNil("prompt", provider)
	assert.NotNil("telemetry", tel)
	return Importer{
		db:         db,
		normalizer: normalizer,
		prompt:     provider,
		out:        out,
		tel:        telemetry.NewScopedAPI("importer", tel),
	}
}

type RunOptions struct {
	Profile profile.Profile
	// Yes skips the confirmation before importing.
	Yes bool
	// Defaults answers every station question with its default.
	Defaults      bool
	Ships         bool
	IgnoreUnknown bool
	Color         bool
	// KeepTemp leaves the generated price file behind.
	KeepTemp bool
	TempDir  string
}

type RunResult struct {
	Station     Reconciliation
	ShipsLinked int
	// Vendors is every ship the trade database now lists for the station.
	Vendors     []string
	Report      Report
	Import      tradedb.ImportResult
	TempFile    string
}

func (i Importer) linkShips(ctx context.Context, p profile.Profile, station tradedb.Station) (int, error) {
	names, err := i.normalizer.TradeShipNames(p.LastStarport.Ships.Names())
	if err != nil {
		return 0, err
	}
	linked := 0
	for _, name := range names {
		ship, err := i.db.LookupShip(ctx, name)
		if errors.Is(err, tradedb.ErrNotFound) {
			i.tel.ReportWarning(report_importer_ships, "ship not in trade database", name)
			continue
		}
		if err != nil {
			return linked, err
		}
		err = i.db.AddShipVendor(ctx, ship, station)
		if err != nil {
			return linked, err
		}
		linked++
	}
	return linked, nil
}

func (i Importer) confirm(ctx context.Context, changed int) error {
	answer, err := i.prompt.Ask(ctx, fmt.Sprintf("%d prices changed, type YES to import: ", changed))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	if strings.TrimSpace(answer) != "YES" {
		return ErrAborted
	}
	return nil
}

func (i Importer) writeTemp(dir, system, station string, commodities []normalize.Commodity) (string, error) {
	f, err := os.CreateTemp(dir, "edapi-*.prices")
	if err != nil {
		return "", err
	}
	err = WritePrices(f, system, station, commodities)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), f.Close()
}

// Run reconciles the station, links its shipyard, shows what changed and imports the market.
func (i Importer) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	p := opts.Profile
	err := p.CheckDocked()
	if err != nil {
		return RunResult{}, err
	}
	system, station := p.System(), p.Station()
	result := RunResult{}

	provider := i.prompt
	if opts.Defaults {
		provider = prompt.Defaults{}
	}
	result.Station, err = ReconcileStation(ctx, i.db, provider, i.tel, StationObservation{
		System:      system,
		Station:     station,
		HasMarket:   p.HasMarket(),
		HasShipyard: p.HasShipyard(),
	})
	if err != nil {
		return result, err
	}
	switch {
	case result.Station.Added:
		fmt.Fprintf(i.out, "Added %s/%s to the trade database.\n", system, station)
	case result.Station.Updated:
		fmt.Fprintf(i.out, "Updated %s/%s in the trade database.\n", system, station)
	}

	if opts.Ships && p.HasShipyard() {
		result.ShipsLinked, err = i.linkShips(ctx, p, result.Station.Station)
		if err != nil {
			return result, err
		}
		fmt.Fprintf(i.out, "Updated %d ships in the %s/%s shipyard.\n", result.ShipsLinked, system, station)
		result.Vendors, err = i.db.ShipVendors(ctx, result.Station.Station)
		if err != nil {
			return result, err
		}
		fmt.Fprintf(i.out, "Ships sold here: %s\n", strings.Join(result.Vendors, ", "))
	}

	if !p.HasMarket() {
		return result, ErrNoMarket
	}

	commodities, err := i.normalizer.Commodities(p.Commodities())
	if err != nil {
		i.tel.ReportWarning(report_importer_normalize, err)
	}

	old, err := i.db.PricesAt(ctx, system, station)
	if err != nil {
		return result, err
	}
	result.Report = Diff(old, commodities)
	RenderReport(i.out, result.Report, opts.Color)

	if !opts.Yes {
		err = i.confirm(ctx, len(result.Report.Changed()))
		if err != nil {
			return result, err
		}
	}

	result.TempFile, err = i.writeTemp(opts.TempDir, system, station, commodities)
	if err != nil {
		return result, fmt.Errorf("write price file: %w", err)
	}
	if opts.KeepTemp {
		fmt.Fprintf(i.out, "Price file is: %s\n", result.TempFile)
	} else {
		defer func() {
			err := os.Remove(result.TempFile)
			if err != nil {
				i.tel.ReportWarning(report_importer_temp_file, err)
			}
		}()
	}

	f, err := os.Open(result.TempFile)
	if err != nil {
		return result, err
	}
	defer f.Close()

	result.Import, err = i.db.ImportPrices(ctx, f, tradedb.ImportOptions{IgnoreUnknown: opts.IgnoreUnknown})
	if err != nil {
		return result, fmt.Errorf("import prices: %w", err)
	}
	i.tel.ReportCount("importer.changed", int64(len(result.Report.Changed())))
	i.tel.ReportCount("importer.imported", int64(result.Import.Items))
	fmt.Fprintf(i.out, "Imported %d prices for %s/%s.\n", result.Import.Items, system, station)
	return result, nil
}
