package importer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/prompt"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/normalize"
	"edcompanion/internal/profile"
	"edcompanion/internal/tradedb"

	"github.com/google/go-cmp/cmp"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) tradedb.Store {
	t.Helper()
	db, err := tradedb.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &chrono.Fake{Current: time.Date(3302, 4, 1, 12, 0, 0, 0, time.UTC)}
	store := tradedb.NewStore(db, clock, &telemetry.Recorder{})
	require.NoError(t, store.Init(context.Background()))
	return store
}

func newNormalizer(t *testing.T) normalize.Normalizer {
	t.Helper()
	tables, err := normalize.DefaultTables()
	require.NoError(t, err)
	n, err := normalize.NewNormalizer(tables, normalize.KeepSell, false, &telemetry.Recorder{})
	require.NoError(t, err)
	return n
}

func loadProfile(t *testing.T) profile.Profile {
	t.Helper()
	p, err := profile.Load("../profile/testdata/docked.json")
	require.NoError(t, err)
	return p
}

func TestReconcileStationDefaults(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()
	tel := &telemetry.Recorder{}
	obs := StationObservation{System: "Sol", Station: "Abraham Lincoln"}

	first, err := ReconcileStation(ctx, store, prompt.Defaults{}, tel, obs)
	require.NoError(t, err)
	require.True(t, first.Added)
	require.Equal(t, 0, first.Station.LsFromStar)
	require.Equal(t, tradedb.Unknown, first.Station.BlackMarket)
	require.Equal(t, tradedb.Unknown, first.Station.Market)

	// nothing new was observed so nothing is written
	second, err := ReconcileStation(ctx, store, prompt.Defaults{}, tel, obs)
	require.NoError(t, err)
	require.False(t, second.Added)
	require.False(t, second.Updated)
	require.Equal(t, first.Station.ID, second.Station.ID)

	obs.HasMarket = true
	third, err := ReconcileStation(ctx, store, prompt.Defaults{}, tel, obs)
	require.NoError(t, err)
	require.False(t, third.Added)
	require.True(t, third.Updated)
	require.Equal(t, first.Station.ID, third.Station.ID)
	require.Equal(t, tradedb.Yes, third.Station.Market)

	// absence of the market never downgrades it
	obs.HasMarket = false
	fourth, err := ReconcileStation(ctx, store, prompt.Defaults{}, tel, obs)
	require.NoError(t, err)
	require.False(t, fourth.Updated)
	require.Equal(t, tradedb.Yes, fourth.Station.Market)

	stations, err := store.Query.ListStations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 1)
}

func TestReconcileStationPrompts(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()
	tel := &telemetry.Recorder{}
	obs := StationObservation{System: "Sol", Station: "Abraham Lincoln", HasShipyard: true}

	answers := prompt.NewScripted("505", "y", "L", "", "Y", "n", "maybe")
	result, err := ReconcileStation(ctx, store, answers, tel, obs)
	require.NoError(t, err)
	require.True(t, result.Added)

	expected := tradedb.NewStation("Sol", "Abraham Lincoln")
	expected.ID = result.Station.ID
	expected.LsFromStar = 505
	expected.BlackMarket = tradedb.Yes
	expected.MaxPadSize = "L"
	expected.Rearm = tradedb.Yes
	expected.Refuel = tradedb.No
	expected.Shipyard = tradedb.Yes
	if diff := cmp.Diff(expected, result.Station); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, []string{
		"Distance from star (enter for 0): ",
		"Black market present (Y, N or enter for ?): ",
		"Max pad size (S, M, L or enter for ?): ",
		"Outfitting present (Y, N or enter for ?): ",
		"Rearm present (Y, N or enter for ?): ",
		"Refuel present (Y, N or enter for ?): ",
		"Repair present (Y, N or enter for ?): ",
	}, answers.Questions)
	require.Len(t, tel.Find("warning", "station.invalid-answer"), 1)

	// only the unknown attributes are asked again
	again := prompt.NewScripted("Y", "N")
	result, err = ReconcileStation(ctx, store, again, tel, obs)
	require.NoError(t, err)
	require.True(t, result.Updated)
	require.Equal(t, []string{
		"Update outfitting present (Y, N or enter for ?): ",
		"Update repair present (Y, N or enter for ?): ",
	}, again.Questions)
	require.Equal(t, tradedb.Yes, result.Station.Outfitting)
	require.Equal(t, tradedb.No, result.Station.Repair)
}

func TestDiff(t *testing.T) {
	old := map[string]tradedb.Price{
		"Gold":          {Sell: 9000, Buy: 9150},
		"Narcotics":     {Sell: 2905, Buy: 0},
		"Hydrogen Fuel": {Sell: 90, Buy: 99},
	}
	commodities := []normalize.Commodity{
		{Name: "Gold", SellPrice: 9050, BuyPrice: 9100, Demand: 1, DemandBracket: 1},
		{Name: "Narcotics", SellPrice: 2905, BuyPrice: 0, Demand: 10, DemandBracket: 2},
		{Name: "Hydrogen Fuel", SellPrice: 95, BuyPrice: 99},
		{Name: "Tea", SellPrice: 1500, BuyPrice: 1400, Demand: 5, DemandBracket: 3},
	}
	report := Diff(old, commodities)
	require.Len(t, report.Rows, 4)

	changed := report.Changed()
	names := []string{}
	for _, row := range changed {
		names = append(names, row.Name)
	}
	require.Equal(t, []string{"Gold", "Tea"}, names)

	gold := changed[0]
	require.Equal(t, 50, gold.DiffSell)
	require.Equal(t, -50, gold.DiffBuy)
	require.Equal(t, Favorable, gold.SellTrend())
	require.Equal(t, Favorable, gold.BuyTrend())

	tea := changed[1]
	require.Equal(t, 1500, tea.DiffSell)
	require.Equal(t, 1400, tea.DiffBuy)
	require.Equal(t, Unfavorable, tea.BuyTrend())

	// unknown demand means the sell price is not compared
	hydrogen := report.Rows[2]
	require.False(t, hydrogen.SellKnown)
	require.False(t, hydrogen.Changed())

	drop := Row{DiffSell: -1, DiffBuy: 0}
	require.Equal(t, Unfavorable, drop.SellTrend())
	require.Equal(t, Unchanged, drop.BuyTrend())
}

func TestWritePrices(t *testing.T) {
	commodities, err := newNormalizer(t).Commodities(loadProfile(t).Commodities())
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WritePrices(buf, "Sol", "Abraham Lincoln", commodities))

	expected := "@ Sol/Abraham Lincoln\n" +
		"\t+ Chemicals\n" +
		"\t\tHydrogen Fuel 95 99 ? 15000H\n" +
		"\t+ Legal Drugs\n" +
		"\t\tNarcotics 2905 0 12345M -\n" +
		"\t+ Metals\n" +
		"\t\tGold 9050 9100 1L 320L\n"
	require.Equal(t, expected, buf.String())
}

func TestRenderReport(t *testing.T) {
	report := Report{Rows: []Row{
		{Name: "Gold", Sell: 9050, Buy: 9100, DiffSell: -50, DiffBuy: 20, SellKnown: true},
		{Name: "Tea", Sell: 1500, Buy: 1400, SellKnown: true},
		{Name: "Hydrogen Fuel", Buy: 99, DiffBuy: -1},
	}}

	buf := &bytes.Buffer{}
	RenderReport(buf, report, false)
	out := buf.String()
	require.Contains(t, out, "Commodity")
	require.Contains(t, out, "9050 (-50)")
	require.Contains(t, out, "9100 (+20)")
	require.Contains(t, out, "99 (-1)")
	require.NotContains(t, out, "Tea")
	require.NotContains(t, out, "\x1b[")

	text.EnableColors()
	colored := &bytes.Buffer{}
	RenderReport(colored, report, true)
	require.Contains(t, colored.String(), "\x1b[")

	empty := &bytes.Buffer{}
	RenderReport(empty, Report{Rows: report.Rows[1:2]}, false)
	require.Empty(t, empty.String())
}

func newImporter(t *testing.T, store tradedb.Store, answers ...string) (Importer, *bytes.Buffer, *telemetry.Recorder) {
	t.Helper()
	out := &bytes.Buffer{}
	tel := &telemetry.Recorder{}
	return New(store, newNormalizer(t), prompt.NewScripted(answers...), out, tel), out, tel
}

func TestRun(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()
	for _, name := range []string{"Cobra", "Sidewinder"} {
		_, err := store.AddShip(ctx, name, 0)
		require.NoError(t, err)
	}

	imp, out, tel := newImporter(t, store)
	dir := t.TempDir()
	result, err := imp.Run(ctx, RunOptions{
		Profile:  loadProfile(t),
		Yes:      true,
		Defaults: true,
		Ships:    true,
		TempDir:  dir,
	})
	require.NoError(t, err)
	require.True(t, result.Station.Added)
	require.Equal(t, tradedb.Yes, result.Station.Station.Market)
	require.Equal(t, tradedb.Yes, result.Station.Station.Shipyard)
	require.Equal(t, 2, result.ShipsLinked)
	require.Equal(t, []string{"Cobra", "Sidewinder"}, result.Vendors)
	require.Contains(t, out.String(), "Ships sold here: Cobra, Sidewinder\n")
	require.Len(t, tel.Find("warning", "importer.ships"), 1)
	require.Equal(t, 3, result.Import.Items)
	require.Len(t, result.Report.Changed(), 3)
	require.Contains(t, out.String(), "Imported 3 prices")
	imported := tel.Find("count", "importer.imported")
	require.Len(t, imported, 1)
	require.Equal(t, []any{int64(3)}, imported[0].Params)

	// the price file is cleaned up
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	prices, err := store.PricesAt(ctx, "Sol", "Abraham Lincoln")
	require.NoError(t, err)
	require.Equal(t, tradedb.Price{Sell: 9050, Buy: 9100}, prices["Gold"])

	vendors, err := store.ShipVendors(ctx, result.Station.Station)
	require.NoError(t, err)
	require.Equal(t, []string{"Cobra", "Sidewinder"}, vendors)

	// a second run with the same market changes nothing
	again, _, _ := newImporter(t, store)
	result, err = again.Run(ctx, RunOptions{Profile: loadProfile(t), Yes: true, Defaults: true, TempDir: dir, KeepTemp: true})
	require.NoError(t, err)
	require.False(t, result.Station.Added)
	require.False(t, result.Station.Updated)
	require.Empty(t, result.Report.Changed())
	require.FileExists(t, filepath.Join(dir, filepath.Base(result.TempFile)))
}

func TestRunConfirmation(t *testing.T) {
	store := setupDB(t)
	ctx := context.Background()

	imp, _, _ := newImporter(t, store, "no")
	_, err := imp.Run(ctx, RunOptions{Profile: loadProfile(t), Defaults: true, TempDir: t.TempDir()})
	require.ErrorIs(t, err, ErrAborted)

	prices, err := store.PricesAt(ctx, "Sol", "Abraham Lincoln")
	require.NoError(t, err)
	require.Empty(t, prices)

	imp, _, _ = newImporter(t, store, "YES")
	result, err := imp.Run(ctx, RunOptions{Profile: loadProfile(t), Defaults: true, TempDir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, 3, result.Import.Items)
}

func TestRunNotDocked(t *testing.T) {
	store := setupDB(t)
	p := loadProfile(t)
	p.Commander.Docked = false

	imp, _, _ := newImporter(t, store)
	_, err := imp.Run(context.Background(), RunOptions{Profile: p, Yes: true, Defaults: true})
	require.ErrorIs(t, err, profile.ErrNotDocked)

	stations, err := store.Query.ListStations(context.Background())
	require.NoError(t, err)
	require.Empty(t, stations)
}

func TestRunNoMarket(t *testing.T) {
	store := setupDB(t)
	p, err := profile.Parse([]byte(`{
		"commander": {"name": "CMDR_X", "docked": true},
		"lastSystem": {"name": "Sol"},
		"lastStarport": {"name": "Abraham Lincoln"}
	}`))
	require.NoError(t, err)

	dir := t.TempDir()
	imp, _, _ := newImporter(t, store)
	result, err := imp.Run(context.Background(), RunOptions{Profile: p, Yes: true, Defaults: true, TempDir: dir})
	require.ErrorIs(t, err, ErrNoMarket)
	require.True(t, result.Station.Added)
	require.Equal(t, tradedb.Unknown, result.Station.Station.Market)
	require.Empty(t, result.TempFile)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Zero(t, result.Import.Items)
}
