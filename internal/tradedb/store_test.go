package tradedb

import (
	"context"
	"strings"
	"testing"
	"time"

	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// itemAt returns the full price row of an item at a station.
func itemAt(ctx context.Context, store Store, station Station, item string) (ItemPrice, error) {
	return store.Query.GetStationItem(ctx, station.ID, item)
}

func setup(t testing.TB) (Store, *telemetry.Recorder) {
	t.Helper()

	db, err := OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tel := &telemetry.Recorder{}
	clock := &chrono.Fake{Current: time.Date(3302, 4, 1, 12, 0, 0, 0, time.UTC)}
	store := NewStore(db, clock, tel)
	require.NoError(t, store.Init(context.Background()))
	return store, tel
}

func TestStations(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	_, err := store.LookupStation(ctx, "Sol", "Abraham Lincoln")
	require.ErrorIs(t, err, ErrNotFound)

	station := NewStation("Sol", "Abraham Lincoln")
	station.LsFromStar = 500
	station.Market = Yes
	added, err := store.AddStation(ctx, station)
	require.NoError(t, err)
	require.NotZero(t, added.ID)

	// the system already exists this time
	_, err = store.AddStation(ctx, NewStation("Sol", "Galileo"))
	require.NoError(t, err)

	found, err := store.LookupStation(ctx, "sol", "abraham lincoln")
	require.NoError(t, err)
	require.True(t, added.SameAttributes(found))
	require.Equal(t, "?", found.BlackMarket)

	found.BlackMarket = Yes
	found.MaxPadSize = "L"
	require.NoError(t, store.UpdateStation(ctx, found))

	updated, err := store.LookupStation(ctx, "Sol", "Abraham Lincoln")
	require.NoError(t, err)
	require.Equal(t, found, updated)
	require.False(t, added.SameAttributes(updated))

	missing := NewStation("Lave", "Lave Station")
	missing.ID = 999
	require.ErrorIs(t, store.UpdateStation(ctx, missing), ErrNotFound)

	bad := NewStation("Sol", "Daedalus")
	bad.MaxPadSize = "XL"
	_, err = store.AddStation(ctx, bad)
	require.Error(t, err)
}

func TestShips(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	_, err := store.LookupShip(ctx, "Cobra")
	require.ErrorIs(t, err, ErrNotFound)

	cobra, err := store.AddShip(ctx, "Cobra", 349720)
	require.NoError(t, err)
	sidewinder, err := store.AddShip(ctx, "Sidewinder", 32000)
	require.NoError(t, err)

	found, err := store.LookupShip(ctx, "cobra")
	require.NoError(t, err)
	require.Equal(t, cobra.ID, found.ID)

	station, err := store.AddStation(ctx, NewStation("Sol", "Abraham Lincoln"))
	require.NoError(t, err)

	require.NoError(t, store.AddShipVendor(ctx, cobra, station))
	require.NoError(t, store.AddShipVendor(ctx, sidewinder, station))
	require.NoError(t, store.AddShipVendor(ctx, cobra, station))

	vendors, err := store.ShipVendors(ctx, station)
	require.NoError(t, err)
	require.Equal(t, []string{"Cobra", "Sidewinder"}, vendors)
}

const priceFile = "@ Sol/Abraham Lincoln\n" +
	"\t+ Chemicals\n" +
	"\t\tHydrogen Fuel 95 99 ? 15000H\n" +
	"\t+ Legal Drugs\n" +
	"\t\tNarcotics 2905 0 12345M -\n" +
	"\t+ Metals\n" +
	"\t\tGold 9050 9100 1L 320L\n"

func TestImportPrices(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	station, err := store.AddStation(ctx, NewStation("Sol", "Abraham Lincoln"))
	require.NoError(t, err)

	result, err := store.ImportPrices(ctx, strings.NewReader(priceFile), ImportOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Stations)
	require.Equal(t, 3, result.Items)
	require.Equal(t, []string{"Hydrogen Fuel", "Narcotics", "Gold"}, result.Created)

	prices, err := store.PricesAt(ctx, "Sol", "Abraham Lincoln")
	require.NoError(t, err)
	expected := map[string]Price{
		"Hydrogen Fuel": {Sell: 95, Buy: 99},
		"Narcotics":     {Sell: 2905, Buy: 0},
		"Gold":          {Sell: 9050, Buy: 9100},
	}
	if diff := cmp.Diff(expected, prices); diff != "" {
		t.Fatal(diff)
	}

	hydrogen, err := itemAt(ctx, store, station, "Hydrogen Fuel")
	require.NoError(t, err)
	require.Equal(t, -1, hydrogen.DemandUnits)
	require.Equal(t, -1, hydrogen.DemandLevel)
	require.Equal(t, 15000, hydrogen.SupplyUnits)
	require.Equal(t, 3, hydrogen.SupplyLevel)

	narcotics, err := itemAt(ctx, store, station, "Narcotics")
	require.NoError(t, err)
	require.Equal(t, 12345, narcotics.DemandUnits)
	require.Equal(t, 2, narcotics.DemandLevel)
	require.Equal(t, 0, narcotics.SupplyUnits)

	// a second import replaces the station's prices
	_, err = store.ImportPrices(ctx, strings.NewReader(
		"@ Sol/Abraham Lincoln\n\t+ Metals\n\t\tGold 9000 9150 1L 300L\n",
	), ImportOptions{})
	require.NoError(t, err)

	prices, err = store.PricesAt(ctx, "Sol", "Abraham Lincoln")
	require.NoError(t, err)
	require.Equal(t, map[string]Price{"Gold": {Sell: 9000, Buy: 9150}}, prices)
}

func TestImportIgnoreUnknown(t *testing.T) {
	store, tel := setup(t)
	ctx := context.Background()

	_, err := store.AddStation(ctx, NewStation("Sol", "Abraham Lincoln"))
	require.NoError(t, err)
	_, err = store.ImportPrices(ctx, strings.NewReader(priceFile), ImportOptions{})
	require.NoError(t, err)

	result, err := store.ImportPrices(ctx, strings.NewReader(
		"@ Sol/Abraham Lincoln\n"+
			"\t+ Metals\n"+
			"\t\tGold 9000 9150 1L 300L\n"+
			"\t\tGolde 10 10 ? -\n",
	), ImportOptions{IgnoreUnknown: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Items)
	require.Equal(t, []string{"Golde"}, result.Skipped)

	warnings := tel.Find("warning", report_import_unknown_item)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Params, "Gold")

	suggestion, err := store.ClosestItem(ctx, "hydrogen fuels")
	require.NoError(t, err)
	require.Equal(t, "Hydrogen Fuel", suggestion)
}

func TestImportErrorsRollBack(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	_, err := store.AddStation(ctx, NewStation("Sol", "Abraham Lincoln"))
	require.NoError(t, err)
	_, err = store.ImportPrices(ctx, strings.NewReader(priceFile), ImportOptions{})
	require.NoError(t, err)

	cases := map[string]string{
		"unknown station": "@ Lave/Lave Station\n\t+ Metals\n\t\tGold 1 1 ? -\n",
		"bad quantity":    "@ Sol/Abraham Lincoln\n\t+ Metals\n\t\tGold 1 1 lots -\n",
		"no category":     "@ Sol/Abraham Lincoln\n\t\tGold 1 1 ? -\n",
		"no station":      "\t+ Metals\n",
		"garbage":         "@ Sol/Abraham Lincoln\n\t+ Metals\n\t\tGold\n",
	}
	for name, contents := range cases {
		_, err := store.ImportPrices(ctx, strings.NewReader(contents), ImportOptions{})
		var importErr *ImportError
		require.ErrorAs(t, err, &importErr, name)
	}

	_, err = store.ImportPrices(ctx, strings.NewReader(
		"@ Sol/Abraham Lincoln\n\t+ Metals\n\t\tGold 1 1 ? -\n@ Lave/Lave Station\n",
	), ImportOptions{})
	require.ErrorIs(t, err, ErrNotFound)

	// nothing from the failed imports made it in
	prices, err := store.PricesAt(ctx, "Sol", "Abraham Lincoln")
	require.NoError(t, err)
	require.Equal(t, Price{Sell: 9050, Buy: 9100}, prices["Gold"])
	require.Len(t, prices, 3)
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]quantity{
		"?":      {-1, -1},
		"-":      {0, 0},
		"15":     {15, -1},
		"15?":    {15, -1},
		"15L":    {15, 1},
		"15M":    {15, 2},
		"15000H": {15000, 3},
	}
	for token, expected := range cases {
		q, err := parseQuantity(token)
		require.NoError(t, err, token)
		require.Equal(t, expected, q, token)
	}
	_, err := parseQuantity("15X")
	require.Error(t, err)
}
