package profile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) Profile {
	t.Helper()
	p, err := Load("testdata/docked.json")
	require.NoError(t, err)
	return p
}

func TestParseDocked(t *testing.T) {
	p := loadFixture(t)

	require.Equal(t, "CMDR_X", p.Commander.Name)
	require.Equal(t, int64(1234567), p.Commander.Credits)
	require.NoError(t, p.CheckDocked())
	require.Equal(t, "Sol", p.System())
	require.Equal(t, "Abraham Lincoln", p.Station())
	require.Equal(t, 216, p.Ship.Cargo.Capacity)
	require.Equal(t, 4, p.Commander.Rank["trade"])

	require.True(t, p.HasMarket())
	require.True(t, p.HasShipyard())
	require.True(t, p.HasOutfitting())
	require.Len(t, p.Commodities(), 5)

	names := p.LastStarport.Ships.Names()
	expected := []string{"CobraMkIII", "SideWinder", "Federation_Dropship_MkII"}
	if diff := cmp.Diff(expected, names); diff != "" {
		t.Fatal(diff)
	}

	modules := *p.LastStarport.Modules
	require.Len(t, modules, 6)
	require.Equal(t, "Hpt_PulseLaser_Fixed_Small", modules[0].Name)
	require.Nil(t, modules[0].Sku)
	require.NotNil(t, modules[2].Sku)
}

func TestParseEmptyArrays(t *testing.T) {
	body := []byte(`{
		"commander": {"name": "CMDR_Y", "docked": true},
		"lastSystem": {"name": "Lave"},
		"lastStarport": {
			"name": "Lave Station",
			"ships": {"shipyard_list": [], "unavailable_list": []},
			"modules": []
		}
	}`)
	p, err := Parse(body)
	require.NoError(t, err)
	require.False(t, p.HasMarket())
	require.Nil(t, p.Commodities())
	require.True(t, p.HasShipyard())
	require.Empty(t, p.LastStarport.Ships.Names())
	require.True(t, p.HasOutfitting())
	require.Empty(t, *p.LastStarport.Modules)
}

func TestNotDocked(t *testing.T) {
	p, err := Parse([]byte(`{"commander": {"name": "CMDR_Z", "docked": false}, "lastSystem": {"name": "Sol"}}`))
	require.NoError(t, err)
	require.ErrorIs(t, p.CheckDocked(), ErrNotDocked)
}

func TestParseError(t *testing.T) {
	for _, body := range []string{"<html>Password</html>", "{}", ""} {
		_, err := Parse([]byte(body))
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), body)
	}
}

func TestNumber(t *testing.T) {
	cases := []struct {
		raw   string
		value int
		ok    bool
	}{
		{`12`, 12, true},
		{`12.5`, 13, true},
		{`12.49`, 12, true},
		{`"9100"`, 9100, true},
		{`" 7.5 "`, 8, true},
		{`"n/a"`, 0, false},
		{`null`, 0, false},
		{`""`, 0, false},
		{`-5`, 0, false},
		{`"-0.7"`, 0, false},
		{`-0.2`, 0, true},
		{`1e30`, 0, false},
		{`"99999999999999999999"`, 0, false},
		{`9.3e18`, 0, false},
	}
	for _, c := range cases {
		var n Number
		require.NoError(t, n.UnmarshalJSON([]byte(c.raw)))
		value, ok := n.Int()
		require.Equal(t, c.ok, ok, c.raw)
		require.Equal(t, c.value, value, c.raw)
	}

	var missing Number
	require.False(t, missing.Present())
	_, ok := missing.Int()
	require.False(t, ok)
}

func TestWalk(t *testing.T) {
	p := loadFixture(t)

	node, err := p.Walk("lastStarport", "commodities", "2", "name")
	require.NoError(t, err)
	require.Equal(t, "Gold", node)

	node, err = p.Walk("commander")
	require.NoError(t, err)
	keys, ok := Keys(node)
	require.True(t, ok)
	require.Equal(t, []string{"credits", "debt", "docked", "name", "rank"}, keys)

	_, err = p.Walk("commander", "missing")
	var notFound *KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "missing", notFound.Key)
	parentKeys, ok := Keys(notFound.Parent)
	require.True(t, ok)
	require.Contains(t, parentKeys, "name")
}

func TestExportRoundTrip(t *testing.T) {
	p := loadFixture(t)

	buf := &bytes.Buffer{}
	require.NoError(t, p.Export(buf))

	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	reloaded, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, p.Commander, reloaded.Commander)
	require.Equal(t, p.LastStarport.Ships.Names(), reloaded.LastStarport.Ships.Names())
}
