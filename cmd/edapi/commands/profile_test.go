package commands

import (
	"bytes"
	"testing"

	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/normalize"
	"edcompanion/internal/profile"

	"github.com/stretchr/testify/require"
)

func loadDocked(t *testing.T) profile.Profile {
	t.Helper()
	p, err := profile.Load("../../../internal/profile/testdata/docked.json")
	require.NoError(t, err)
	return p
}

func TestPrintSummary(t *testing.T) {
	p := loadDocked(t)
	tables, err := normalize.DefaultTables()
	require.NoError(t, err)
	normalizer, err := normalize.NewNormalizer(tables, normalize.KeepSell, false, &telemetry.Recorder{})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	printSummary(out, p, normalizer, false)

	summary := out.String()
	require.Contains(t, summary, "Commander: CMDR_X\n")
	require.Contains(t, summary, "Credits  :    1,234,567\n")
	require.Contains(t, summary, "Capacity : 216 tons\n")
	require.Contains(t, summary, "Competent")
	require.Contains(t, summary, "Station: Abraham Lincoln\n")
}

func TestPrintKeys(t *testing.T) {
	p := loadDocked(t)

	out := &bytes.Buffer{}
	require.NoError(t, printKeys(out, p, []string{"commander", "rank"}, false))
	require.Contains(t, out.String(), "commander->rank\n")
	require.Contains(t, out.String(), `"combat"`)
	require.NotContains(t, out.String(), `"combat": 3`)

	out.Reset()
	require.NoError(t, printKeys(out, p, []string{"commander", "rank"}, true))
	require.Contains(t, out.String(), `"combat": 3`)

	out.Reset()
	err := printKeys(out, p, []string{"commander", "missing"}, false)
	var notFound *profile.KeyNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Contains(t, out.String(), "not found. Contents at previous key:")
	require.Contains(t, out.String(), `"credits"`)
}
