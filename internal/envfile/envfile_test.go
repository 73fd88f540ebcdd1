package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edapi.vars")
	vars := Vars{
		System:   "Sol",
		Station:  "Abraham Lincoln",
		Credits:  1234567,
		Capacity: 216,
	}
	require.NoError(t, Write(path, vars))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	expected := "export TDFROM=\"Sol/Abraham Lincoln\"\n" +
		"export TDCREDITS=1234567\n" +
		"export TDCAP=216\n"
	require.Equal(t, expected, string(content))

	parsed, err := Read(path)
	require.NoError(t, err)
	if diff := cmp.Diff(vars, parsed); diff != "" {
		t.Fatal(diff)
	}
}

func TestReadMalformed(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.vars")
	require.NoError(t, os.WriteFile(missing, []byte("export TDCREDITS=1\nexport TDCAP=2\n"), 0644))
	_, err := Read(missing)
	require.ErrorContains(t, err, "missing TDFROM")

	noStation := filepath.Join(dir, "nostation.vars")
	require.NoError(t, os.WriteFile(noStation, []byte("export TDFROM=\"Sol\"\nexport TDCREDITS=1\nexport TDCAP=2\n"), 0644))
	_, err = Read(noStation)
	require.ErrorContains(t, err, "SYSTEM/STATION")

	_, err = Read(filepath.Join(dir, "absent.vars"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerifyMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edapi.vars")
	vars := Vars{System: "Sol", Station: "Abraham Lincoln", Credits: 10, Capacity: 4}
	require.NoError(t, Write(path, vars))

	require.NoError(t, os.WriteFile(path, []byte("export TDFROM=\"Sol/Galileo\"\nexport TDCREDITS=10\nexport TDCAP=4\n"), 0644))
	err := verify(path, vars)
	require.ErrorContains(t, err, "reads back as")

	require.NoError(t, os.WriteFile(path, []byte("export TDCREDITS=10\n"), 0644))
	require.ErrorContains(t, verify(path, vars), "read back")
}
