// Package envfile writes the shell snippet other trading tools source to pick up
// the commander's current location, credits and cargo capacity.
package envfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	keyFrom    = "TDFROM"
	keyCredits = "TDCREDITS"
	keyCap     = "TDCAP"
)

type Vars struct {
	System   string
	Station  string
	Credits  int64
	Capacity int
}

// Render returns the file contents, one export per line.
func Render(vars Vars) string {
	var out strings.Builder
	fmt.Fprintf(&out, "export %s=\"%s/%s\"\n", keyFrom, vars.System, vars.Station)
	fmt.Fprintf(&out, "export %s=%d\n", keyCredits, vars.Credits)
	fmt.Fprintf(&out, "export %s=%d\n", keyCap, vars.Capacity)
	return out.String()
}

// Write renders the file and reads it back the way a shell would, names that
// cannot survive the round trip are an error.
func Write(path string, vars Vars) error {
	err := os.WriteFile(path, []byte(Render(vars)), 0644)
	if err != nil {
		return err
	}
	return verify(path, vars)
}

func verify(path string, expected Vars) error {
	got, err := Read(path)
	if err != nil {
		return fmt.Errorf("read back %s: %w", path, err)
	}
	if got != expected {
		return fmt.Errorf("%s reads back as %+v, expected %+v", path, got, expected)
	}
	return nil
}

// Read parses a file produced by Write.
func Read(path string) (Vars, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return Vars{}, err
	}

	from, ok := env[keyFrom]
	if !ok {
		return Vars{}, fmt.Errorf("%s: missing %s", path, keyFrom)
	}
	system, station, ok := strings.Cut(from, "/")
	if !ok {
		return Vars{}, fmt.Errorf("%s: %s is not SYSTEM/STATION: %q", path, keyFrom, from)
	}

	credits, err := strconv.ParseInt(env[keyCredits], 10, 64)
	if err != nil {
		return Vars{}, fmt.Errorf("%s: %s: %w", path, keyCredits, err)
	}
	capacity, err := strconv.Atoi(env[keyCap])
	if err != nil {
		return Vars{}, fmt.Errorf("%s: %s: %w", path, keyCap, err)
	}

	return Vars{
		System:   system,
		Station:  station,
		Credits:  credits,
		Capacity: capacity,
	}, nil
}
