// Package configutil reads json5 configuration files with optional local overrides.
package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the override file for name, "edapi.json5" becomes "edapi.local.json5".
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readLayer decodes a single file, found is false when it does not exist or is empty.
func readLayer[T any](path string) (out T, found bool, err error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(strings.TrimSpace(string(contents))) == 0 {
		return out, false, nil
	}
	err = json5.Unmarshal(contents, &out)
	if err != nil {
		return out, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, true, nil
}

// ReadConfig reads `name` and then merges `LocalPath(name)` over it. It returns
// os.ErrNotExist when neither file is there.
func ReadConfig[T any](name string) (T, error) {
	var out T
	anyFound := false

	for _, path := range []string{name, LocalPath(name)} {
		layer, found, err := readLayer[T](path)
		if err != nil {
			return out, err
		}
		if !found {
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		slog.Debug("read config layer", "path", path)
		anyFound = true
	}

	if !anyFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadWithDefaults is ReadConfig layered on top of defaults, missing files just
// leave the defaults in place. Zero values in a file cannot reset a default.
func ReadWithDefaults[T any](name string, defaults T) (T, error) {
	read, err := ReadConfig[T](name)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}
	err = mergo.Merge(&defaults, read, mergo.WithOverride)
	if err != nil {
		return defaults, err
	}
	return defaults, nil
}
