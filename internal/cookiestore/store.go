// Package cookiestore persists the companion session cookies between runs.
package cookiestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

var ErrCorrupt = errors.New("cookie file is corrupt")

// Store reads and writes the cookie file, a JSON object of cookie name -> value.
type Store struct {
	Path string
}

// Load returns the persisted cookies. A missing file yields an empty jar, a corrupt
// file yields an empty jar together with ErrCorrupt so the caller can warn about it.
func (s Store) Load() (map[string]string, error) {
	contents, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return map[string]string{}, fmt.Errorf("read cookie file: %w", err)
	}
	if len(bytes.TrimSpace(contents)) == 0 {
		return map[string]string{}, nil
	}

	var cookies map[string]string
	err = json5.Unmarshal(contents, &cookies)
	if err != nil {
		return map[string]string{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}
	if cookies == nil {
		cookies = map[string]string{}
	}
	return cookies, nil
}

// Save replaces the cookie file atomically, readable only by the owner since
// the session cookies grant access to the account.
func (s Store) Save(cookies map[string]string) error {
	if cookies == nil {
		cookies = map[string]string{}
	}
	serialized, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save cookie file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(append(serialized, '\n'))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("save cookie file: %w", err)
	}
	err = tmp.Chmod(0600)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("save cookie file: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("save cookie file: %w", err)
	}

	err = os.Rename(tmp.Name(), s.Path)
	if err != nil {
		return fmt.Errorf("save cookie file: %w", err)
	}
	return nil
}
