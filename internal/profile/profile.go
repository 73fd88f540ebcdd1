// Package profile decodes the commander profile returned by the companion API into
// typed values. Everything downstream works on these types instead of the raw document.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

var ErrNotDocked = errors.New("commander not docked")

// ParseError means the profile body is not a document we understand, nothing can proceed without it.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse profile response: %s", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Profile struct {
	Commander    Commander    `json:"commander"`
	Ship         Ship         `json:"ship"`
	LastSystem   Named        `json:"lastSystem"`
	LastStarport LastStarport `json:"lastStarport"`

	// Raw is the undecoded document, kept for exporting and key walking.
	Raw json.RawMessage `json:"-"`
}

type Commander struct {
	Name    string         `json:"name"`
	Credits int64          `json:"credits"`
	Debt    int64          `json:"debt"`
	Docked  bool           `json:"docked"`
	Rank    map[string]int `json:"rank"`
}

type Named struct {
	Name string `json:"name"`
}

type Ship struct {
	Name  string `json:"name"`
	Cargo struct {
		Capacity int `json:"capacity"`
	} `json:"cargo"`
}

type LastStarport struct {
	Name string `json:"name"`

	// nil means the station did not send the sub-document at all.
	Commodities *[]Commodity `json:"commodities,omitempty"`
	Ships       *Shipyard    `json:"ships,omitempty"`
	Modules     *Modules     `json:"modules,omitempty"`
}

type Commodity struct {
	Name          string   `json:"name"`
	CategoryName  string   `json:"categoryname"`
	BuyPrice      Number   `json:"buyPrice"`
	SellPrice     Number   `json:"sellPrice"`
	MeanPrice     Number   `json:"meanPrice"`
	Stock         Number   `json:"stock"`
	StockBracket  Number   `json:"stockBracket"`
	Demand        Number   `json:"demand"`
	DemandBracket Number   `json:"demandBracket"`
	StatusFlags   []string `json:"statusFlags"`
}

type ShipEntry struct {
	Name string `json:"name"`
}

// Shipyard lists ships for sale and ships restricted at this station.
type Shipyard struct {
	ShipyardList    ShipList `json:"shipyard_list"`
	UnavailableList ShipList `json:"unavailable_list"`
}

// Names returns every ship identifier in the shipyard, for sale first.
func (s Shipyard) Names() []string {
	names := make([]string, 0, len(s.ShipyardList)+len(s.UnavailableList))
	for _, ship := range s.ShipyardList {
		names = append(names, ship.Name)
	}
	for _, ship := range s.UnavailableList {
		names = append(names, ship.Name)
	}
	return names
}

// ShipList is sent either as an object keyed by ship name or as an array,
// an empty list is always an array.
type ShipList []ShipEntry

func (l *ShipList) UnmarshalJSON(data []byte) error {
	entries, err := decodeKeyedOrList[ShipEntry](data)
	if err != nil {
		return err
	}
	*l = entries
	return nil
}

type Module struct {
	Name string `json:"name"`
	// Sku is nil when the module does not require any expansion.
	Sku *string `json:"sku,omitempty"`
}

// Modules is sent as an object keyed by module id, or an empty array.
type Modules []Module

func (m *Modules) UnmarshalJSON(data []byte) error {
	entries, err := decodeKeyedOrList[Module](data)
	if err != nil {
		return err
	}
	*m = entries
	return nil
}

func decodeKeyedOrList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		var list []T
		err := json.Unmarshal(data, &list)
		return list, err
	}

	var keyed map[string]T
	err := json.Unmarshal(data, &keyed)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]T, len(keys))
	for i, k := range keys {
		list[i] = keyed[k]
	}
	return list, nil
}

// Parse decodes a profile response body.
func Parse(body []byte) (Profile, error) {
	var p Profile
	err := json.Unmarshal(body, &p)
	if err != nil {
		return Profile{}, &ParseError{Err: err}
	}
	if p.Commander.Name == "" {
		return Profile{}, &ParseError{Err: fmt.Errorf("missing commander")}
	}
	p.Raw = append(json.RawMessage(nil), body...)
	return p, nil
}

// Load reads a profile previously exported to a file.
func Load(path string) (Profile, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	return Parse(contents)
}

// CheckDocked makes sure the last system and station describe where the commander is.
func (p Profile) CheckDocked() error {
	if !p.Commander.Docked {
		return ErrNotDocked
	}
	if p.LastStarport.Name == "" {
		return fmt.Errorf("%w: no last starport", ErrNotDocked)
	}
	return nil
}

func (p Profile) HasMarket() bool {
	return p.LastStarport.Commodities != nil
}

func (p Profile) HasShipyard() bool {
	return p.LastStarport.Ships != nil
}

func (p Profile) HasOutfitting() bool {
	return p.LastStarport.Modules != nil
}

func (p Profile) Commodities() []Commodity {
	if p.LastStarport.Commodities == nil {
		return nil
	}
	return *p.LastStarport.Commodities
}

func (p Profile) System() string {
	return p.LastSystem.Name
}

func (p Profile) Station() string {
	return p.LastStarport.Name
}
