package normalize

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"

	"github.com/titanous/json5"
)

//go:embed tables.json5
var defaultTables []byte

// Tables holds every name mapping and filter the normalizer applies.
// A Tables value should not be modified once it has been handed to a Normalizer.
type Tables struct {
	IgnoredCategories    []string            `json:"ignored_categories"`
	IgnoredCommodities   []string            `json:"ignored_commodities"`
	CategoryCorrections  map[string]string   `json:"category_corrections"`
	CommodityCorrections map[string]string   `json:"commodity_corrections"`
	TradeShipNames       map[string]string   `json:"trade_ship_names"`
	FeedShipNames        map[string]string   `json:"feed_ship_names"`
	ModuleSkus           []string            `json:"module_skus"`
	ModulePrefixes       []string            `json:"module_prefixes"`
	ArmourMarker         string              `json:"armour_marker"`
	BracketLevels        []string            `json:"bracket_levels"`
	RankNames            map[string][]string `json:"rank_names"`
}

// DefaultTables decodes the tables shipped with the binary.
func DefaultTables() (Tables, error) {
	var tables Tables
	err := json5.Unmarshal(defaultTables, &tables)
	if err != nil {
		return Tables{}, fmt.Errorf("decode default tables: %w", err)
	}
	return tables, tables.Validate()
}

func checkChains(kind string, corrections map[string]string) error {
	keys := make([]string, 0, len(corrections))
	for k := range corrections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, from := range keys {
		to := corrections[from]
		if to == from {
			continue
		}
		if _, chained := corrections[to]; chained {
			return fmt.Errorf("%s correction %q -> %q is corrected again", kind, from, to)
		}
	}
	return nil
}

// Validate rejects tables that would not normalize to a fixed point, a corrected
// name must never be corrected again.
func (t Tables) Validate() error {
	err := checkChains("category", t.CategoryCorrections)
	if err != nil {
		return err
	}
	err = checkChains("commodity", t.CommodityCorrections)
	if err != nil {
		return err
	}
	for _, to := range t.CommodityCorrections {
		if slices.Contains(t.IgnoredCommodities, to) {
			return fmt.Errorf("commodity %q is both a correction and ignored", to)
		}
	}
	for _, to := range t.CategoryCorrections {
		if slices.Contains(t.IgnoredCategories, to) {
			return fmt.Errorf("category %q is both a correction and ignored", to)
		}
	}
	if len(t.BracketLevels) == 0 {
		return fmt.Errorf("no bracket levels")
	}
	return nil
}
