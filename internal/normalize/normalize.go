// Package normalize turns the commodities, ships and modules of a profile into the
// names and numbers the trading database and the public feed expect.
package normalize

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/profile"
)

// DemandPolicy decides what sell price is imported for a commodity with unknown demand.
type DemandPolicy string

const (
	// KeepSell imports the sell price the station reported.
	KeepSell DemandPolicy = "keep_sell"
	// ZeroSell imports 0 so the trading database treats the price as unknown.
	ZeroSell DemandPolicy = "zero_sell"
)

func ParseDemandPolicy(value string) (DemandPolicy, error) {
	switch DemandPolicy(value) {
	case "", KeepSell:
		return KeepSell, nil
	case ZeroSell:
		return ZeroSell, nil
	}
	return "", fmt.Errorf("unknown demand policy %q", value)
}

// BracketError is returned for a record whose bracket is outside the known levels.
type BracketError struct {
	Commodity string
	Field     string
	Value     int
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("commodity %q: %s %d out of range", e.Commodity, e.Field, e.Value)
}

// UnknownNameError is returned for an identifier that has no entry in a name table.
type UnknownNameError struct {
	Table string
	Name  string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown name %q in %s table", e.Name, e.Table)
}

type Normalizer struct {
	tables Tables
	policy DemandPolicy
	strict bool
	tel    telemetry.API
}

func NewNormalizer(tables Tables, policy DemandPolicy, strict bool, tel telemetry.API) (Normalizer, error) {
	err := tables.Validate()
	if err != nil {
		return Normalizer{}, err
	}
	if policy == "" {
		policy = KeepSell
	}
	return Normalizer{
		tables: tables,
		policy: policy,
		strict: strict,
		tel:    telemetry.NewScopedAPI("normalize", tel),
	}, nil
}

// Commodity is a market entry in trading database terms.
type Commodity struct {
	Name          string
	Category      string
	SellPrice     int
	BuyPrice      int
	MeanPrice     int
	Stock         int
	StockBracket  int
	StockLevel    string
	Demand        int
	DemandBracket int
	DemandLevel   string
	StatusFlags   []string
	Policy        DemandPolicy
}

func (c Commodity) demandKnown() bool {
	return c.Demand != 0 && c.DemandBracket != 0
}

// StockDisplay is "-" when nothing is in stock, otherwise the quantity followed by its level.
func (c Commodity) StockDisplay() string {
	if c.Stock == 0 {
		return "-"
	}
	return strconv.Itoa(c.Stock) + c.StockLevel
}

// DemandDisplay is "?" when the demand is unknown, otherwise the quantity followed by its level.
func (c Commodity) DemandDisplay() string {
	if !c.demandKnown() {
		return "?"
	}
	return strconv.Itoa(c.Demand) + c.DemandLevel
}

// ComparableSell is the sell price a diff should compare against, ok is false when
// demand is unknown and the reported price is not meaningful.
func (c Commodity) ComparableSell() (price int, ok bool) {
	if !c.demandKnown() {
		return 0, false
	}
	return c.SellPrice, true
}

// ImportSell is the sell price written to the import file.
func (c Commodity) ImportSell() int {
	if c.Policy == ZeroSell && !c.demandKnown() {
		return 0
	}
	return c.SellPrice
}

// Profile converts the commodity back into the shape of the profile it came from.
func (c Commodity) Profile() profile.Commodity {
	return profile.Commodity{
		Name:          c.Name,
		CategoryName:  c.Category,
		SellPrice:     profile.NewNumber(c.SellPrice),
		BuyPrice:      profile.NewNumber(c.BuyPrice),
		MeanPrice:     profile.NewNumber(c.MeanPrice),
		Stock:         profile.NewNumber(c.Stock),
		StockBracket:  profile.NewNumber(c.StockBracket),
		Demand:        profile.NewNumber(c.Demand),
		DemandBracket: profile.NewNumber(c.DemandBracket),
		StatusFlags:   c.StatusFlags,
	}
}

func (n Normalizer) coerce(commodity, field string, value profile.Number) int {
	out, ok := value.Int()
	if !ok {
		n.tel.ReportWarning(
			"data_coercion",
			"commodity", commodity,
			"field", field,
			"raw", value.Raw(),
		)
		return 0
	}
	return out
}

func (n Normalizer) level(commodity, field string, bracket int) (string, error) {
	if bracket < 0 || bracket >= len(n.tables.BracketLevels) {
		return "", &BracketError{Commodity: commodity, Field: field, Value: bracket}
	}
	return n.tables.BracketLevels[bracket], nil
}

func (n Normalizer) ignored(category, name string) bool {
	return slices.Contains(n.tables.IgnoredCategories, category) ||
		slices.Contains(n.tables.IgnoredCommodities, name)
}

// Commodities applies the corrections and filters to a market.
// Records with an out of range bracket are dropped and their errors joined into the result.
func (n Normalizer) Commodities(market []profile.Commodity) ([]Commodity, error) {
	var errs []error
	out := make([]Commodity, 0, len(market))
	for _, raw := range market {
		category := raw.CategoryName
		if corrected, ok := n.tables.CategoryCorrections[category]; ok {
			category = corrected
		}
		name := raw.Name
		if corrected, ok := n.tables.CommodityCorrections[name]; ok {
			name = corrected
		}
		if n.ignored(raw.CategoryName, raw.Name) || n.ignored(category, name) {
			continue
		}

		c := Commodity{
			Name:          name,
			Category:      category,
			SellPrice:     n.coerce(name, "sellPrice", raw.SellPrice),
			BuyPrice:      n.coerce(name, "buyPrice", raw.BuyPrice),
			MeanPrice:     n.coerce(name, "meanPrice", raw.MeanPrice),
			Stock:         n.coerce(name, "stock", raw.Stock),
			StockBracket:  n.coerce(name, "stockBracket", raw.StockBracket),
			Demand:        n.coerce(name, "demand", raw.Demand),
			DemandBracket: n.coerce(name, "demandBracket", raw.DemandBracket),
			StatusFlags:   raw.StatusFlags,
			Policy:        n.policy,
		}

		var err error
		c.StockLevel, err = n.level(name, "stockBracket", c.StockBracket)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.DemandLevel, err = n.level(name, "demandBracket", c.DemandBracket)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// FeedCommodity is a market entry as the public feed expects it.
type FeedCommodity struct {
	Name          string   `json:"name"`
	MeanPrice     int      `json:"meanPrice"`
	BuyPrice      int      `json:"buyPrice"`
	Stock         int      `json:"stock"`
	StockBracket  int      `json:"stockBracket"`
	SellPrice     int      `json:"sellPrice"`
	Demand        int      `json:"demand"`
	DemandBracket int      `json:"demandBracket"`
	StatusFlags   []string `json:"statusFlags,omitempty"`
}

// FeedCommodities keeps the names the vendor uses, only ignored categories are filtered.
func (n Normalizer) FeedCommodities(market []profile.Commodity) ([]FeedCommodity, error) {
	var errs []error
	out := make([]FeedCommodity, 0, len(market))
	for _, raw := range market {
		if slices.Contains(n.tables.IgnoredCategories, raw.CategoryName) {
			continue
		}
		c := FeedCommodity{
			Name:          raw.Name,
			MeanPrice:     n.coerce(raw.Name, "meanPrice", raw.MeanPrice),
			BuyPrice:      n.coerce(raw.Name, "buyPrice", raw.BuyPrice),
			Stock:         n.coerce(raw.Name, "stock", raw.Stock),
			StockBracket:  n.coerce(raw.Name, "stockBracket", raw.StockBracket),
			SellPrice:     n.coerce(raw.Name, "sellPrice", raw.SellPrice),
			Demand:        n.coerce(raw.Name, "demand", raw.Demand),
			DemandBracket: n.coerce(raw.Name, "demandBracket", raw.DemandBracket),
		}
		if len(raw.StatusFlags) > 0 {
			c.StatusFlags = raw.StatusFlags
		}
		_, stockErr := n.level(raw.Name, "stockBracket", c.StockBracket)
		_, demandErr := n.level(raw.Name, "demandBracket", c.DemandBracket)
		if err := errors.Join(stockErr, demandErr); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

func (n Normalizer) translate(table string, names map[string]string, ids []string) ([]string, error) {
	var errs []error
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			err := &UnknownNameError{Table: table, Name: id}
			if n.strict {
				errs = append(errs, err)
				continue
			}
			n.tel.ReportWarning("unknown_name", "table", table, "name", id)
			continue
		}
		out = append(out, name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// TradeShipNames translates shipyard identifiers into trading database ship names.
func (n Normalizer) TradeShipNames(ids []string) ([]string, error) {
	return n.translate("trade ship", n.tables.TradeShipNames, ids)
}

// FeedShipNames translates shipyard identifiers into the names used by the public feed.
func (n Normalizer) FeedShipNames(ids []string) ([]string, error) {
	return n.translate("feed ship", n.tables.FeedShipNames, ids)
}

// FeedModules returns the sorted names of modules anyone can buy at the station,
// commander specific items like paint jobs and decals are left out.
func (n Normalizer) FeedModules(modules []profile.Module) []string {
	out := []string{}
	for _, module := range modules {
		if module.Sku != nil && !slices.Contains(n.tables.ModuleSkus, *module.Sku) {
			continue
		}
		prefixed := false
		for _, prefix := range n.tables.ModulePrefixes {
			if strings.HasPrefix(module.Name, prefix) {
				prefixed = true
				break
			}
		}
		armour := n.tables.ArmourMarker != "" && strings.Index(module.Name, n.tables.ArmourMarker) > 0
		if prefixed || armour {
			out = append(out, module.Name)
		}
	}
	sort.Strings(out)
	return out
}

// RankName returns "" for a kind of rank we know nothing about.
func (n Normalizer) RankName(kind string, rank int) string {
	names, ok := n.tables.RankNames[kind]
	if !ok {
		return ""
	}
	if rank < 0 || rank >= len(names) {
		return fmt.Sprintf("Rank %d", rank)
	}
	return names[rank]
}

// Tables returns the tables the normalizer was built with.
func (n Normalizer) Tables() Tables {
	return n.tables
}
