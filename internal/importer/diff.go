package importer

import (
	"fmt"
	"io"

	"edcompanion/internal/normalize"
	"edcompanion/internal/tradedb"
)

type Trend int

const (
	Unchanged Trend = iota
	Favorable
	Unfavorable
)

// Row compares the price of a commodity against what the trade database last recorded.
type Row struct {
	Name     string
	Sell     int
	Buy      int
	DiffSell int
	DiffBuy  int
	// SellKnown is false when demand is unknown, the sell price is then not compared.
	SellKnown bool
}

// SellTrend is from the point of view of someone selling to the station, a drop is bad.
func (r Row) SellTrend() Trend {
	switch {
	case r.DiffSell < 0:
		return Unfavorable
	case r.DiffSell > 0:
		return Favorable
	}
	return Unchanged
}

// BuyTrend is from the point of view of someone buying from the station, a rise is bad.
func (r Row) BuyTrend() Trend {
	switch {
	case r.DiffBuy > 0:
		return Unfavorable
	case r.DiffBuy < 0:
		return Favorable
	}
	return Unchanged
}

func (r Row) Changed() bool {
	return r.DiffSell != 0 || r.DiffBuy != 0
}

type Report struct {
	Rows []Row
}

// Changed returns only the rows whose prices moved.
func (r Report) Changed() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Changed() {
			out = append(out, row)
		}
	}
	return out
}

// Diff compares a market against the previous prices, a commodity never seen before
// is compared against zero.
func Diff(old map[string]tradedb.Price, commodities []normalize.Commodity) Report {
	rows := make([]Row, 0, len(commodities))
	for _, c := range commodities {
		previous := old[c.Name]
		row := Row{
			Name:    c.Name,
			Buy:     c.BuyPrice,
			DiffBuy: c.BuyPrice - previous.Buy,
		}
		if sell, ok := c.ComparableSell(); ok {
			row.Sell = sell
			row.SellKnown = true
			row.DiffSell = sell - previous.Sell
		}
		rows = append(rows, row)
	}
	return Report{Rows: rows}
}

// WritePrices writes a market in the trade database import format.
func WritePrices(w io.Writer, system, station string, commodities []normalize.Commodity) error {
	_, err := fmt.Fprintf(w, "@ %s/%s\n", system, station)
	if err != nil {
		return err
	}
	category := ""
	for _, c := range commodities {
		if c.Category != category {
			category = c.Category
			_, err = fmt.Fprintf(w, "\t+ %s\n", category)
			if err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(
			w,
			"\t\t%s %d %d %s %s\n",
			c.Name,
			c.ImportSell(),
			c.BuyPrice,
			c.DemandDisplay(),
			c.StockDisplay(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
