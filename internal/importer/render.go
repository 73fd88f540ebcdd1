package importer

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func trendColor(trend Trend) text.Colors {
	switch trend {
	case Favorable:
		return text.Colors{text.FgGreen}
	case Unfavorable:
		return text.Colors{text.FgRed}
	}
	return nil
}

func formatPrice(price, diff int, trend Trend, color bool) string {
	delta := fmt.Sprintf("%+d", diff)
	if color {
		if colors := trendColor(trend); colors != nil {
			delta = colors.Sprint(delta)
		}
	}
	return fmt.Sprintf("%d (%s)", price, delta)
}

// RenderReport writes the changed rows as a table, nothing is written when no price moved.
func RenderReport(w io.Writer, report Report, color bool) {
	changed := report.Changed()
	if len(changed) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Commodity", "Sell Price", "Buy Price"})
	for _, row := range changed {
		sell := "?"
		if row.SellKnown {
			sell = formatPrice(row.Sell, row.DiffSell, row.SellTrend(), color)
		}
		t.AppendRow(table.Row{
			row.Name,
			sell,
			formatPrice(row.Buy, row.DiffBuy, row.BuyTrend(), color),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
