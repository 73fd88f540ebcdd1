package tradedb

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

const report_import_unknown_item = "import.unknown-item"

// ImportError points at the line of a price file that could not be imported.
type ImportError struct {
	Line int
	Text string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

type ImportOptions struct {
	// IgnoreUnknown skips items the database does not know instead of creating them.
	IgnoreUnknown bool
}

type ImportResult struct {
	Stations int
	Items    int
	Created  []string
	Skipped  []string
}

var (
	stationLineRegex  = regexp.MustCompile(`^@\s*([^/]+?)\s*/\s*(.+?)\s*$`)
	categoryLineRegex = regexp.MustCompile(`^\s*\+\s*(.+?)\s*$`)
	itemLineRegex     = regexp.MustCompile(`^\s+(.+?)\s+(\d+)\s+(\d+)\s+(\S+)\s+(\S+)\s*$`)
	quantityRegex     = regexp.MustCompile(`^(\d+)([LMH?-]?)$`)
)

type importItem struct {
	line     int
	text     string
	category string
	name     string
	sell     int
	buy      int
	demand   quantity
	supply   quantity
}

type importBlock struct {
	line    int
	text    string
	system  string
	station string
	items   []importItem
}

// quantity is units and level, -1 means unknown.
type quantity struct {
	units int
	level int
}

var levelSuffixes = map[string]int{
	"":  -1,
	"?": -1,
	"-": 0,
	"L": 1,
	"M": 2,
	"H": 3,
}

func parseQuantity(token string) (quantity, error) {
	switch token {
	case "?":
		return quantity{units: -1, level: -1}, nil
	case "-":
		return quantity{units: 0, level: 0}, nil
	}
	groups := quantityRegex.FindStringSubmatch(token)
	if groups == nil {
		return quantity{}, fmt.Errorf("invalid quantity %q", token)
	}
	units, err := strconv.Atoi(groups[1])
	if err != nil {
		return quantity{}, err
	}
	return quantity{units: units, level: levelSuffixes[groups[2]]}, nil
}

func parseImport(r io.Reader) ([]importBlock, error) {
	var (
		blocks   []importBlock
		category string
		lineNo   int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lineErr := func(err error) error {
			return &ImportError{Line: lineNo, Text: text, Err: err}
		}

		if groups := stationLineRegex.FindStringSubmatch(text); groups != nil {
			blocks = append(blocks, importBlock{
				line:    lineNo,
				text:    text,
				system:  groups[1],
				station: groups[2],
			})
			category = ""
			continue
		}
		if groups := categoryLineRegex.FindStringSubmatch(text); groups != nil {
			if len(blocks) == 0 {
				return nil, lineErr(fmt.Errorf("category before any station"))
			}
			category = groups[1]
			continue
		}
		groups := itemLineRegex.FindStringSubmatch(text)
		if groups == nil {
			return nil, lineErr(fmt.Errorf("unrecognized line"))
		}
		if len(blocks) == 0 {
			return nil, lineErr(fmt.Errorf("item before any station"))
		}
		if category == "" {
			return nil, lineErr(fmt.Errorf("item before any category"))
		}

		sell, err := strconv.Atoi(groups[2])
		if err != nil {
			return nil, lineErr(err)
		}
		buy, err := strconv.Atoi(groups[3])
		if err != nil {
			return nil, lineErr(err)
		}
		demand, err := parseQuantity(groups[4])
		if err != nil {
			return nil, lineErr(err)
		}
		supply, err := parseQuantity(groups[5])
		if err != nil {
			return nil, lineErr(err)
		}

		current := &blocks[len(blocks)-1]
		current.items = append(current.items, importItem{
			line:     lineNo,
			text:     text,
			category: category,
			name:     groups[1],
			sell:     sell,
			buy:      buy,
			demand:   demand,
			supply:   supply,
		})
	}
	return blocks, scanner.Err()
}

func closestName(name string, known []string) string {
	best := ""
	bestScore := 0.0
	for _, candidate := range known {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(candidate), false)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore < 0.8 {
		return ""
	}
	return best
}

// ImportPrices replaces the prices of every station in the file inside a single transaction.
func (s Store) ImportPrices(ctx context.Context, r io.Reader, opts ImportOptions) (ImportResult, error) {
	blocks, err := parseImport(r)
	if err != nil {
		return ImportResult{}, err
	}

	tx, discard, commit, err := s.MakeTx(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	defer discard()

	known, err := tx.ListItemNames(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{}
	modified := s.modified()
	for _, block := range blocks {
		station, err := tx.GetStation(ctx, block.system, block.station)
		if err != nil {
			return ImportResult{}, &ImportError{
				Line: block.line,
				Text: block.text,
				Err:  notFound(err, "station %s/%s", block.system, block.station),
			}
		}
		err = tx.DeleteStationItems(ctx, station.ID)
		if err != nil {
			return ImportResult{}, err
		}
		result.Stations++

		for _, item := range block.items {
			itemId, err := s.resolveItem(ctx, tx, item, known, opts, &result)
			if err != nil {
				return ImportResult{}, &ImportError{Line: item.line, Text: item.text, Err: err}
			}
			if itemId == 0 {
				continue
			}
			err = tx.InsertStationItem(ctx, InsertStationItemParams{
				StationId:   station.ID,
				ItemId:      itemId,
				DemandPrice: item.sell,
				DemandUnits: item.demand.units,
				DemandLevel: item.demand.level,
				SupplyPrice: item.buy,
				SupplyUnits: item.supply.units,
				SupplyLevel: item.supply.level,
				Modified:    modified,
			})
			if err != nil {
				return ImportResult{}, &ImportError{Line: item.line, Text: item.text, Err: err}
			}
			result.Items++
		}
	}

	err = commit()
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

// resolveItem returns 0 when the item was skipped.
func (s Store) resolveItem(
	ctx context.Context,
	tx *Queries,
	item importItem,
	known []string,
	opts ImportOptions,
	result *ImportResult,
) (int64, error) {
	itemId, err := tx.GetItemId(ctx, item.name)
	if err == nil {
		return itemId, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	if opts.IgnoreUnknown {
		suggestion := closestName(item.name, known)
		s.tel.ReportWarning(report_import_unknown_item, item.name, "did you mean", suggestion)
		result.Skipped = append(result.Skipped, item.name)
		return 0, nil
	}

	categoryId, err := tx.GetCategoryId(ctx, item.category)
	if errors.Is(err, sql.ErrNoRows) {
		categoryId, err = tx.CreateCategory(ctx, item.category)
	}
	if err != nil {
		return 0, fmt.Errorf("category %s: %w", item.category, err)
	}
	itemId, err = tx.CreateItem(ctx, item.name, categoryId)
	if err != nil {
		return 0, fmt.Errorf("create item %s: %w", item.name, err)
	}
	result.Created = append(result.Created, item.name)
	return itemId, nil
}

// ClosestItem suggests the known item whose name is most similar, "" when nothing is close.
func (s Store) ClosestItem(ctx context.Context, name string) (string, error) {
	known, err := s.Query.ListItemNames(ctx)
	if err != nil {
		return "", err
	}
	return closestName(name, known), nil
}
