package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"edcompanion/internal/envfile"
	"edcompanion/internal/normalize"
	"edcompanion/internal/profile"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	profileVars   *bool
	profileExport *string
	profileKeys   *[]string
	profileTree   *bool
)

func init() {
	flags := profileCmd.Flags()
	profileVars = flags.Bool("vars", false, "Write a file exporting the current system/station, credits and cargo capacity.")
	profileExport = flags.String("export", "", "Write the API response to a file as JSON and exit.")
	profileKeys = flags.StringSlice("keys", nil, "Display the raw API data found by following the given keys.")
	profileTree = flags.Bool("tree", false, "Used with --keys, print everything below the key instead of its keys.")
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile [--vars] [--export FILE] [--keys k1,k2 [--tree]]",
	Short: "Prints the commander profile.",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(cmd.Context())
		if err != nil {
			return err
		}

		if *profileExport != "" {
			return exportProfile(p, *profileExport)
		}
		if len(*profileKeys) > 0 {
			return printKeys(os.Stdout, p, *profileKeys, *profileTree)
		}

		err = p.CheckDocked()
		if err != nil {
			return err
		}

		normalizer, err := newNormalizer()
		if err != nil {
			return err
		}
		printSummary(os.Stdout, p, normalizer, colorEnabled())

		if *profileVars {
			path := config.varsFile()
			fmt.Printf("Writing %s...\n", path)
			return envfile.Write(path, envfile.Vars{
				System:   p.System(),
				Station:  p.Station(),
				Credits:  p.Commander.Credits,
				Capacity: p.Ship.Cargo.Capacity,
			})
		}
		return nil
	},
}

func exportProfile(p profile.Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = p.Export(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printNode(w io.Writer, node any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(node)
}

// printKeys shows the keys (or, with tree, the whole value) at the end of the key path.
// When a key does not exist the contents of the last key that did are shown instead.
func printKeys(w io.Writer, p profile.Profile, keys []string, tree bool) error {
	fmt.Fprintln(w, strings.Join(keys, "->"))

	node, err := p.Walk(keys...)
	var notFound *profile.KeyNotFoundError
	if errors.As(err, &notFound) {
		fmt.Fprintf(w, "key: %s\nnot found. Contents at previous key:\n", notFound.Key)
		if names, ok := profile.Keys(notFound.Parent); ok {
			printNode(w, names)
		} else {
			printNode(w, notFound.Parent)
		}
		return err
	}
	if err != nil {
		return err
	}

	if names, ok := profile.Keys(node); ok && !tree {
		return printNode(w, names)
	}
	return printNode(w, node)
}

func printSummary(w io.Writer, p profile.Profile, normalizer normalize.Normalizer, color bool) {
	highlight := func(s string, colors text.Colors) string {
		if !color {
			return s
		}
		return colors.Sprint(s)
	}

	fmt.Fprintln(w, "Commander:", highlight(p.Commander.Name, text.Colors{text.FgGreen}))
	fmt.Fprintf(w, "Credits  : %12s\n", humanize.Comma(p.Commander.Credits))
	fmt.Fprintf(w, "Debt     : %12s\n", humanize.Comma(p.Commander.Debt))
	fmt.Fprintf(w, "Capacity : %d tons\n", p.Ship.Cargo.Capacity)

	kinds := make([]string, 0, len(p.Commander.Rank))
	for kind := range p.Commander.Rank {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Rank Type", "Rank Name", "#"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, kind := range kinds {
		rank := p.Commander.Rank[kind]
		t.AppendRow(table.Row{kind, normalizer.RankName(kind, rank), rank})
	}
	t.Render()

	fmt.Fprintln(w, "Docked:", p.Commander.Docked)
	fmt.Fprintln(w, "System:", highlight(p.System(), text.Colors{text.FgBlue}))
	fmt.Fprintln(w, "Station:", highlight(p.Station(), text.Colors{text.FgBlue}))
}
