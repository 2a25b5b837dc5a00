package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/banklab/internal/kpi"
	"github.com/ppiankov/banklab/internal/registry"
	"github.com/ppiankov/banklab/internal/store"
)

var asCSV bool

var dictionaryCmd = &cobra.Command{
	Use:   "dictionary",
	Short: "List standardized line items and their XBRL tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asCSV {
			return store.WriteCSV(os.Stdout, store.DictionaryTable())
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "LINE ITEM\tCATEGORY\tFLOW\tPRIMARY TAG\tFALLBACKS")
		for _, e := range registry.DataDictionary() {
			fallbacks := e.FallbackTags
			if fallbacks == "" {
				fallbacks = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", e.LineItem, e.Category, e.IsFlow, e.PrimaryTag, fallbacks)
		}
		return tw.Flush()
	},
}

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Inspect KPI definitions",
}

var kpisListCmd = &cobra.Command{
	Use:   "list",
	Short: "List KPI definitions and formulas",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KPI\tCATEGORY\tUNIT\tFORMULA")
		for _, d := range kpi.Definitions() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Category, d.Unit, d.Formula)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if verbose {
			fmt.Println()
			for _, d := range kpi.Definitions() {
				fmt.Printf("%s (%s)\n  %s\n  inputs: %s\n\n", d.DisplayName, d.Name, d.Description, strings.Join(d.Inputs, ", "))
			}
		}
		return nil
	},
}

func init() {
	dictionaryCmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	rootCmd.AddCommand(dictionaryCmd)
	rootCmd.AddCommand(kpisCmd)
	kpisCmd.AddCommand(kpisListCmd)
}
