// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/picozot/internal/pico"
	"github.com/pdiddy/picozot/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [item...]",
	Short: "Extract PICO elements from items and store them as notes",
	Long: `Analyze runs PICO extraction for each item in order. Items without
content are skipped and failures are reported; neither stops the batch.
Each result is saved on its item as a "PICO Analysis" note.`,
	RunE: runAnalyze,
}

type analyzeOutput struct {
	Results []types.AnalysisResult `json:"results" yaml:"results"`
	Summary pico.BatchSummary      `json:"summary" yaml:"summary"`
	State   pico.BatchState        `json:"state" yaml:"state"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	items, err := resolveItems(cmd, args)
	if err != nil {
		return err
	}

	results, summary := sess.Pipeline.AnalyzePico(cmd.Context(), items)
	out := analyzeOutput{Results: results, Summary: summary, State: summary.State()}

	return output(cmd, out, func(w io.Writer) error {
		for _, r := range results {
			fmt.Fprintf(w, "[%d] %s\n", r.Item.ID, r.Item.Title())
			writePico(w, r.PicoElements)
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s: %d analyzed, %d skipped, %d failed, %d pending\n",
			summary.State(), summary.Analyzed, summary.Skipped, summary.Failed, summary.Pending)
		return nil
	})
}

var picoCmd = &cobra.Command{
	Use:   "pico <item>",
	Short: "Show the PICO elements of one item",
	Long: `Pico prints the stored PICO analysis of an item, extracting and
storing it first when the item has none.`,
	Args: cobra.ExactArgs(1),
	RunE: runPico,
}

func runPico(cmd *cobra.Command, args []string) error {
	items, err := resolveItems(cmd, args)
	if err != nil {
		return err
	}
	rec, err := sess.Pipeline.GetPicoElements(cmd.Context(), items[0])
	if err != nil {
		return err
	}
	return output(cmd, rec, func(w io.Writer) error {
		fmt.Fprintf(w, "[%d] %s\n", items[0].ID, items[0].Title())
		writePico(w, rec)
		return nil
	})
}

var compareCmd = &cobra.Command{
	Use:   "compare [item...]",
	Short: "Compare PICO elements across items",
	RunE:  runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	items, err := resolveItems(cmd, args)
	if err != nil {
		return err
	}
	cmp := sess.Pipeline.ComparePicoElements(cmd.Context(), items)

	return output(cmd, cmp, func(w io.Writer) error {
		for _, f := range types.PicoFields {
			fmt.Fprintf(w, "%s\n", f)
			if s := cmp.Similarities[f]; s != "" {
				fmt.Fprintf(w, "  common: %s\n", s)
			}
			for _, v := range cmp.Differences[f] {
				fmt.Fprintf(w, "  [%d] %-40s  %s\n", v.ItemID, truncate(v.ItemTitle, 40), v.Value)
			}
			fmt.Fprintln(w)
		}
		return nil
	})
}

func init() {
	analyzeCmd.Flags().String("tag", "", "also analyze every item with this tag")
	compareCmd.Flags().String("tag", "", "also compare every item with this tag")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(picoCmd)
	rootCmd.AddCommand(compareCmd)
}
