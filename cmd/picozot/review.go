// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/picozot/internal/review"
	"github.com/pdiddy/picozot/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review [item...]",
	Short: "Generate a literature review from items",
	Long: `Review builds a literature review from the PICO elements and citation
metadata of the selected items with a single model call. By default the
first item's PICO elements frame the review; --combine merges all items.

With --save the review is written to the documents directory without
overwriting existing files; --bibtex adds a matching .bib file.`,
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	items, err := resolveItems(cmd, args)
	if err != nil {
		return err
	}

	combine, _ := cmd.Flags().GetBool("combine")
	instructions, _ := cmd.Flags().GetString("instructions")
	save, _ := cmd.Flags().GetBool("save")
	filename, _ := cmd.Flags().GetString("filename")
	bibtex, _ := cmd.Flags().GetBool("bibtex")
	style, _ := cmd.Flags().GetString("style")

	rv, err := sess.Assembler.GenerateLiteratureReview(cmd.Context(), items, types.ReviewOptions{
		CombinePico:            combine,
		AdditionalInstructions: instructions,
		SaveToFile:             save,
		Filename:               filename,
		ExportBibTeX:           bibtex,
	})
	if err != nil {
		return err
	}
	rv.Text = review.FormatReview(rv.Text, style)

	return output(cmd, rv, func(w io.Writer) error {
		fmt.Fprintln(w, rv.Text)
		if rv.Path != "" {
			fmt.Fprintf(w, "\nSaved to %s\n", rv.Path)
		}
		if rv.BibPath != "" {
			fmt.Fprintf(w, "BibTeX saved to %s\n", rv.BibPath)
		}
		return nil
	})
}

var templateCmd = &cobra.Command{
	Use:         "template [name]",
	Short:       "Show a literature review section template",
	Long:        `Template prints the named review template (default or systematic).`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{noSession: "true"},
	RunE:        runTemplate,
}

func runTemplate(cmd *cobra.Command, args []string) error {
	name := review.DefaultTemplate
	if len(args) > 0 {
		name = args[0]
	}
	tmpl, err := review.GetReviewTemplate(name)
	if err != nil {
		return err
	}
	return output(cmd, tmpl, func(w io.Writer) error {
		fmt.Fprintf(w, "%s (headings: %s, citations: %s)\n\n",
			tmpl.Name, tmpl.Format.HeadingStyle, tmpl.Format.CitationStyle)
		writeSections(w, tmpl.Sections, 0)
		fmt.Fprintf(w, "\nAvailable: %s\n", strings.Join(review.TemplateNames(), ", "))
		return nil
	})
}

func writeSections(w io.Writer, sections []types.TemplateSection, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, s := range sections {
		fmt.Fprintf(w, "%s%d. %s\n", indent, i+1, s.Title)
		if s.Content != "" {
			fmt.Fprintf(w, "%s   %s\n", indent, s.Content)
		}
		writeSections(w, s.Subsections, depth+1)
	}
}

func init() {
	reviewCmd.Flags().String("tag", "", "also include every item with this tag")
	reviewCmd.Flags().Bool("combine", false, "merge the PICO elements of all items")
	reviewCmd.Flags().String("instructions", "", "additional instructions appended to the prompt")
	reviewCmd.Flags().Bool("save", false, "save the review to the documents directory")
	reviewCmd.Flags().String("filename", types.DefaultReviewFilename, "filename for --save")
	reviewCmd.Flags().Bool("bibtex", false, "also save the citations as BibTeX")
	reviewCmd.Flags().String("style", review.DefaultStyle, "citation style")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(templateCmd)
}
