// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/picozot/internal/library"
	"github.com/pdiddy/picozot/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the reference library (items, notes, attachments, tags)",
}

// --- add ---

var libraryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an item",
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := map[string]string{}
		for flag, field := range map[string]string{
			"title":    types.ItemFieldTitle,
			"abstract": types.ItemFieldAbstract,
			"authors":  types.ItemFieldCreators,
			"year":     types.ItemFieldYear,
			"journal":  types.ItemFieldPublicationTitle,
			"doi":      types.ItemFieldDOI,
			"url":      types.ItemFieldURL,
		} {
			if v, _ := cmd.Flags().GetString(flag); v != "" {
				fields[field] = v
			}
		}
		if fields[types.ItemFieldTitle] == "" {
			return fmt.Errorf("--title is required")
		}
		itemType, _ := cmd.Flags().GetString("type")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		item, err := sess.Library.AddItem(cmd.Context(), types.Item{ItemType: itemType, Fields: fields, Tags: tags})
		if err != nil {
			return err
		}
		return printItems(cmd, []types.Item{item})
	},
}

// --- import ---

var libraryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import items from a CSL-JSON or CSL-YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		items, err := sess.Library.ImportCSL(cmd.Context(), f)
		if err != nil {
			return err
		}
		return printItems(cmd, items)
	},
}

// --- export ---

var libraryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export items as CSL-JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := sess.Library.ListItems(cmd.Context(), listOptions(cmd))
		if err != nil {
			return err
		}
		return library.ExportCSL(items, cmd.OutOrStdout())
	},
}

// --- doi ---

var libraryDOICmd = &cobra.Command{
	Use:   "doi <doi>",
	Short: "Look up a DOI on OpenAlex and add the item",
	Long: `Doi fetches the work's metadata from OpenAlex and adds it to the
library. With --pdf the open-access PDF, when OpenAlex lists one, is
downloaded to the storage directory and attached.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rec, err := sess.OpenAlex.Lookup(ctx, args[0])
		if err != nil {
			return err
		}
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			return printItems(cmd, []types.Item{rec.Item})
		}

		item, err := sess.Library.AddItem(ctx, rec.Item)
		if err != nil {
			return err
		}
		if withPDF, _ := cmd.Flags().GetBool("pdf"); withPDF {
			switch {
			case rec.PDFURL == "":
				fmt.Fprintln(cmd.ErrOrStderr(), "No open-access PDF listed for", args[0])
			default:
				att, err := sess.Library.AttachPDF(ctx, sess.Options.HTTPClient, item, rec.PDFURL, sess.Options.StorageDir)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "PDF download failed:", err)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "Attached", att.Path)
				}
			}
		}
		return printItems(cmd, []types.Item{item})
	},
}

// --- list ---

var libraryListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List items",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := listOptions(cmd)
		if len(args) > 0 {
			opts.Query = strings.Join(args, " ")
		}
		items, err := sess.Library.ListItems(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return printItems(cmd, items)
	},
}

func listOptions(cmd *cobra.Command) library.ListOptions {
	tag, _ := cmd.Flags().GetString("tag")
	query, _ := cmd.Flags().GetString("query")
	limit, _ := cmd.Flags().GetInt("limit")
	return library.ListOptions{Tag: tag, Query: query, Limit: limit}
}

func printItems(cmd *cobra.Command, items []types.Item) error {
	if items == nil {
		items = []types.Item{}
	}
	return output(cmd, items, func(w io.Writer) error {
		if len(items) == 0 {
			fmt.Fprintln(w, "No items found.")
			return nil
		}
		fmt.Fprintf(w, "%-5s  %-8s  %-50s  %-25s  %s\n", "ID", "Key", "Title", "Authors", "Year")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for _, it := range items {
			md := library.Metadata(it)
			fmt.Fprintf(w, "%-5d  %-8s  %-50s  %-25s  %s\n",
				it.ID, it.Key, truncate(md.Title, 50), truncate(md.Authors, 25), md.Year)
		}
		fmt.Fprintf(w, "\n%d items\n", len(items))
		return nil
	})
}

// --- note ---

var libraryNoteCmd = &cobra.Command{
	Use:   "note <item> <title> <text>",
	Short: "Add a plain-text note to an item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := resolveItems(cmd, args[:1])
		if err != nil {
			return err
		}
		content := "<p>" + strings.ReplaceAll(html.EscapeString(args[2]), "\n", "<br>") + "</p>"
		note, err := sess.Library.AddNote(cmd.Context(), items[0].ID, args[1], content)
		if err != nil {
			return err
		}
		return output(cmd, note, func(w io.Writer) error {
			fmt.Fprintf(w, "Added note %d to item %d\n", note.ID, items[0].ID)
			return nil
		})
	},
}

// --- attach ---

var libraryAttachCmd = &cobra.Command{
	Use:   "attach <item> <file>",
	Short: "Link a file to an item",
	Long: `Attach records a file path on an item. PDF attachments contribute
their text to PICO extraction when a PDF backend is available.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := resolveItems(cmd, args[:1])
		if err != nil {
			return err
		}
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return err
		}
		contentType, _ := cmd.Flags().GetString("content-type")
		if contentType == "" && strings.EqualFold(filepath.Ext(path), ".pdf") {
			contentType = types.ContentTypePDF
		}
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = filepath.Base(path)
		}

		att, err := sess.Library.AddAttachment(cmd.Context(), items[0].ID, title, contentType, path)
		if err != nil {
			return err
		}
		return output(cmd, att, func(w io.Writer) error {
			fmt.Fprintf(w, "Attached %s to item %d\n", att.Path, items[0].ID)
			return nil
		})
	},
}

// --- tag ---

var libraryTagCmd = &cobra.Command{
	Use:   "tag <item> <tag...>",
	Short: "Add tags to an item",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := resolveItems(cmd, args[:1])
		if err != nil {
			return err
		}
		if err := sess.Library.AddTags(cmd.Context(), items[0].ID, args[1:]...); err != nil {
			return err
		}
		item, err := sess.Library.GetItem(cmd.Context(), items[0].ID)
		if err != nil {
			return err
		}
		return output(cmd, item, func(w io.Writer) error {
			fmt.Fprintf(w, "Item %d tags: %s\n", item.ID, strings.Join(item.Tags, ", "))
			return nil
		})
	},
}

func init() {
	libraryAddCmd.Flags().String("title", "", "item title")
	libraryAddCmd.Flags().String("abstract", "", "abstract")
	libraryAddCmd.Flags().String("authors", "", `authors, e.g. "Smith J, Johnson A"`)
	libraryAddCmd.Flags().String("year", "", "publication year")
	libraryAddCmd.Flags().String("journal", "", "journal or venue")
	libraryAddCmd.Flags().String("doi", "", "DOI")
	libraryAddCmd.Flags().String("url", "", "URL")
	libraryAddCmd.Flags().String("type", "journalArticle", "item type")
	libraryAddCmd.Flags().StringSlice("tag", nil, "tags (repeatable)")

	libraryDOICmd.Flags().Bool("dry-run", false, "print the record without adding it")
	libraryDOICmd.Flags().Bool("pdf", false, "download and attach the open-access PDF")

	for _, c := range []*cobra.Command{libraryListCmd, libraryExportCmd} {
		c.Flags().String("tag", "", "filter by tag")
		c.Flags().String("query", "", "filter by title, abstract or author substring")
		c.Flags().Int("limit", 0, "maximum items (0 = all)")
	}

	libraryAttachCmd.Flags().String("title", "", "attachment title (default: file name)")
	libraryAttachCmd.Flags().String("content-type", "", "content type (default: application/pdf for .pdf)")

	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryExportCmd)
	libraryCmd.AddCommand(libraryDOICmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryNoteCmd)
	libraryCmd.AddCommand(libraryAttachCmd)
	libraryCmd.AddCommand(libraryTagCmd)

	rootCmd.AddCommand(libraryCmd)
}
