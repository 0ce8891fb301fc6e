// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/picozot/internal/library"
	"github.com/pdiddy/picozot/pkg/types"
)

// output writes v as JSON or YAML when requested, otherwise calls text.
func output(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	switch {
	case asJSON && asYAML:
		return fmt.Errorf("--json and --yaml are mutually exclusive")
	case asJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case asYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return text(w)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

func writePico(w io.Writer, r types.PicoRecord) {
	fmt.Fprintf(w, "  Population/Problem: %s\n", r.Population)
	fmt.Fprintf(w, "  Intervention:       %s\n", r.Intervention)
	comparison := r.Comparison
	if comparison == "" {
		comparison = "N/A"
	}
	fmt.Fprintf(w, "  Comparison:         %s\n", comparison)
	fmt.Fprintf(w, "  Outcome:            %s\n", r.Outcome)
}

// resolveItems looks up each argument as an id, then as a key. With a tag
// every item carrying it is appended.
func resolveItems(cmd *cobra.Command, args []string) ([]types.Item, error) {
	ctx := cmd.Context()
	var out []types.Item
	for _, a := range args {
		var (
			item types.Item
			err  error
		)
		if id, perr := strconv.ParseInt(a, 10, 64); perr == nil {
			item, err = sess.Library.GetItem(ctx, id)
		} else {
			item, err = sess.Library.GetItemByKey(ctx, strings.ToUpper(a))
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}

	if cmd.Flags().Lookup("tag") != nil {
		if tag, _ := cmd.Flags().GetString("tag"); tag != "" {
			tagged, err := sess.Library.ListItems(ctx, library.ListOptions{Tag: tag})
			if err != nil {
				return nil, err
			}
			out = append(out, tagged...)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no items selected: pass item ids or keys, or --tag")
	}
	return out, nil
}
