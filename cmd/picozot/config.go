// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/picozot/pkg/types"
)

var errSaveFailed = errors.New("failed to save configuration")

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change preferences",
	Long: `Config reads and writes the preference file. Keys: aiApiKey, aiModel,
aiApiEndpoint, showSidebar, logLevel. When aiApiKey is empty the key is
read from the secrets directory instead.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		values := sess.Config.Get()
		values[types.KeyAPIKey] = maskKey(fmt.Sprint(values[types.KeyAPIKey]))
		return output(cmd, values, func(w io.Writer) error {
			for _, k := range types.ConfigKeys {
				fmt.Fprintf(w, "%-14s %v\n", k, values[k])
			}
			fmt.Fprintf(w, "\nPreferences: %s\n", sess.Prefs.Path())
			return nil
		})
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !types.IsConfigKey(key) {
			return fmt.Errorf("unknown key %q: use one of %s", key, strings.Join(types.ConfigKeys, ", "))
		}
		v := sess.Config.GetValue(key, nil)
		return output(cmd, map[string]any{key: v}, func(w io.Writer) error {
			fmt.Fprintln(w, v)
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseConfigValue(args[0], args[1])
		if err != nil {
			return err
		}
		if !sess.Config.SetValue(args[0], value) {
			return errSaveFailed
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !sess.Config.Reset() {
			return errSaveFailed
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Preferences reset to defaults")
		return nil
	},
}

// parseConfigValue converts raw to the kind of key's default value.
func parseConfigValue(key, raw string) (any, error) {
	def, ok := types.DefaultConfigValues()[key]
	if !ok {
		return nil, fmt.Errorf("unknown key %q: use one of %s", key, strings.Join(types.ConfigKeys, ", "))
	}
	switch def.(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", key, err)
		}
		return b, nil
	default:
		return raw, nil
	}
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)

	rootCmd.AddCommand(configCmd)
}
