// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the picozot CLI: PICO extraction
// and literature review generation over a local reference library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/picozot/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// sess is opened before every command that needs it and closed after.
var sess *session.Session

// noSession marks commands that run without opening the library.
const noSession = "noSession"

var rootCmd = &cobra.Command{
	Use:   "picozot",
	Short: "PICO extraction and literature reviews for a reference library",
	Long: `picozot extracts Population, Intervention, Comparison and Outcome
fields from the items of a local reference library with a text-generation
model, stores each result as a note on the item, and assembles literature
reviews from the collected fields and citation metadata.

Items are addressed by numeric id or by key. Add them with "library add",
"library import" (CSL-JSON or CSL-YAML) or "library doi".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[noSession] != "" {
			return nil
		}
		s, err := session.Initialize(cmd.Context(), sessionOptions())
		if err != nil {
			return err
		}
		sess = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		sess.Shutdown()
		sess = nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./picozot.yaml or ~/.config/picozot/picozot.yaml)")
	pf.String("data-dir", "", "data directory (default: ~/.picozot)")
	pf.String("prefs-file", "", "preference file (default: <data-dir>/prefs.yaml)")
	pf.String("library-file", "", "library database (default: <data-dir>/library.db)")
	pf.String("documents-dir", "", "directory for saved reviews (default: <data-dir>/PicoZot)")
	pf.String("storage-dir", "", "directory for downloaded attachments (default: <data-dir>/storage)")
	pf.String("pdf-backend", "auto", "PDF text backend: auto, pdftotext, container, none")
	pf.String("pdf-image", "", "container image providing pdftotext")
	pf.String("log-level", "", "log level override: debug, info, warn, error")
	pf.Bool("json", false, "output as JSON")
	pf.Bool("yaml", false, "output as YAML")

	for key, flag := range map[string]string{
		"data_dir":      "data-dir",
		"prefs_file":    "prefs-file",
		"library_file":  "library-file",
		"documents_dir": "documents-dir",
		"storage_dir":   "storage-dir",
		"pdf_backend":   "pdf-backend",
		"pdf_image":     "pdf-image",
		"log_level":     "log-level",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("picozot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "picozot"))
		}
	}

	viper.SetEnvPrefix("PICOZOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func sessionOptions() session.Options {
	return session.Options{
		DataDir:      viper.GetString("data_dir"),
		PrefsFile:    viper.GetString("prefs_file"),
		LibraryFile:  viper.GetString("library_file"),
		DocumentsDir: viper.GetString("documents_dir"),
		StorageDir:   viper.GetString("storage_dir"),
		PDFBackend:   viper.GetString("pdf_backend"),
		PDFImage:     viper.GetString("pdf_image"),
		LogLevel:     viper.GetString("log_level"),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	sess.Shutdown()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
