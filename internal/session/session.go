// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session wires the picozot components together. A Session is
// created once per process with Initialize and released with Shutdown;
// every operation receives it explicitly.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/aiclient"
	"github.com/pdiddy/picozot/internal/config"
	"github.com/pdiddy/picozot/internal/document"
	"github.com/pdiddy/picozot/internal/library"
	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/internal/pdftext"
	"github.com/pdiddy/picozot/internal/pico"
	"github.com/pdiddy/picozot/internal/review"
	"github.com/pdiddy/picozot/internal/secrets"
	"github.com/pdiddy/picozot/pkg/types"
)

// Default file and directory names under DataDir.
const (
	DefaultPrefsFile    = "prefs.yaml"
	DefaultLibraryFile  = "library.db"
	DefaultDocumentsDir = "PicoZot"
	DefaultSecretsDir   = ".secrets"
	DefaultStorageDir   = "storage"
)

// Options locates the session's files and overrides preferences.
// Empty paths resolve under DataDir.
type Options struct {
	DataDir      string
	PrefsFile    string
	LibraryFile  string
	DocumentsDir string
	SecretsDir   string
	// StorageDir receives downloaded attachments.
	StorageDir string

	// PDFBackend is one of the pdftext backends; empty means auto.
	PDFBackend string
	PDFImage   string

	// LogLevel overrides the logLevel preference when set.
	LogLevel string
	LogPaths []string

	HTTPClient *http.Client

	// Logger replaces the logger built from LogLevel and LogPaths.
	Logger *zap.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return o, fmt.Errorf("locating home directory: %w", err)
		}
		o.DataDir = filepath.Join(home, ".picozot")
	}
	under := func(p, def string) string {
		if p == "" {
			return filepath.Join(o.DataDir, def)
		}
		return p
	}
	o.PrefsFile = under(o.PrefsFile, DefaultPrefsFile)
	o.LibraryFile = under(o.LibraryFile, DefaultLibraryFile)
	o.DocumentsDir = under(o.DocumentsDir, DefaultDocumentsDir)
	o.SecretsDir = under(o.SecretsDir, DefaultSecretsDir)
	o.StorageDir = under(o.StorageDir, DefaultStorageDir)
	if o.PDFImage == "" {
		o.PDFImage = pdftext.DefaultImage
	}
	return o, nil
}

// Session holds the initialized components.
type Session struct {
	Options Options

	Prefs     *config.ViperStore
	Config    *config.Provider
	Secrets   secrets.Secrets
	Logger    *zap.Logger
	Library   *library.Store
	Resolver  *library.Resolver
	OpenAlex  *library.OpenAlexClient
	Generator aiclient.Generator
	Pipeline  *pico.Pipeline
	Documents *document.Writer
	Assembler *review.Assembler

	ownLogger bool
}

// Initialize loads preferences and secrets, opens the library and builds
// the extraction pipeline and review assembler. A missing API key is not
// an error; model calls then fail with aiclient.ErrNotInitialized.
func Initialize(ctx context.Context, opts Options) (*Session, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	s := &Session{Options: opts}

	prefs, prefsErr := config.NewViperStore(opts.PrefsFile)
	s.Prefs = prefs

	if err := s.initLogger(); err != nil {
		return nil, err
	}
	log := s.Logger
	if prefsErr != nil {
		log.Warn("Failed to read preferences, using defaults", zap.Error(prefsErr))
	}

	s.Config = config.NewProvider(prefs, log)
	s.Config.Load()

	s.Secrets, err = secrets.Load(opts.SecretsDir, log)
	if err != nil {
		log.Warn("Failed to load secrets", zap.Error(err))
		s.Secrets = secrets.Secrets{}
	}

	s.Library, err = library.Open(opts.LibraryFile)
	if err != nil {
		s.Shutdown()
		return nil, err
	}

	pdf, err := pdftext.Detect(ctx, opts.PDFBackend, opts.PDFImage, log)
	switch {
	case errors.Is(err, pdftext.ErrUnavailable):
		log.Info("PDF text extraction disabled", zap.Error(err))
		pdf = nil
	case err != nil:
		s.Shutdown()
		return nil, err
	}

	s.Resolver = &library.Resolver{Store: s.Library, PDF: pdf, Logger: log}
	s.OpenAlex = &library.OpenAlexClient{Client: opts.HTTPClient, Email: s.Secrets[secrets.KeyOpenAlexEmail]}
	s.Generator = aiclient.New(s.AIConfig(), aiclient.WithHTTPClient(opts.HTTPClient), aiclient.WithLogger(log))
	s.Pipeline = &pico.Pipeline{
		Resolver:  s.Resolver,
		Extractor: &pico.Extractor{Generator: s.Generator, Logger: log},
		Cache:     s.Resolver,
		Logger:    log,
	}
	s.Documents = &document.Writer{Dir: opts.DocumentsDir}
	s.Assembler = &review.Assembler{
		Pico:      s.Pipeline,
		Metadata:  s.Resolver,
		Generator: s.Generator,
		Documents: s.Documents,
		Logger:    log,
	}

	log.Debug("Session initialized",
		zap.String("library", opts.LibraryFile),
		zap.String("prefs", opts.PrefsFile),
		zap.Bool("pdf", pdf != nil))
	return s, nil
}

func (s *Session) initLogger() error {
	if s.Options.Logger != nil {
		s.Logger = s.Options.Logger
		return nil
	}
	level := s.Options.LogLevel
	if level == "" && s.Prefs != nil {
		if v, ok := s.Prefs.Get(config.Namespace + types.KeyLogLevel).(string); ok {
			level = v
		}
	}
	if level == "" {
		level = types.DefaultLogLevel
	}
	logger, err := logging.New(level, s.Options.LogPaths...)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	s.Logger = logger
	s.ownLogger = true
	return nil
}

// AIConfig returns the current preferences with the API key falling back
// to the secrets directory when the preference is empty.
func (s *Session) AIConfig() types.Config {
	cfg := s.Config.Config()
	if cfg.APIKey == "" {
		cfg.APIKey = s.Secrets.APIKey(cfg.Endpoint)
	}
	return cfg
}

// Reconfigure rebuilds the generator after a preference change.
func (s *Session) Reconfigure() {
	s.Generator = aiclient.New(s.AIConfig(),
		aiclient.WithHTTPClient(s.Options.HTTPClient), aiclient.WithLogger(s.Logger))
	s.Pipeline.Extractor = &pico.Extractor{Generator: s.Generator, Logger: s.Logger}
	s.Assembler.Generator = s.Generator
}

// Shutdown closes the library and flushes the logger. It is safe to call
// on a partially initialized session.
func (s *Session) Shutdown() {
	if s == nil {
		return
	}
	if s.Library != nil {
		if err := s.Library.Close(); err != nil && s.Logger != nil {
			s.Logger.Warn("Failed to close library", zap.Error(err))
		}
		s.Library = nil
	}
	if s.Logger != nil && s.ownLogger {
		_ = s.Logger.Sync()
	}
}
