// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftext extracts plain text from PDF attachments, either with a
// local pdftotext binary or by piping the file through a container image.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/logging"
)

// DefaultImage is the container image used when no pdftotext binary is
// installed. It must provide pdftotext on its PATH.
const DefaultImage = "minidocks/poppler:latest"

// ErrUnavailable means no extraction backend could be found.
var ErrUnavailable = errors.New("no PDF text backend available")

// Extractor returns the plain text of a PDF file.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// pdftotextArgs reads the PDF named by src and writes UTF-8 text to stdout.
func pdftotextArgs(src string) []string {
	return []string{"-layout", "-enc", "UTF-8", src, "-"}
}

// CommandExtractor runs a local pdftotext binary.
type CommandExtractor struct {
	Bin  string
	exec executor
}

// NewCommandExtractor returns an extractor for the pdftotext binary on PATH.
func NewCommandExtractor() (*CommandExtractor, error) {
	return newCommandExtractor(defaultExec)
}

func newCommandExtractor(exec executor) (*CommandExtractor, error) {
	bin, err := exec.LookPath(binPdftotext)
	if err != nil {
		return nil, fmt.Errorf("%s not found: %w", binPdftotext, err)
	}
	return &CommandExtractor{Bin: bin, exec: exec}, nil
}

// ExtractText runs pdftotext on path.
func (c *CommandExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	var out bytes.Buffer
	if err := c.exec.Run(ctx, c.Bin, pdftotextArgs(path), nil, &out); err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return strings.TrimSpace(out.String()), nil
}

// ContainerExtractor pipes PDFs through pdftotext inside a container.
type ContainerExtractor struct {
	runtime Runtime
	image   string
}

// NewContainerExtractor verifies that image exists in rt.
func NewContainerExtractor(ctx context.Context, rt Runtime, image string) (*ContainerExtractor, error) {
	if image == "" {
		image = DefaultImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("pdftotext image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerExtractor{runtime: rt, image: image}, nil
}

// ExtractText streams the file at path into the container.
func (c *ContainerExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	args := append([]string{binPdftotext}, pdftotextArgs("-")...)
	if err := c.runtime.Run(ctx, c.image, args, f, &out); err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}
	return strings.TrimSpace(out.String()), nil
}

// Backend names accepted by Detect.
const (
	BackendAuto      = "auto"
	BackendCommand   = "pdftotext"
	BackendContainer = "container"
	BackendNone      = "none"
)

// Detect picks an extractor for backend. "auto" prefers a local binary and
// then a container runtime. ErrUnavailable is returned when nothing fits.
func Detect(ctx context.Context, backend, image string, logger *zap.Logger) (Extractor, error) {
	return detect(ctx, defaultExec, backend, image, logger)
}

func detect(ctx context.Context, exec executor, backend, image string, logger *zap.Logger) (Extractor, error) {
	logger = logging.OrNop(logger)
	if backend == "" {
		backend = BackendAuto
	}
	switch backend {
	case BackendNone:
		return nil, ErrUnavailable
	case BackendCommand, BackendContainer, BackendAuto:
	default:
		return nil, fmt.Errorf("unknown PDF backend %q", backend)
	}

	if backend != BackendContainer {
		ce, err := newCommandExtractor(exec)
		if err == nil {
			logger.Debug("Using local pdftotext", zap.String("bin", ce.Bin))
			return ce, nil
		}
		if backend == BackendCommand {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Debug("pdftotext not on PATH, trying container runtime", zap.Error(err))
	}

	rt, err := detectRuntime(ctx, exec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	cx, err := NewContainerExtractor(ctx, rt, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	logger.Debug("Using containerized pdftotext",
		zap.String("runtime", rt.Name()), zap.String("image", cx.image))
	return cx, nil
}
