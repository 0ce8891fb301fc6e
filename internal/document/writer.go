// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document writes generated reviews and bibliographies to disk
// without ever overwriting an existing file.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/picozot/pkg/types"
)

// maxAttempts bounds the " (n)" search.
const maxAttempts = 10000

// writeString is replaced in tests to simulate a failed write.
var writeString = func(f *os.File, s string) (int, error) { return f.WriteString(s) }

// Writer saves documents under Dir.
type Writer struct {
	Dir string
}

// Save writes content to Dir/filename and returns the path written. When
// the name is taken, " (1)", " (2)", ... is inserted before the extension
// until a free name is found. An empty filename means the default review
// filename; directory components are dropped.
func (w *Writer) Save(content, filename string) (string, error) {
	filename = cleanName(filename)
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for n := 0; n < maxAttempts; n++ {
		name := filename
		if n > 0 {
			name = fmt.Sprintf("%s (%d)%s", base, n, ext)
		}
		path := filepath.Join(w.Dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", path, err)
		}
		if _, err := writeString(f, content); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("closing %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %s in %s", filename, w.Dir)
}

func cleanName(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename != "" {
		filename = filepath.Base(filename)
	}
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return types.DefaultReviewFilename
	}
	return filename
}

// SiblingName swaps the extension of filename for ext.
func SiblingName(filename, ext string) string {
	filename = cleanName(filename)
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
}
