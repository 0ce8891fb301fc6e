// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/picozot/internal/httputil"
	"github.com/pdiddy/picozot/pkg/types"
)

// UserAgent identifies picozot to download hosts.
const UserAgent = "picozot (+https://github.com/pdiddy/picozot)"

var pdfMagic = []byte("%PDF-")

// DownloadPDF fetches url into destPath through a temporary file in the
// same directory, so destPath is either complete or absent. Responses that
// do not start with the PDF signature are rejected.
func DownloadPDF(ctx context.Context, client *http.Client, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", types.ContentTypePDF)

	resp, err := httputil.Client(client).Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	head := make([]byte, len(pdfMagic))
	n, _ := io.ReadFull(resp.Body, head)
	if !bytes.Equal(head[:n], pdfMagic) {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("response from %s is not a PDF", url)
	}

	_, copyErr := io.Copy(tmpFile, io.MultiReader(bytes.NewReader(head[:n]), resp.Body))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// AttachPDF downloads url into dir as <item key>.pdf and links it to item.
func (s *Store) AttachPDF(ctx context.Context, client *http.Client, item types.Item, url, dir string) (types.Attachment, error) {
	dest := filepath.Join(dir, item.Key+".pdf")
	if err := DownloadPDF(ctx, client, url, dest); err != nil {
		return types.Attachment{}, err
	}
	return s.AddAttachment(ctx, item.ID, "Full Text PDF", types.ContentTypePDF, dest)
}
