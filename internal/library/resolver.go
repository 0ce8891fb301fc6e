// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/internal/pdftext"
	"github.com/pdiddy/picozot/pkg/types"
)

// Resolver reads item content and metadata and writes annotations.
type Resolver struct {
	Store *Store
	// PDF extracts attachment text. Nil disables PDF content.
	PDF    pdftext.Extractor
	Logger *zap.Logger
}

func (r *Resolver) logger() *zap.Logger { return logging.OrNop(r.Logger) }

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	breakPattern   = regexp.MustCompile(`(?i)<br\s*/?>`)
	headingPattern = regexp.MustCompile(`(?is)<h1[^>]*>.*?</h1>`)
)

// noteText flattens note HTML to a single run of text.
func noteText(content string) string {
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(content, " ")))
}

// annotationHTML renders an annotation note body.
func annotationHTML(title, content string) string {
	body := strings.ReplaceAll(html.EscapeString(content), "\n", "<br>")
	return "<h1>" + html.EscapeString(title) + "</h1><p>" + body + "</p>"
}

// annotationText reverses annotationHTML, dropping the heading.
func annotationText(content string) string {
	s := headingPattern.ReplaceAllString(content, "")
	s = breakPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// GetItemContent concatenates the abstract, the plain text of every child
// note and the text of every PDF attachment, separated by blank lines.
// An item with nothing to read yields "" and a warning, not an error.
// Individual notes or PDFs that fail are logged and skipped.
func (r *Resolver) GetItemContent(ctx context.Context, item types.Item) (string, error) {
	log := r.logger().With(zap.String("title", item.Title()))
	log.Debug("Getting content for item")

	var parts []string
	if abstract := strings.TrimSpace(item.Field(types.ItemFieldAbstract)); abstract != "" {
		parts = append(parts, abstract)
	}

	notes, err := r.Store.Notes(ctx, item.ID)
	if err != nil {
		log.Warn("Failed to get notes for item", zap.Error(err))
	}
	for _, n := range notes {
		if text := noteText(n.Content); text != "" {
			parts = append(parts, text)
		}
	}

	parts = append(parts, r.pdfContent(ctx, item, log)...)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	content := strings.Join(parts, "\n\n")
	if content == "" {
		log.Warn("No content found for item")
	} else {
		log.Debug("Content retrieved for item", zap.Int("sections", len(parts)))
	}
	return content, nil
}

func (r *Resolver) pdfContent(ctx context.Context, item types.Item, log *zap.Logger) []string {
	atts, err := r.Store.Attachments(ctx, item.ID)
	if err != nil {
		log.Warn("Failed to get attachments for item", zap.Error(err))
		return nil
	}

	var texts []string
	for _, a := range atts {
		if a.ContentType != types.ContentTypePDF {
			continue
		}
		if r.PDF == nil {
			log.Debug("PDF text extraction unavailable, skipping attachment", zap.String("path", a.Path))
			continue
		}
		text, err := r.PDF.ExtractText(ctx, a.Path)
		if err != nil {
			log.Warn("Failed to get PDF content for attachment",
				zap.String("path", a.Path), zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

// SaveItemAnnotation stores content as a new child note titled title.
func (r *Resolver) SaveItemAnnotation(ctx context.Context, item types.Item, title, content string) error {
	if _, err := r.Store.AddNote(ctx, item.ID, title, annotationHTML(title, content)); err != nil {
		r.logger().Error("Failed to save annotation to item",
			zap.String("title", item.Title()), zap.Error(err))
		return fmt.Errorf("saving annotation %q: %w", title, err)
	}
	r.logger().Debug("Annotation saved to item", zap.String("title", item.Title()))
	return nil
}

// FindAnnotation returns the body of the most recent child note titled
// title, with line breaks restored. ok is false when there is none.
func (r *Resolver) FindAnnotation(ctx context.Context, item types.Item, title string) (text string, ok bool, err error) {
	notes, err := r.Store.Notes(ctx, item.ID)
	if err != nil {
		return "", false, err
	}
	for i := len(notes) - 1; i >= 0; i-- {
		if notes[i].Title == title {
			return annotationText(notes[i].Content), true, nil
		}
	}
	return "", false, nil
}

// GetItemMetadata projects item onto the citation fields used in review
// prompts.
func (r *Resolver) GetItemMetadata(_ context.Context, item types.Item) (types.CitationMetadata, error) {
	r.logger().Debug("Getting metadata for item", zap.String("title", item.Title()))
	return Metadata(item), nil
}

// Metadata is the pure projection behind GetItemMetadata.
func Metadata(item types.Item) types.CitationMetadata {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	return types.CitationMetadata{
		Title:    item.Title(),
		Authors:  firstNonEmpty(item.Field(types.ItemFieldCreators), item.Field(types.ItemFieldAuthor)),
		Year:     firstNonEmpty(item.Field(types.ItemFieldYear), item.Field(types.ItemFieldDate)),
		Journal:  firstNonEmpty(item.Field(types.ItemFieldPublicationTitle), item.Field(types.ItemFieldPublisher)),
		Abstract: item.Field(types.ItemFieldAbstract),
		ItemType: item.ItemType,
		Tags:     tags,
		ID:       item.ID,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
