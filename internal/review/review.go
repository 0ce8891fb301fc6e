// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review assembles literature reviews from the PICO records and
// citation metadata of a set of library items.
package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/picozot/internal/aiclient"
	"github.com/pdiddy/picozot/internal/document"
	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/pkg/types"
)

var (
	ErrNoItems        = errors.New("no items selected")
	ErrNoCitations    = errors.New("no valid citations found")
	ErrNoPicoElements = errors.New("no PICO elements found")
)

// metadataConcurrency caps parallel metadata lookups.
const metadataConcurrency = 8

// PicoSource yields the PICO record of one item.
type PicoSource interface {
	GetPicoElements(ctx context.Context, item types.Item) (types.PicoRecord, error)
}

// MetadataSource yields citation metadata for one item.
type MetadataSource interface {
	GetItemMetadata(ctx context.Context, item types.Item) (types.CitationMetadata, error)
}

// DocumentWriter persists review text and returns the path written.
type DocumentWriter interface {
	Save(content, filename string) (string, error)
}

// Assembler generates literature reviews.
type Assembler struct {
	Pico      PicoSource
	Metadata  MetadataSource
	Generator aiclient.Generator
	Documents DocumentWriter
	Logger    *zap.Logger
}

func (a *Assembler) logger() *zap.Logger { return logging.OrNop(a.Logger) }

var reviewPromptTmpl = template.Must(template.New("review").Parse(`Generate a comprehensive literature review based on the following PICO elements and citations:

PICO Elements:
Population/Problem: {{.Pico.Population}}
Intervention: {{.Pico.Intervention}}
Comparison: {{or .Pico.Comparison "N/A"}}
Outcome: {{.Pico.Outcome}}

Citations:
{{range $i, $c := .Citations}}{{if $i}}

{{end}}Title: {{$c.Title}}
Authors: {{$c.Authors}}
Abstract: {{$c.Abstract}}
Year: {{$c.Year}}
Journal: {{$c.Journal}}{{end}}

{{.Instructions}}

Please structure the literature review with the following sections:
1. Introduction
2. Methods
3. Results
4. Discussion
5. Conclusion
`))

// RenderReviewPrompt builds the review prompt.
func RenderReviewPrompt(pico types.PicoRecord, citations []types.CitationMetadata, instructions string) (string, error) {
	var buf bytes.Buffer
	err := reviewPromptTmpl.Execute(&buf, struct {
		Pico         types.PicoRecord
		Citations    []types.CitationMetadata
		Instructions string
	}{pico, citations, instructions})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CombineElementValues merges one PICO field across records. Empty values
// and exact repeats are dropped; the rest are joined with " | " in input
// order. The PicoZot add-on kept repeats, so ["A", "A"] gave "A | A"; here
// it gives "A".
func CombineElementValues(values []string) string {
	seen := make(map[string]bool, len(values))
	var kept []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		kept = append(kept, v)
	}
	return strings.Join(kept, " | ")
}

// CombinePicoElements fetches the PICO record of every item and merges them
// field by field. Items whose record cannot be obtained are logged and left
// out; ErrNoPicoElements is returned when none remain.
func (a *Assembler) CombinePicoElements(ctx context.Context, items []types.Item) (types.PicoRecord, error) {
	log := a.logger()
	log.Info("Combining PICO elements", zap.Int("items", len(items)))

	var records []types.PicoRecord
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return types.PicoRecord{}, err
		}
		r, err := a.Pico.GetPicoElements(ctx, item)
		if err != nil {
			log.Error("Failed to get PICO elements for item",
				zap.String("title", item.Title()), zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if len(records) == 0 {
		return types.PicoRecord{}, ErrNoPicoElements
	}

	field := func(f types.PicoField) string {
		vals := make([]string, len(records))
		for i, r := range records {
			vals[i] = r.Value(f)
		}
		return CombineElementValues(vals)
	}
	return types.PicoRecord{
		Population:   field(types.FieldPopulation),
		Intervention: field(types.FieldIntervention),
		Comparison:   field(types.FieldComparison),
		Outcome:      field(types.FieldOutcome),
	}, nil
}

// citations fetches metadata for every item concurrently. Failed lookups
// are logged and dropped; the order of the rest follows items.
func (a *Assembler) citations(ctx context.Context, items []types.Item) ([]types.CitationMetadata, error) {
	log := a.logger()
	results := make([]*types.CitationMetadata, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataConcurrency)
	for i, item := range items {
		g.Go(func() error {
			md, err := a.Metadata.GetItemMetadata(gctx, item)
			if err != nil {
				log.Error("Failed to get metadata for item",
					zap.String("title", item.Title()), zap.Error(err))
				return nil
			}
			results[i] = &md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]types.CitationMetadata, 0, len(items))
	for _, md := range results {
		if md != nil {
			out = append(out, *md)
		}
	}
	return out, nil
}

// GenerateLiteratureReview builds one review from items. The PICO record is
// the merge of every item when opts.CombinePico is set, otherwise the first
// item's alone. The model is called once. Saving is best effort: failures
// are logged and the generated text is still returned.
func (a *Assembler) GenerateLiteratureReview(ctx context.Context, items []types.Item, opts types.ReviewOptions) (types.Review, error) {
	log := a.logger()
	if len(items) == 0 {
		return types.Review{}, ErrNoItems
	}
	log.Info("Generating literature review", zap.Int("items", len(items)))

	var (
		pico types.PicoRecord
		err  error
	)
	if opts.CombinePico {
		pico, err = a.CombinePicoElements(ctx, items)
	} else {
		pico, err = a.Pico.GetPicoElements(ctx, items[0])
	}
	if err != nil {
		log.Error("Failed to generate literature review", zap.Error(err))
		return types.Review{}, err
	}

	citations, err := a.citations(ctx, items)
	if err != nil {
		return types.Review{}, err
	}
	if len(citations) == 0 {
		log.Error("Failed to generate literature review", zap.Error(ErrNoCitations))
		return types.Review{}, ErrNoCitations
	}

	prompt, err := RenderReviewPrompt(pico, citations, opts.AdditionalInstructions)
	if err != nil {
		return types.Review{}, fmt.Errorf("rendering review prompt: %w", err)
	}
	text, err := a.Generator.GenerateText(ctx, prompt, aiclient.Options{MaxTokens: aiclient.ReviewMaxTokens})
	if err != nil {
		log.Error("Failed to generate literature review", zap.Error(err))
		return types.Review{}, fmt.Errorf("failed to generate literature review: %w", err)
	}

	rv := types.Review{Text: text, Pico: pico, Citations: citations}
	if opts.SaveToFile || opts.ExportBibTeX {
		a.save(&rv, opts, log)
	}

	log.Info("Literature review generated successfully",
		zap.Int("citations", len(citations)), zap.String("path", rv.Path))
	return rv, nil
}

func (a *Assembler) save(rv *types.Review, opts types.ReviewOptions, log *zap.Logger) {
	if a.Documents == nil {
		log.Warn("No document writer configured; review not saved")
		return
	}
	filename := opts.Filename
	if filename == "" {
		filename = types.DefaultReviewFilename
	}

	if opts.SaveToFile {
		path, err := a.Documents.Save(rv.Text, filename)
		if err != nil {
			log.Error("Failed to save literature review", zap.String("filename", filename), zap.Error(err))
		} else {
			rv.Path = path
			filename = filepath.Base(path)
			log.Info("Literature review saved", zap.String("path", path))
		}
	}

	if opts.ExportBibTeX {
		bibName := document.SiblingName(filename, ".bib")
		path, err := a.Documents.Save(document.BibTeX(rv.Citations), bibName)
		if err != nil {
			log.Error("Failed to save BibTeX", zap.String("filename", bibName), zap.Error(err))
			return
		}
		rv.BibPath = path
	}
}
