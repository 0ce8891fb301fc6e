// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pico

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/pkg/types"
)

// Resolver reads item content and writes annotations back to the item.
type Resolver interface {
	GetItemContent(ctx context.Context, item types.Item) (string, error)
	SaveItemAnnotation(ctx context.Context, item types.Item, title, content string) error
}

// AnnotationFinder looks up a previously saved annotation by title.
type AnnotationFinder interface {
	FindAnnotation(ctx context.Context, item types.Item, title string) (string, bool, error)
}

// RecordExtractor turns content into a PICO record.
type RecordExtractor interface {
	Extract(ctx context.Context, text string) (types.PicoRecord, error)
}

// SimilarityFunc summarizes what the values of one field have in common.
type SimilarityFunc func(field types.PicoField, values []types.FieldValue) string

// BatchState describes how completely a batch ran.
type BatchState string

const (
	Completed          BatchState = "completed"
	PartiallyCompleted BatchState = "partially_completed"
)

// BatchSummary counts the outcome of an AnalyzePico run.
type BatchSummary struct {
	Analyzed int `json:"analyzed" yaml:"analyzed"`
	// Skipped items had no content.
	Skipped int `json:"skipped" yaml:"skipped"`
	// Failed items could not be resolved or extracted.
	Failed int `json:"failed" yaml:"failed"`
	// Pending items were never attempted because the context ended.
	Pending int `json:"pending" yaml:"pending"`
}

// Total returns the number of items in the batch.
func (s BatchSummary) Total() int {
	return s.Analyzed + s.Skipped + s.Failed + s.Pending
}

// State is Completed when every item produced a result.
func (s BatchSummary) State() BatchState {
	if s.Skipped+s.Failed+s.Pending == 0 {
		return Completed
	}
	return PartiallyCompleted
}

// Pipeline runs resolve, extract and persist for items.
type Pipeline struct {
	Resolver  Resolver
	Extractor RecordExtractor
	// Cache supplies earlier annotations to GetPicoElements. Nil means
	// nothing is cached.
	Cache AnnotationFinder
	// Similarity fills PicoComparison.Similarities. Nil leaves them empty.
	Similarity SimilarityFunc
	Logger     *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger { return logging.OrNop(p.Logger) }

// AnalyzePico processes items one at a time, in order. Items without
// content or whose extraction fails are left out of the result; a failed
// annotation write is logged and the item is still returned. The loop
// stops early when ctx is done.
func (p *Pipeline) AnalyzePico(ctx context.Context, items []types.Item) ([]types.AnalysisResult, BatchSummary) {
	logger := p.logger()
	logger.Info("Analyzing PICO elements", zap.Int("items", len(items)))

	results := make([]types.AnalysisResult, 0, len(items))
	var summary BatchSummary

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			summary.Pending = len(items) - i
			logger.Warn("PICO analysis interrupted",
				zap.Int("pending", summary.Pending), zap.Error(err))
			break
		}

		log := logger.With(zap.String("title", item.Title()))
		log.Debug("Processing item")

		content, err := p.Resolver.GetItemContent(ctx, item)
		if err != nil {
			log.Error("Failed to process item", zap.Error(err))
			summary.Failed++
			continue
		}
		if content == "" {
			log.Warn("No content found for item")
			summary.Skipped++
			continue
		}

		record, err := p.Extractor.Extract(ctx, content)
		if err != nil {
			log.Error("Failed to process item", zap.Error(err))
			summary.Failed++
			continue
		}

		p.save(ctx, item, record, log)

		results = append(results, types.AnalysisResult{Item: item, PicoElements: record})
		summary.Analyzed++
		log.Debug("Successfully processed item")
	}

	logger.Info("Completed PICO analysis",
		zap.Int("analyzed", summary.Analyzed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.String("state", string(summary.State())))
	return results, summary
}

// save persists record as the item's PICO annotation. Failures are logged.
func (p *Pipeline) save(ctx context.Context, item types.Item, record types.PicoRecord, log *zap.Logger) {
	if err := p.Resolver.SaveItemAnnotation(ctx, item, AnnotationTitle, FormatAnnotation(record)); err != nil {
		log.Error("Failed to save PICO elements for item", zap.Error(err))
		return
	}
	log.Debug("Saved PICO elements for item")
}

// GetPicoElements returns the cached PICO record for item when there is
// one, otherwise extracts and saves a fresh one. ErrContentUnavailable is
// returned for items with nothing to read.
func (p *Pipeline) GetPicoElements(ctx context.Context, item types.Item) (types.PicoRecord, error) {
	log := p.logger().With(zap.String("title", item.Title()))

	if record, ok := p.cached(ctx, item, log); ok {
		log.Debug("Using cached PICO analysis")
		return record, nil
	}

	content, err := p.Resolver.GetItemContent(ctx, item)
	if err != nil {
		log.Error("Failed to get PICO elements for item", zap.Error(err))
		return types.PicoRecord{}, err
	}
	if content == "" {
		err := fmt.Errorf("%w: %s", ErrContentUnavailable, item.Title())
		log.Error("Failed to get PICO elements for item", zap.Error(err))
		return types.PicoRecord{}, err
	}

	record, err := p.Extractor.Extract(ctx, content)
	if err != nil {
		log.Error("Failed to get PICO elements for item", zap.Error(err))
		return types.PicoRecord{}, err
	}

	p.save(ctx, item, record, log)
	return record, nil
}

func (p *Pipeline) cached(ctx context.Context, item types.Item, log *zap.Logger) (types.PicoRecord, bool) {
	if p.Cache == nil {
		return types.PicoRecord{}, false
	}
	text, ok, err := p.Cache.FindAnnotation(ctx, item, AnnotationTitle)
	if err != nil {
		log.Warn("Failed to get existing PICO analysis for item", zap.Error(err))
		return types.PicoRecord{}, false
	}
	if !ok {
		return types.PicoRecord{}, false
	}
	record, err := ParseAnnotation(text)
	if err != nil {
		log.Warn("Ignoring unreadable PICO annotation", zap.Error(err))
		return types.PicoRecord{}, false
	}
	return record, true
}

// ComparePicoElements gathers each item's PICO record and lists, per
// field, every item's value. Items whose record cannot be obtained are
// logged and left out.
func (p *Pipeline) ComparePicoElements(ctx context.Context, items []types.Item) types.PicoComparison {
	logger := p.logger()
	logger.Info("Comparing PICO elements", zap.Int("items", len(items)))

	cmp := types.PicoComparison{
		Similarities: make(map[types.PicoField]string, len(types.PicoFields)),
		Differences:  make(map[types.PicoField][]types.FieldValue, len(types.PicoFields)),
	}
	for _, f := range types.PicoFields {
		cmp.Differences[f] = []types.FieldValue{}
	}

	for _, item := range items {
		record, err := p.GetPicoElements(ctx, item)
		if err != nil {
			continue
		}
		for _, f := range types.PicoFields {
			cmp.Differences[f] = append(cmp.Differences[f], types.FieldValue{
				ItemID:    item.ID,
				ItemTitle: item.Title(),
				Value:     record.Value(f),
			})
		}
	}

	for _, f := range types.PicoFields {
		var summary string
		if p.Similarity != nil {
			summary = p.Similarity(f, cmp.Differences[f])
		}
		cmp.Similarities[f] = summary
	}

	logger.Info("PICO comparison completed")
	return cmp
}
