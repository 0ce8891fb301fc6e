// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pico extracts Population, Intervention, Comparison and Outcome
// fields from item content with a text-generation model, caches them as
// item annotations, and compares them across items.
package pico

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/picozot/internal/aiclient"
	"github.com/pdiddy/picozot/internal/logging"
	"github.com/pdiddy/picozot/pkg/types"
)

// ErrContentUnavailable means an item had no abstract, notes or PDF text
// to analyze.
var ErrContentUnavailable = errors.New("no content found for item")

// ExtractionError wraps any failure to obtain a well-formed PICO record
// from the model: a client error or an unparseable response.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return "failed to extract PICO elements: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// extractionPromptTmpl asks the model for the four PICO fields of .Text.
var extractionPromptTmpl = template.Must(template.New("pico").Parse(`Analyze the following text and extract the PICO elements:

Population/Problem: The specific patient population or problem being addressed
Intervention: The intervention or exposure being considered
Comparison: The comparison intervention or exposure (if applicable)
Outcome: The outcome measures

Text to analyze:
{{.Text}}

Please return the results in JSON format with the following structure:
{
  "population": "description",
  "intervention": "description",
  "comparison": "description",
  "outcome": "description"
}
`))

// RenderPrompt builds the extraction prompt for text.
func RenderPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Text string }{text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Extractor turns free text into a PicoRecord with one model call.
type Extractor struct {
	Generator aiclient.Generator
	Logger    *zap.Logger
}

// Extract sends the extraction prompt once and parses the reply strictly.
// Every failure is an *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, text string) (types.PicoRecord, error) {
	logger := logging.OrNop(e.Logger)

	prompt, err := RenderPrompt(text)
	if err != nil {
		return types.PicoRecord{}, &ExtractionError{Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	reply, err := e.Generator.GenerateText(ctx, prompt, aiclient.Options{})
	if err != nil {
		logger.Error("Failed to extract PICO elements", zap.Error(err))
		return types.PicoRecord{}, &ExtractionError{Err: err}
	}

	record, err := ParseRecord(reply)
	if err != nil {
		logger.Error("Failed to extract PICO elements", zap.Error(err))
		return types.PicoRecord{}, &ExtractionError{Err: err}
	}
	return record, nil
}

// ParseRecord decodes a model reply as a JSON object. population,
// intervention and outcome must be present strings (empty is allowed);
// comparison may be absent, null or a string. Other keys are ignored.
func ParseRecord(reply string) (types.PicoRecord, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply), &obj); err != nil {
		return types.PicoRecord{}, fmt.Errorf("parsing response JSON: %w", err)
	}
	if obj == nil {
		return types.PicoRecord{}, errors.New("parsing response JSON: not an object")
	}

	var (
		rec  types.PicoRecord
		errs []error
	)
	for _, f := range types.PicoFields {
		v, err := stringField(obj, string(f), f != types.FieldComparison)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch f {
		case types.FieldPopulation:
			rec.Population = v
		case types.FieldIntervention:
			rec.Intervention = v
		case types.FieldComparison:
			rec.Comparison = v
		case types.FieldOutcome:
			rec.Outcome = v
		}
	}
	if err := errors.Join(errs...); err != nil {
		return types.PicoRecord{}, err
	}
	return rec, nil
}

func stringField(obj map[string]json.RawMessage, key string, required bool) (string, error) {
	raw, ok := obj[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string", key)
	}
	return s, nil
}
