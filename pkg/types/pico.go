// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for picozot: PICO records,
// citation metadata, library items, review requests and configuration.
package types

// PicoField names one of the four PICO elements.
type PicoField string

const (
	FieldPopulation   PicoField = "population"
	FieldIntervention PicoField = "intervention"
	FieldComparison   PicoField = "comparison"
	FieldOutcome      PicoField = "outcome"
)

// PicoFields lists the PICO elements in canonical order.
var PicoFields = []PicoField{FieldPopulation, FieldIntervention, FieldComparison, FieldOutcome}

// PicoRecord holds the PICO elements extracted from one item's content.
// Comparison is optional and may be empty.
type PicoRecord struct {
	Population   string `json:"population" yaml:"population"`
	Intervention string `json:"intervention" yaml:"intervention"`
	Comparison   string `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Outcome      string `json:"outcome" yaml:"outcome"`
}

// Value returns the text of one PICO field.
func (r PicoRecord) Value(f PicoField) string {
	switch f {
	case FieldPopulation:
		return r.Population
	case FieldIntervention:
		return r.Intervention
	case FieldComparison:
		return r.Comparison
	case FieldOutcome:
		return r.Outcome
	}
	return ""
}

// AnalysisResult pairs an item with the PICO record extracted from it.
type AnalysisResult struct {
	Item         Item       `json:"item" yaml:"item"`
	PicoElements PicoRecord `json:"picoElements" yaml:"picoElements"`
}

// FieldValue is one item's value for a PICO field in a comparison.
type FieldValue struct {
	ItemID    int64  `json:"itemId" yaml:"itemId"`
	ItemTitle string `json:"itemTitle" yaml:"itemTitle"`
	Value     string `json:"value" yaml:"value"`
}

// PicoComparison groups, per PICO field, a similarity summary and the
// per-item values.
type PicoComparison struct {
	Similarities map[PicoField]string       `json:"similarities" yaml:"similarities"`
	Differences  map[PicoField][]FieldValue `json:"differences" yaml:"differences"`
}
