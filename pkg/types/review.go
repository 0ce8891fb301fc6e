// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DefaultReviewFilename is used when a review is saved without a filename.
const DefaultReviewFilename = "Literature Review.docx"

// ReviewOptions controls one literature review generation.
type ReviewOptions struct {
	// CombinePico merges the PICO records of every item. When false only
	// the first item's record is used.
	CombinePico bool `json:"combinePico" yaml:"combinePico"`

	// AdditionalInstructions is appended verbatim to the prompt.
	AdditionalInstructions string `json:"additionalInstructions,omitempty" yaml:"additionalInstructions,omitempty"`

	// SaveToFile writes the review through the document writer.
	SaveToFile bool `json:"saveToFile" yaml:"saveToFile"`

	// Filename overrides DefaultReviewFilename.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`

	// ExportBibTeX writes the citations next to the saved review.
	ExportBibTeX bool `json:"exportBibTeX,omitempty" yaml:"exportBibTeX,omitempty"`
}

// Review is the outcome of a literature review generation.
type Review struct {
	Text      string             `json:"text" yaml:"text"`
	Pico      PicoRecord         `json:"pico" yaml:"pico"`
	Citations []CitationMetadata `json:"citations" yaml:"citations"`

	// Path is where the review was saved; empty when not saved.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// BibPath is where the BibTeX export was saved; empty when not saved.
	BibPath string `json:"bibPath,omitempty" yaml:"bibPath,omitempty"`
}

// TemplateSection describes one section of a review template.
type TemplateSection struct {
	Title       string            `json:"title" yaml:"title"`
	Content     string            `json:"content,omitempty" yaml:"content,omitempty"`
	Subsections []TemplateSection `json:"subsections,omitempty" yaml:"subsections,omitempty"`
}

// TemplateFormat holds presentation hints for a review template.
type TemplateFormat struct {
	HeadingStyle  string `json:"headingStyle" yaml:"headingStyle"`
	CitationStyle string `json:"citationStyle" yaml:"citationStyle"`
}

// ReviewTemplate is a static, descriptive section list.
type ReviewTemplate struct {
	Name     string            `json:"name" yaml:"name"`
	Sections []TemplateSection `json:"sections" yaml:"sections"`
	Format   TemplateFormat    `json:"format" yaml:"format"`
}
