// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/picozot/pkg/types"
)

// DefaultTemplate is returned for unknown template names.
const DefaultTemplate = "default"

// DefaultStyle is the citation style FormatReview assumes.
const DefaultStyle = "apa"

//go:embed templates.yaml
var templatesYAML []byte

var (
	templatesOnce sync.Once
	templates     map[string]types.ReviewTemplate
	templatesErr  error
)

func loadTemplates() (map[string]types.ReviewTemplate, error) {
	templatesOnce.Do(func() {
		var m map[string]types.ReviewTemplate
		if err := yaml.Unmarshal(templatesYAML, &m); err != nil {
			templatesErr = fmt.Errorf("parsing review templates: %w", err)
			return
		}
		if _, ok := m[DefaultTemplate]; !ok {
			templatesErr = fmt.Errorf("review templates: missing %q", DefaultTemplate)
			return
		}
		templates = m
	})
	return templates, templatesErr
}

// GetReviewTemplate returns the named section template. Unknown names fall
// back to the default template. The result is a copy; callers may modify it.
func GetReviewTemplate(name string) (types.ReviewTemplate, error) {
	m, err := loadTemplates()
	if err != nil {
		return types.ReviewTemplate{}, err
	}
	t, ok := m[name]
	if !ok {
		t = m[DefaultTemplate]
	}
	return cloneTemplate(t), nil
}

// TemplateNames lists the available template names in sorted order.
func TemplateNames() []string {
	m, err := loadTemplates()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func cloneTemplate(t types.ReviewTemplate) types.ReviewTemplate {
	t.Sections = cloneSections(t.Sections)
	return t
}

func cloneSections(in []types.TemplateSection) []types.TemplateSection {
	if in == nil {
		return nil
	}
	out := make([]types.TemplateSection, len(in))
	for i, s := range in {
		s.Subsections = cloneSections(s.Subsections)
		out[i] = s
	}
	return out
}

// FormatReview returns text unchanged. Style selection is accepted for
// callers but not applied yet.
func FormatReview(text, style string) string {
	return text
}
