// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pico

import (
	"fmt"
	"strings"

	"github.com/pdiddy/picozot/pkg/types"
)

// AnnotationTitle is the title of the note a PICO record is cached under.
const AnnotationTitle = "PICO Analysis"

// notApplicable stands in for an empty comparison.
const notApplicable = "N/A"

// annotationLabels maps section labels to fields, in output order.
var annotationLabels = []struct {
	label string
	field types.PicoField
}{
	{"Population/Problem:", types.FieldPopulation},
	{"Intervention:", types.FieldIntervention},
	{"Comparison:", types.FieldComparison},
	{"Outcome:", types.FieldOutcome},
}

// FormatAnnotation renders a record as labeled plain-text sections.
func FormatAnnotation(r types.PicoRecord) string {
	var b strings.Builder
	b.WriteString(AnnotationTitle + "\n")
	b.WriteString(strings.Repeat("-", len(AnnotationTitle)) + "\n")
	for _, l := range annotationLabels {
		v := r.Value(l.field)
		if l.field == types.FieldComparison && v == "" {
			v = notApplicable
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", l.label, v)
	}
	return b.String()
}

// ParseAnnotation reads text written by FormatAnnotation back into a
// record. A comparison of "N/A" reads as empty.
func ParseAnnotation(text string) (types.PicoRecord, error) {
	values := map[types.PicoField][]string{}
	var current types.PicoField

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if f, ok := labelField(trimmed); ok {
			current = f
			values[f] = []string{}
			continue
		}
		if current == "" {
			continue
		}
		values[current] = append(values[current], line)
	}

	var rec types.PicoRecord
	for _, l := range annotationLabels {
		lines, ok := values[l.field]
		if !ok {
			if l.field == types.FieldComparison {
				continue
			}
			return types.PicoRecord{}, fmt.Errorf("annotation has no %s section", strings.TrimSuffix(l.label, ":"))
		}
		v := strings.TrimSpace(strings.Join(lines, "\n"))
		switch l.field {
		case types.FieldPopulation:
			rec.Population = v
		case types.FieldIntervention:
			rec.Intervention = v
		case types.FieldComparison:
			if v != notApplicable {
				rec.Comparison = v
			}
		case types.FieldOutcome:
			rec.Outcome = v
		}
	}
	return rec, nil
}

func labelField(line string) (types.PicoField, bool) {
	for _, l := range annotationLabels {
		if line == l.label {
			return l.field, true
		}
	}
	return "", false
}
