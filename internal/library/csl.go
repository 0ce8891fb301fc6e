// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/picozot/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form.
// CSL-JSON parses through the same YAML decoder.
type CSLItem struct {
	ID             string    `yaml:"id" json:"id"`
	Type           string    `yaml:"type" json:"type"`
	Title          string    `yaml:"title" json:"title"`
	Author         []CSLName `yaml:"author,omitempty" json:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty" json:"issued,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty" json:"container-title,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	DOI            string    `yaml:"DOI,omitempty" json:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty" json:"URL,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	Note           string    `yaml:"note,omitempty" json:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty" json:"family,omitempty"`
	Given   string `yaml:"given,omitempty" json:"given,omitempty"`
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
}

// CSLDate is a date in CSL form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts,omitempty" json:"date-parts,omitempty"`
	Raw       string  `yaml:"raw,omitempty" json:"raw,omitempty"`
}

// UnmarshalYAML accepts date parts written as numbers or numeric strings;
// Zotero exports the year as a string.
func (d *CSLDate) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DateParts [][]any `yaml:"date-parts"`
		Raw       string  `yaml:"raw"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	d.Raw = raw.Raw
	d.DateParts = make([][]int, 0, len(raw.DateParts))
	for _, parts := range raw.DateParts {
		ints := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := datePart(p)
			if err != nil {
				return fmt.Errorf("line %d: %w", value.Line, err)
			}
			ints = append(ints, n)
		}
		d.DateParts = append(d.DateParts, ints)
	}
	return nil
}

func datePart(v any) (int, error) {
	switch p := v.(type) {
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case uint64:
		return int(p), nil
	case float64:
		return int(p), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, fmt.Errorf("invalid date part %q", p)
		}
		return n, nil
	}
	return 0, fmt.Errorf("invalid date part %v", v)
}

// cslItemTypes maps CSL types to library item types.
var cslItemTypes = map[string]string{
	"article-journal":  "journalArticle",
	"article":          "journalArticle",
	"book":             "book",
	"chapter":          "bookSection",
	"paper-conference": "conferencePaper",
	"report":           "report",
	"thesis":           "thesis",
	"webpage":          "webpage",
}

// ImportCSL reads a CSL-YAML or CSL-JSON list from r and adds each entry
// to the store. A CSL note becomes a child note.
func (s *Store) ImportCSL(ctx context.Context, r io.Reader) ([]types.Item, error) {
	var entries []CSLItem
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing CSL: %w", err)
	}

	items := make([]types.Item, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			return items, fmt.Errorf("CSL entry %d (%q) has no title", i, e.ID)
		}
		item, err := s.AddItem(ctx, fromCSL(e))
		if err != nil {
			return items, fmt.Errorf("importing %q: %w", e.Title, err)
		}
		if note := strings.TrimSpace(e.Note); note != "" {
			if _, err := s.AddNote(ctx, item.ID, "", "<p>"+escapeNote(note)+"</p>"); err != nil {
				return items, fmt.Errorf("importing note for %q: %w", e.Title, err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func escapeNote(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

// fromCSL converts a CSL entry to an unsaved item.
func fromCSL(e CSLItem) types.Item {
	itemType := cslItemTypes[e.Type]
	if itemType == "" {
		itemType = "document"
	}

	fields := map[string]string{types.ItemFieldTitle: strings.TrimSpace(e.Title)}
	set := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fields[name] = value
		}
	}
	set(types.ItemFieldCreators, formatCreators(e.Author))
	set(types.ItemFieldAbstract, e.Abstract)
	set(types.ItemFieldPublicationTitle, e.ContainerTitle)
	set(types.ItemFieldPublisher, e.Publisher)
	set(types.ItemFieldDOI, e.DOI)
	set(types.ItemFieldURL, e.URL)
	if e.Issued != nil {
		set(types.ItemFieldYear, e.Issued.year())
		set(types.ItemFieldDate, e.Issued.date())
	}

	var tags []string
	for _, kw := range strings.Split(e.Keyword, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			tags = append(tags, kw)
		}
	}

	return types.Item{ItemType: itemType, Fields: fields, Tags: tags}
}

func (d CSLDate) year() string {
	if len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
		return strconv.Itoa(d.DateParts[0][0])
	}
	if len(d.Raw) >= 4 {
		if _, err := strconv.Atoi(d.Raw[:4]); err == nil {
			return d.Raw[:4]
		}
	}
	return ""
}

func (d CSLDate) date() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return d.Raw
	}
	parts := d.DateParts[0]
	out := fmt.Sprintf("%04d", parts[0])
	for _, p := range parts[1:min(len(parts), 3)] {
		out += fmt.Sprintf("-%02d", p)
	}
	return out
}

// formatCreators renders names as "Family I" joined by ", ", the form
// used in the citation block of a review prompt.
func formatCreators(names []CSLName) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s := n.short(); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

func (n CSLName) short() string {
	if n.Literal != "" {
		return strings.TrimSpace(n.Literal)
	}
	family := strings.TrimSpace(n.Family)
	var initials strings.Builder
	for _, part := range strings.Fields(n.Given) {
		for _, r := range part {
			initials.WriteRune(r)
			break
		}
	}
	if initials.Len() == 0 {
		return family
	}
	if family == "" {
		return initials.String()
	}
	return family + " " + initials.String()
}

// parseCreator splits a "Family I" or single-token name back into CSL form.
func parseCreator(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{Family: name[:idx], Given: name[idx+1:]}
}

// ToCSL converts a library item to a CSL entry keyed by the item key.
func ToCSL(item types.Item) CSLItem {
	e := CSLItem{
		ID:             item.Key,
		Type:           "article-journal",
		Title:          item.Title(),
		Abstract:       item.Field(types.ItemFieldAbstract),
		ContainerTitle: item.Field(types.ItemFieldPublicationTitle),
		Publisher:      item.Field(types.ItemFieldPublisher),
		DOI:            item.Field(types.ItemFieldDOI),
		URL:            item.Field(types.ItemFieldURL),
		Keyword:        strings.Join(item.Tags, ", "),
	}
	for ct, it := range cslItemTypes {
		if it == item.ItemType && ct != "article" {
			e.Type = ct
			break
		}
	}
	for _, a := range strings.Split(firstNonEmpty(item.Field(types.ItemFieldCreators), item.Field(types.ItemFieldAuthor)), ",") {
		if n := parseCreator(a); n != (CSLName{}) {
			e.Author = append(e.Author, n)
		}
	}
	if y, err := strconv.Atoi(item.Field(types.ItemFieldYear)); err == nil {
		e.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}
	return e
}

// ExportCSL writes items as an indented CSL-JSON array to w.
func ExportCSL(items []types.Item, w io.Writer) error {
	entries := make([]CSLItem, len(items))
	for i, item := range items {
		entries[i] = ToCSL(item)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
