// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/picozot/internal/httputil"
	"github.com/pdiddy/picozot/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// OpenAlexClient looks up bibliographic records by DOI.
type OpenAlexClient struct {
	Client *http.Client
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// DOIRecord is the result of a DOI lookup.
type DOIRecord struct {
	Item types.Item
	// PDFURL is the best open-access PDF location, if OpenAlex knows one.
	PDFURL string
}

// LookupDOI fetches the work for doi and maps it to an unsaved item.
func (c *OpenAlexClient) LookupDOI(ctx context.Context, doi string) (types.Item, error) {
	rec, err := c.Lookup(ctx, doi)
	return rec.Item, err
}

// Lookup fetches the work for doi with its open-access PDF location.
func (c *OpenAlexClient) Lookup(ctx context.Context, doi string) (DOIRecord, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return DOIRecord{}, fmt.Errorf("empty DOI")
	}

	reqURL := openAlexWorksBase + "/doi:" + doi
	if c.Email != "" {
		reqURL += "?" + url.Values{"mailto": {c.Email}}.Encode()
	}

	var work openAlexWork
	if err := httputil.GetJSON(ctx, c.Client, reqURL, nil, &work); err != nil {
		return DOIRecord{}, fmt.Errorf("OpenAlex lookup for %s: %w", doi, err)
	}
	rec := DOIRecord{Item: work.toItem(doi)}
	if loc := work.BestOALocation; loc != nil {
		rec.PDFURL = loc.PDFURL
	}
	return rec, nil
}

// NormalizeDOI strips URL and "doi:" prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(strings.ToLower(doi), prefix) {
			doi = doi[len(prefix):]
		}
	}
	return doi
}

func (w openAlexWork) toItem(doi string) types.Item {
	fields := map[string]string{
		types.ItemFieldTitle: w.Title,
		types.ItemFieldDOI:   doi,
		types.ItemFieldURL:   "https://doi.org/" + doi,
	}

	var authors []string
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}
	if len(authors) > 0 {
		fields[types.ItemFieldCreators] = strings.Join(authors, ", ")
	}
	if abstract := reconstructAbstract(w.AbstractInvertedIndex); abstract != "" {
		fields[types.ItemFieldAbstract] = abstract
	}
	if w.PublicationYear > 0 {
		fields[types.ItemFieldYear] = strconv.Itoa(w.PublicationYear)
	}
	if w.PublicationDate != "" {
		fields[types.ItemFieldDate] = w.PublicationDate
	}
	if src := w.PrimaryLocation.Source; src != nil && src.DisplayName != "" {
		fields[types.ItemFieldPublicationTitle] = src.DisplayName
	}

	itemType := "journalArticle"
	switch w.Type {
	case "book":
		itemType = "book"
	case "book-chapter":
		itemType = "bookSection"
	case "dissertation":
		itemType = "thesis"
	case "report":
		itemType = "report"
	}

	var tags []string
	for _, k := range w.Keywords {
		if k.DisplayName != "" {
			tags = append(tags, k.DisplayName)
		}
	}

	return types.Item{ItemType: itemType, Fields: fields, Tags: tags}
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	Type                  string               `json:"type"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	BestOALocation        *openAlexLocation    `json:"best_oa_location"`
	Keywords              []openAlexKeyword    `json:"keywords"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	PDFURL string `json:"pdf_url"`
	Source *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

type openAlexKeyword struct {
	DisplayName string `json:"display_name"`
}
