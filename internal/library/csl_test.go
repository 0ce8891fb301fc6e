// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pdiddy/picozot/pkg/types"
)

const cslYAML = `
- id: smith2022
  type: article-journal
  title: Effects of High-Intensity Interval Training on Glycemic Control in Type 2 Diabetes
  author:
    - family: Smith
      given: John
    - family: Johnson
      given: Alice
    - family: Williams
      given: Bob
  issued:
    date-parts: [[2022, 3]]
  container-title: Journal of Diabetes Research
  DOI: 10.1155/2022/1234567
  keyword: diabetes, exercise
  note: |-
    Read for the exercise review.
    Strong methods.
- id: who2020
  type: report
  title: Global Report on Diabetes
  author:
    - literal: World Health Organization
  publisher: WHO Press
  issued:
    raw: "2020"
`

const cslJSON = `[
  {"id": "brown2021", "type": "article-journal",
   "title": "Comparative Effectiveness of Aerobic and Resistance Training in Diabetes Management",
   "author": [{"family": "Brown", "given": "Robert"}],
   "issued": {"date-parts": [[2021]]},
   "container-title": "Diabetes Care"}
]`

func TestImportCSL_YAML(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	items, err := s.ImportCSL(ctx, strings.NewReader(cslYAML))
	if err != nil {
		t.Fatalf("ImportCSL: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	hiit := items[0]
	checks := map[string]string{
		types.ItemFieldCreators:         "Smith J, Johnson A, Williams B",
		types.ItemFieldYear:             "2022",
		types.ItemFieldDate:             "2022-03",
		types.ItemFieldPublicationTitle: "Journal of Diabetes Research",
		types.ItemFieldDOI:              "10.1155/2022/1234567",
	}
	for field, want := range checks {
		if got := hiit.Field(field); got != want {
			t.Errorf("%s = %q, want %q", field, got, want)
		}
	}
	if hiit.ItemType != "journalArticle" {
		t.Errorf("ItemType = %q, want journalArticle", hiit.ItemType)
	}
	if strings.Join(hiit.Tags, "|") != "diabetes|exercise" {
		t.Errorf("Tags = %v", hiit.Tags)
	}

	notes, err := s.Notes(ctx, hiit.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].Content != "<p>Read for the exercise review.<br>Strong methods.</p>" {
		t.Errorf("notes = %+v", notes)
	}

	who := items[1]
	if who.ItemType != "report" {
		t.Errorf("ItemType = %q, want report", who.ItemType)
	}
	if who.Field(types.ItemFieldCreators) != "World Health Organization" {
		t.Errorf("creators = %q", who.Field(types.ItemFieldCreators))
	}
	if who.Field(types.ItemFieldYear) != "2020" {
		t.Errorf("year = %q", who.Field(types.ItemFieldYear))
	}
	if got := Metadata(who).Journal; got != "WHO Press" {
		t.Errorf("journal fallback = %q, want publisher", got)
	}
}

func TestImportCSL_JSON(t *testing.T) {
	s := testStore(t)
	items, err := s.ImportCSL(context.Background(), strings.NewReader(cslJSON))
	if err != nil {
		t.Fatalf("ImportCSL: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if got := items[0].Field(types.ItemFieldCreators); got != "Brown R" {
		t.Errorf("creators = %q, want %q", got, "Brown R")
	}
	if got := items[0].Field(types.ItemFieldYear); got != "2021" {
		t.Errorf("year = %q", got)
	}
}

func TestImportCSL_DatePartStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantYear string
		wantDate string
	}{
		{
			name:     "string year",
			input:    `[{"type":"article-journal","title":"Effects of HIIT","issued":{"date-parts":[["2022",3,15]]}}]`,
			wantYear: "2022",
			wantDate: "2022-03-15",
		},
		{
			name:     "all strings",
			input:    `[{"type":"article-journal","title":"Effects of HIIT","issued":{"date-parts":[["2021","07"]]}}]`,
			wantYear: "2021",
			wantDate: "2021-07",
		},
		{
			name:     "yaml quoted year",
			input:    "- title: Effects of HIIT\n  issued:\n    date-parts: [[\"2020\"]]\n",
			wantYear: "2020",
			wantDate: "2020",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			items, err := s.ImportCSL(context.Background(), strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ImportCSL: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("got %d items, want 1", len(items))
			}
			if got := items[0].Field(types.ItemFieldYear); got != tt.wantYear {
				t.Errorf("year = %q, want %q", got, tt.wantYear)
			}
			if got := items[0].Field(types.ItemFieldDate); got != tt.wantDate {
				t.Errorf("date = %q, want %q", got, tt.wantDate)
			}
		})
	}
}

func TestImportCSL_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"malformed", "- id: [unterminated", 0},
		{"missing title stops import", "- id: a\n  title: First\n- id: b\n", 1},
		{"non-numeric date part", `[{"title":"A","issued":{"date-parts":[["spring"]]}}]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			items, err := s.ImportCSL(context.Background(), strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if len(items) != tt.want {
				t.Errorf("imported %d items before failing, want %d", len(items), tt.want)
			}
		})
	}
}

func TestImportCSL_Empty(t *testing.T) {
	s := testStore(t)
	items, err := s.ImportCSL(context.Background(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("ImportCSL: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items", len(items))
	}
}

func TestExportCSL(t *testing.T) {
	items := []types.Item{hiitItem(), aerobicItem()}
	items[0].Key = "HIIT0001"

	var buf bytes.Buffer
	if err := ExportCSL(items, &buf); err != nil {
		t.Fatalf("ExportCSL: %v", err)
	}

	var entries []CSLItem
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("output is not valid CSL-JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	e := entries[0]
	if e.ID != "HIIT0001" || e.Type != "article-journal" {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Author) != 3 || e.Author[0].Family != "Smith" || e.Author[0].Given != "J" {
		t.Errorf("authors = %+v", e.Author)
	}
	if e.Issued == nil || e.Issued.DateParts[0][0] != 2022 {
		t.Errorf("issued = %+v", e.Issued)
	}
	if e.Keyword != "diabetes, exercise" {
		t.Errorf("keyword = %q", e.Keyword)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSL([]types.Item{aerobicItem()}, &buf); err != nil {
		t.Fatal(err)
	}
	s := testStore(t)
	items, err := s.ImportCSL(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	got := Metadata(items[0])
	want := Metadata(aerobicItem())
	want.ID = got.ID
	if got.Title != want.Title || got.Authors != want.Authors || got.Year != want.Year || got.Journal != want.Journal {
		t.Errorf("round trip metadata = %+v, want %+v", got, want)
	}
}

func TestCSLNameShort(t *testing.T) {
	tests := []struct {
		name CSLName
		want string
	}{
		{CSLName{Family: "Smith", Given: "John Paul"}, "Smith JP"},
		{CSLName{Family: "Smith"}, "Smith"},
		{CSLName{Given: "Cher"}, "C"},
		{CSLName{Literal: "WHO"}, "WHO"},
		{CSLName{}, ""},
	}
	for _, tt := range tests {
		if got := tt.name.short(); got != tt.want {
			t.Errorf("%+v.short() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
