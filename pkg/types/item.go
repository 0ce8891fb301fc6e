// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Item field names understood by the library and the metadata accessor.
const (
	ItemFieldTitle            = "title"
	ItemFieldAbstract         = "abstractNote"
	ItemFieldCreators         = "creators"
	ItemFieldAuthor           = "author"
	ItemFieldYear             = "year"
	ItemFieldDate             = "date"
	ItemFieldPublicationTitle = "publicationTitle"
	ItemFieldPublisher        = "publisher"
	ItemFieldDOI              = "DOI"
	ItemFieldURL              = "url"
)

// ContentTypePDF is the attachment content type whose text is extracted.
const ContentTypePDF = "application/pdf"

// Item is a bibliographic record in the reference library.
type Item struct {
	// ID is the library's numeric identifier.
	ID int64 `json:"id" yaml:"id"`

	// Key is a stable opaque identifier that survives export and import.
	Key string `json:"key" yaml:"key"`

	// ItemType classifies the record (e.g. "journalArticle", "book").
	ItemType string `json:"itemType" yaml:"itemType"`

	// Fields maps field names (title, abstractNote, ...) to values.
	Fields map[string]string `json:"fields" yaml:"fields"`

	// Tags are free-form labels attached to the item.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	DateAdded time.Time `json:"dateAdded" yaml:"dateAdded"`
}

// Field returns the named field, or "" when it is not set.
func (i Item) Field(name string) string {
	if i.Fields == nil {
		return ""
	}
	return i.Fields[name]
}

// Title is shorthand for Field("title").
func (i Item) Title() string {
	return i.Field(ItemFieldTitle)
}

// Note is a child note of an item. Content is HTML.
type Note struct {
	ID        int64     `json:"id" yaml:"id"`
	Key       string    `json:"key" yaml:"key"`
	ParentID  int64     `json:"parentId" yaml:"parentId"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	DateAdded time.Time `json:"dateAdded" yaml:"dateAdded"`
}

// Attachment is a file linked to an item.
type Attachment struct {
	ID          int64  `json:"id" yaml:"id"`
	Key         string `json:"key" yaml:"key"`
	ParentID    int64  `json:"parentId" yaml:"parentId"`
	Title       string `json:"title" yaml:"title"`
	ContentType string `json:"contentType" yaml:"contentType"`
	Path        string `json:"path" yaml:"path"`
}

// CitationMetadata is the per-item projection used to build a review prompt.
type CitationMetadata struct {
	Title    string   `json:"title" yaml:"title"`
	Authors  string   `json:"authors" yaml:"authors"`
	Year     string   `json:"year" yaml:"year"`
	Journal  string   `json:"journal" yaml:"journal"`
	Abstract string   `json:"abstract" yaml:"abstract"`
	ItemType string   `json:"itemType" yaml:"itemType"`
	Tags     []string `json:"tags" yaml:"tags"`
	ID       int64    `json:"id" yaml:"id"`
}
