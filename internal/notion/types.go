package notion

import "strings"

// StatusKind records which column type a database uses for its status field.
// It is discovered once per database and threaded through mapping calls.
type StatusKind string

const (
	StatusKindStatus StatusKind = "status"
	StatusKindSelect StatusKind = "select"
)

// ParseStatusKind converts a stored label into a StatusKind, defaulting to
// StatusKindStatus for anything unrecognized.
func ParseStatusKind(value string) StatusKind {
	if StatusKind(strings.ToLower(strings.TrimSpace(value))) == StatusKindSelect {
		return StatusKindSelect
	}
	return StatusKindStatus
}

func (k StatusKind) propertyKind() PropertyKind {
	if k == StatusKindSelect {
		return KindSelect
	}
	return KindStatus
}

// RichText is one run of a title or rich_text array.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent carries the literal content of a text run.
type TextContent struct {
	Content string `json:"content"`
}

// PlainText concatenates the plain text of every run.
func PlainText(runs []RichText) string {
	var b strings.Builder
	for _, run := range runs {
		switch {
		case run.PlainText != "":
			b.WriteString(run.PlainText)
		case run.Text != nil:
			b.WriteString(run.Text.Content)
		}
	}
	return b.String()
}

func textRuns(content string) []RichText {
	if content == "" {
		return []RichText{}
	}
	return []RichText{{Type: "text", Text: &TextContent{Content: content}}}
}

// SelectOption is a select, status, or multi_select choice.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// File is an entry of a files column or a page cover.
type File struct {
	Name     string   `json:"name,omitempty"`
	Type     string   `json:"type,omitempty"`
	External *FileURL `json:"external,omitempty"`
	File     *FileURL `json:"file,omitempty"`
}

// FileURL holds the location of an external or Notion-hosted file.
type FileURL struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// ExternalFile builds an external file reference.
func ExternalFile(name, url string) File {
	return File{Name: name, Type: "external", External: &FileURL{URL: url}}
}

// SourceURL returns the resolvable URL of the file, or "" when it has none.
func (f File) SourceURL() string {
	if f.External != nil && strings.TrimSpace(f.External.URL) != "" {
		return strings.TrimSpace(f.External.URL)
	}
	if f.File != nil && strings.TrimSpace(f.File.URL) != "" {
		return strings.TrimSpace(f.File.URL)
	}
	return ""
}

// Date is a date column value. Start is an ISO 8601 date.
type Date struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Parent identifies the container of a page or comment.
type Parent struct {
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// OptionList is the options block of a select-like column schema.
type OptionList struct {
	Options []SelectOption `json:"options"`
}

// PropertySchema describes one column of a database.
type PropertySchema struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name,omitempty"`
	Type        PropertyKind `json:"type"`
	Select      *OptionList  `json:"select,omitempty"`
	MultiSelect *OptionList  `json:"multi_select,omitempty"`
	Status      *OptionList  `json:"status,omitempty"`
}

// Database is the subset of a database object the client reads.
type Database struct {
	ID         string                    `json:"id"`
	Title      []RichText                `json:"title,omitempty"`
	Properties map[string]PropertySchema `json:"properties"`
}

// Page is a database row.
type Page struct {
	ID         string                   `json:"id"`
	URL        string                   `json:"url,omitempty"`
	Cover      *File                    `json:"cover,omitempty"`
	Archived   bool                     `json:"archived,omitempty"`
	Properties map[string]PropertyValue `json:"properties"`
}

// PageRequest is the body of a page create or update.
type PageRequest struct {
	Parent     *Parent                  `json:"parent,omitempty"`
	Properties map[string]PropertyValue `json:"properties"`
	Cover      *File                    `json:"cover,omitempty"`
}

// TextCondition matches text-like columns.
type TextCondition struct {
	Equals string `json:"equals"`
}

// Filter is a database query filter. Either a single property condition or
// an Or compound is set.
type Filter struct {
	Property string         `json:"property,omitempty"`
	Title    *TextCondition `json:"title,omitempty"`
	RichText *TextCondition `json:"rich_text,omitempty"`
	Or       []Filter       `json:"or,omitempty"`
}

// TitleEquals matches rows whose title column equals value.
func TitleEquals(property, value string) Filter {
	return Filter{Property: property, Title: &TextCondition{Equals: value}}
}

// RichTextEquals matches rows whose rich_text column equals value.
func RichTextEquals(property, value string) Filter {
	return Filter{Property: property, RichText: &TextCondition{Equals: value}}
}

// AnyOf combines filters with a logical OR. A single filter is returned as is.
func AnyOf(filters ...Filter) Filter {
	if len(filters) == 1 {
		return filters[0]
	}
	return Filter{Or: filters}
}

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

// QueryResponse is one page of query results.
type QueryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Comment is a discussion comment attached to a page.
type Comment struct {
	ID       string     `json:"id,omitempty"`
	Parent   Parent     `json:"parent"`
	RichText []RichText `json:"rich_text"`
}
