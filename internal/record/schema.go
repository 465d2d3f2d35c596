package record

import (
	"slices"

	"watchlog/internal/notion"
)

// SchemaInfo is what the mapper needs to know about a target database.
type SchemaInfo struct {
	StatusKind    notion.StatusKind     `json:"statusKind"`
	StatusOptions []notion.SelectOption `json:"statusOptions"`
	TagOptions    []notion.SelectOption `json:"tagOptions"`
	HasIdentifier bool                  `json:"hasIdentifier"`
	// Columns lists every column of the database. Nil when unknown.
	Columns []string `json:"columns,omitempty"`
}

// TagNames returns the tag option names in schema order.
func (s SchemaInfo) TagNames() []string {
	names := make([]string, 0, len(s.TagOptions))
	for _, opt := range s.TagOptions {
		names = append(names, opt.Name)
	}
	return names
}

// InspectDatabase discovers the status column kind and the option lists. A
// database without a status column reports StatusKindStatus with no options.
func InspectDatabase(db *notion.Database, fields Fields) SchemaInfo {
	info := SchemaInfo{StatusKind: notion.StatusKindStatus}
	if db == nil {
		return info
	}
	if status, ok := db.Properties[fields.Status]; ok && fields.Status != "" {
		switch {
		case status.Status != nil:
			info.StatusOptions = status.Status.Options
		case status.Select != nil:
			info.StatusKind = notion.StatusKindSelect
			info.StatusOptions = status.Select.Options
		}
	}
	if tags, ok := db.Properties[fields.Tags]; ok && fields.Tags != "" && tags.MultiSelect != nil {
		info.TagOptions = tags.MultiSelect.Options
	}
	if fields.Identifier != "" {
		_, info.HasIdentifier = db.Properties[fields.Identifier]
	}
	info.Columns = make([]string, 0, len(db.Properties))
	for name := range db.Properties {
		info.Columns = append(info.Columns, name)
	}
	slices.Sort(info.Columns)
	if info.StatusOptions == nil {
		info.StatusOptions = []notion.SelectOption{}
	}
	if info.TagOptions == nil {
		info.TagOptions = []notion.SelectOption{}
	}
	return info
}
