package record

import "watchlog/internal/config"

// Fields names the database columns the mapper reads and writes. An empty
// name disables the column.
type Fields struct {
	Title       string
	URL         string
	Description string
	Creator     string
	Watched     string
	WatchedDate string
	Status      string
	Images      string
	Tags        string
	Rating      string
	Identifier  string
	ReleaseYear string
}

// FieldsFromConfig copies the configured column names.
func FieldsFromConfig(p config.Properties) Fields {
	return Fields{
		Title:       p.Title,
		URL:         p.URL,
		Description: p.Description,
		Creator:     p.Creator,
		Watched:     p.Watched,
		WatchedDate: p.WatchedDate,
		Status:      p.Status,
		Images:      p.Images,
		Tags:        p.Tags,
		Rating:      p.Rating,
		Identifier:  p.Identifier,
		ReleaseYear: p.ReleaseYear,
	}
}

// DefaultFields returns the column names of the stock watch-list database.
func DefaultFields() Fields {
	return FieldsFromConfig(config.Default().Properties)
}

func (f *Fields) optional() []*string {
	return []*string{
		&f.URL, &f.Description, &f.Creator, &f.Watched, &f.WatchedDate, &f.Status,
		&f.Images, &f.Tags, &f.Rating, &f.Identifier, &f.ReleaseYear,
	}
}

// Restrict disables every column except the title that the database does
// not have. A schema without a column list leaves f unchanged.
func (f Fields) Restrict(info SchemaInfo) Fields {
	if info.Columns == nil {
		return f
	}
	present := make(map[string]bool, len(info.Columns))
	for _, name := range info.Columns {
		present[name] = true
	}
	for _, name := range f.optional() {
		if *name != "" && !present[*name] {
			*name = ""
		}
	}
	return f
}

// Without disables the column named column. The title column cannot be
// disabled; ok is false when nothing changed.
func (f Fields) Without(column string) (Fields, bool) {
	if column == "" {
		return f, false
	}
	changed := false
	for _, name := range f.optional() {
		if *name == column {
			*name = ""
			changed = true
		}
	}
	return f, changed
}
