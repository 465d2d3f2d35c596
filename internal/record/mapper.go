package record

import (
	"fmt"
	"strings"

	"watchlog/internal/notion"
)

// Mapper converts WorkRecords into Notion property maps.
type Mapper struct {
	Fields Fields
	// DefaultStatus is written on create when the record has no status.
	DefaultStatus string
}

// NewMapper returns a mapper for the given columns.
func NewMapper(fields Fields, defaultStatus string) *Mapper {
	return &Mapper{Fields: fields, DefaultStatus: strings.TrimSpace(defaultStatus)}
}

// ForSchema returns a mapper that skips the columns the database lacks.
func (m *Mapper) ForSchema(info SchemaInfo) *Mapper {
	return &Mapper{Fields: m.Fields.Restrict(info), DefaultStatus: m.DefaultStatus}
}

// Without returns a mapper that no longer writes column. ok is false when
// the mapper did not write it.
func (m *Mapper) Without(column string) (*Mapper, bool) {
	fields, ok := m.Fields.Without(column)
	if !ok {
		return m, false
	}
	return &Mapper{Fields: fields, DefaultStatus: m.DefaultStatus}, true
}

type propertySet map[string]notion.PropertyValue

func (p propertySet) set(name string, value notion.PropertyValue) {
	if name == "" {
		return
	}
	p[name] = value
}

// Properties builds the full upsert body for rec. Every owned column is
// either set or, on update, explicitly cleared; omitting a column on update
// would leave the stored value in place.
func (m *Mapper) Properties(rec WorkRecord, isUpdate bool) map[string]notion.PropertyValue {
	f := m.Fields
	props := propertySet{}

	props.set(f.Title, notion.TitleValue(truncate(rec.Title, MaxTextLength)))

	if rec.URL != "" {
		props.set(f.URL, notion.URLValue(rec.URL))
	} else if !isUpdate {
		props.set(f.URL, notion.URLValue(""))
	}

	props.set(f.Description, notion.RichTextValue(truncate(rec.Description, MaxTextLength)))
	props.set(f.Creator, notion.RichTextValue(truncate(rec.Creator, MaxTextLength)))

	if rec.ExternalID != "" {
		props.set(f.Identifier, notion.RichTextValue(truncate(rec.ExternalID, MaxTextLength)))
	}
	if rec.ReleaseYear > 0 {
		props.set(f.ReleaseYear, notion.DateValue(releaseDate(rec.ReleaseYear)))
	}

	status := rec.Status
	if status == "" && !isUpdate {
		status = m.DefaultStatus
	}
	// status-kind columns reject null, so an empty status on update is omitted
	if status != "" {
		props.set(f.Status, notion.StatusValue(rec.StatusKind, status))
	}

	props.set(f.Watched, notion.CheckboxValue(rec.Watched))
	if rec.WatchedDate != "" {
		props.set(f.WatchedDate, notion.DateValue(rec.WatchedDate))
	}

	if len(rec.Tags) > 0 {
		props.set(f.Tags, notion.MultiSelectValue(rec.Tags...))
	} else if isUpdate {
		props.set(f.Tags, notion.MultiSelectValue())
	}

	if label := RatingLabel(rec.Rating); label != "" {
		props.set(f.Rating, notion.SelectValue(label))
	} else if isUpdate {
		props.set(f.Rating, notion.SelectValue(""))
	}

	if files := MergeImageFiles(rec.ExistingImageFiles, rec.PrimaryImage, rec.Images); len(files) > 0 {
		props.set(f.Images, notion.FilesValue(toNotionFiles(files)...))
	}
	return props
}

// CompletionProperties builds a partial patch that only fills columns the
// stored row lacks and rec supplies. It never clears anything.
func (m *Mapper) CompletionProperties(rec, existing WorkRecord) map[string]notion.PropertyValue {
	f := m.Fields
	props := propertySet{}

	if existing.URL == "" && rec.URL != "" {
		props.set(f.URL, notion.URLValue(rec.URL))
	}
	if existing.Description == "" && rec.Description != "" {
		props.set(f.Description, notion.RichTextValue(truncate(rec.Description, MaxTextLength)))
	}
	if existing.Creator == "" && rec.Creator != "" {
		props.set(f.Creator, notion.RichTextValue(truncate(rec.Creator, MaxTextLength)))
	}
	if existing.ExternalID == "" && rec.ExternalID != "" {
		props.set(f.Identifier, notion.RichTextValue(truncate(rec.ExternalID, MaxTextLength)))
	}
	if existing.ReleaseYear == 0 && rec.ReleaseYear > 0 {
		props.set(f.ReleaseYear, notion.DateValue(releaseDate(rec.ReleaseYear)))
	}
	if existing.Status == "" && rec.Status != "" {
		kind := rec.StatusKind
		if kind == "" {
			kind = existing.StatusKind
		}
		props.set(f.Status, notion.StatusValue(kind, rec.Status))
	}
	if !existing.Watched && rec.Watched {
		props.set(f.Watched, notion.CheckboxValue(true))
	}
	if existing.WatchedDate == "" && rec.WatchedDate != "" {
		props.set(f.WatchedDate, notion.DateValue(rec.WatchedDate))
	}
	if len(existing.Tags) == 0 && len(rec.Tags) > 0 {
		props.set(f.Tags, notion.MultiSelectValue(rec.Tags...))
	}
	if existing.Rating == 0 {
		if label := RatingLabel(rec.Rating); label != "" {
			props.set(f.Rating, notion.SelectValue(label))
		}
	}

	stored := MergeImageFiles(existing.ExistingImageFiles, "", nil)
	merged := MergeImageFiles(existing.ExistingImageFiles, rec.PrimaryImage, rec.Images)
	if len(merged) > len(stored) {
		props.set(f.Images, notion.FilesValue(toNotionFiles(merged)...))
	}
	return props
}

// Cover returns the page cover to send, or nil to leave it untouched. A cover
// is written on create, when the stored row has none, or when the record asks
// to overwrite.
func (m *Mapper) Cover(rec WorkRecord, isUpdate bool) *notion.File {
	image := rec.CoverImage
	if image == "" {
		image = rec.PrimaryImage
	}
	if image == "" {
		return nil
	}
	if isUpdate && rec.HasExistingCover && !rec.OverwriteCover {
		return nil
	}
	cover := notion.ExternalFile("", image)
	return &cover
}

// CompletionCover returns a cover only when the stored row has none.
func (m *Mapper) CompletionCover(rec, existing WorkRecord) *notion.File {
	if existing.HasExistingCover {
		return nil
	}
	return m.Cover(rec, false)
}

func releaseDate(year int) string {
	return fmt.Sprintf("%04d-01-01", year)
}
