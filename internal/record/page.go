package record

import (
	"strconv"

	"watchlog/internal/notion"
	"watchlog/internal/textutil"
)

// FromPage reads a stored row into a WorkRecord. Files without a resolvable
// URL are dropped; Notion-hosted files keep their current signed URL.
func FromPage(page *notion.Page, fields Fields) WorkRecord {
	if page == nil {
		return WorkRecord{}
	}
	prop := func(name string) notion.PropertyValue {
		if name == "" {
			return notion.PropertyValue{}
		}
		return page.Properties[name]
	}

	rec := WorkRecord{
		RemoteID:    page.ID,
		RemoteURL:   page.URL,
		Title:       prop(fields.Title).PlainText(),
		ExternalID:  prop(fields.Identifier).PlainText(),
		Description: prop(fields.Description).PlainText(),
		Creator:     prop(fields.Creator).PlainText(),
		Rating:      RatingFromLabel(prop(fields.Rating).OptionName()),
		Tags:        prop(fields.Tags).OptionNames(),
		Watched:     prop(fields.Watched).Checkbox,
	}
	if url := prop(fields.URL).URL; url != nil {
		rec.URL = *url
	}
	if date := prop(fields.WatchedDate).Date; date != nil {
		rec.WatchedDate = date.Start
	}
	if date := prop(fields.ReleaseYear).Date; date != nil {
		rec.ReleaseYear = yearOf(date.Start)
	}

	status := prop(fields.Status)
	rec.Status = status.OptionName()
	switch status.Kind {
	case notion.KindSelect:
		rec.StatusKind = notion.StatusKindSelect
	case notion.KindStatus:
		rec.StatusKind = notion.StatusKindStatus
	}

	rec.HasExistingCover = page.Cover != nil && page.Cover.SourceURL() != ""
	for _, file := range prop(fields.Images).Files {
		src := file.SourceURL()
		if src == "" {
			continue
		}
		rec.ExistingImageFiles = append(rec.ExistingImageFiles, Image{
			Name:      truncate(file.Name, MaxFileNameLength),
			SourceURL: src,
		})
	}
	rec.NormalizedTitle = textutil.NormalizeTitle(rec.Title)
	return rec
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
