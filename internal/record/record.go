package record

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"watchlog/internal/notion"
	"watchlog/internal/services"
	"watchlog/internal/textutil"
)

const (
	// MaxTextLength is the longest text run written to a column.
	MaxTextLength = 2000
	// MaxFileNameLength is the longest file name written to a files column.
	MaxFileNameLength = 100
	// MaxRating is the highest star rating.
	MaxRating = 5
)

// Image is one entry of the images column.
type Image struct {
	Name      string `json:"name"`
	SourceURL string `json:"sourceUrl"`
}

// WorkRecord is one watch-list entry as assembled from a scrape, user edits,
// and any matching stored row.
type WorkRecord struct {
	ExternalID      string
	Title           string
	NormalizedTitle string
	Description     string
	Creator         string
	URL             string
	Images          []Image
	PrimaryImage    string
	CoverImage      string
	Tags            []string
	Rating          int
	Status          string
	StatusKind      notion.StatusKind
	ReleaseYear     int
	Watched         bool
	WatchedDate     string
	Comment         string

	// RemoteID is the stored row to update; empty means create.
	RemoteID  string
	RemoteURL string

	// Snapshot of the stored row's images, used only for merge decisions.
	HasExistingCover   bool
	ExistingImageFiles []Image
	OverwriteCover     bool
}

// Normalize derives NormalizedTitle, trims text fields, defaults the cover to
// the primary image, and drops duplicate images and tags.
func (r *WorkRecord) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.ExternalID = strings.TrimSpace(r.ExternalID)
	r.URL = strings.TrimSpace(r.URL)
	r.PrimaryImage = strings.TrimSpace(r.PrimaryImage)
	r.CoverImage = strings.TrimSpace(r.CoverImage)
	r.Status = strings.TrimSpace(r.Status)
	if r.NormalizedTitle == "" {
		r.NormalizedTitle = textutil.NormalizeTitle(r.Title)
	}
	if r.NormalizedTitle == "" {
		r.NormalizedTitle = r.Title
	}
	if r.CoverImage == "" {
		r.CoverImage = r.PrimaryImage
	}
	r.Images = dedupeImages(r.Images)
	r.Tags = dedupeTags(r.Tags)
}

// Validate rejects records that cannot be mapped.
func (r WorkRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return services.Wrap(services.ErrValidation, "record", "validate", "title is required", nil)
	}
	if r.Rating < 0 || r.Rating > MaxRating {
		return services.Wrap(services.ErrValidation, "record", "validate",
			fmt.Sprintf("rating %d out of range 0-%d", r.Rating, MaxRating), nil)
	}
	if r.ReleaseYear != 0 && (r.ReleaseYear < 1000 || r.ReleaseYear > 9999) {
		return services.Wrap(services.ErrValidation, "record", "validate",
			fmt.Sprintf("release year %d is not a 4-digit year", r.ReleaseYear), nil)
	}
	if r.WatchedDate != "" {
		if _, err := time.Parse(time.DateOnly, r.WatchedDate); err != nil {
			return services.Wrap(services.ErrValidation, "record", "validate",
				fmt.Sprintf("watched date %q is not YYYY-MM-DD", r.WatchedDate), nil)
		}
	}
	return nil
}

// IsUpdate reports whether the record targets an existing row.
func (r WorkRecord) IsUpdate() bool {
	return r.RemoteID != ""
}

// Enrich fills empty fields from a stored row and adopts its identity and
// image snapshot. Fields the record already carries win.
func (r *WorkRecord) Enrich(existing WorkRecord) {
	r.RemoteID = existing.RemoteID
	r.RemoteURL = existing.RemoteURL
	r.HasExistingCover = existing.HasExistingCover
	r.ExistingImageFiles = slices.Clone(existing.ExistingImageFiles)

	r.ExternalID = firstNonEmpty(r.ExternalID, existing.ExternalID)
	r.Description = firstNonEmpty(r.Description, existing.Description)
	r.Creator = firstNonEmpty(r.Creator, existing.Creator)
	r.URL = firstNonEmpty(r.URL, existing.URL)
	r.Status = firstNonEmpty(r.Status, existing.Status)
	r.WatchedDate = firstNonEmpty(r.WatchedDate, existing.WatchedDate)
	if r.StatusKind == "" {
		r.StatusKind = existing.StatusKind
	}
	if len(r.Tags) == 0 {
		r.Tags = slices.Clone(existing.Tags)
	}
	if r.Rating == 0 {
		r.Rating = existing.Rating
	}
	if r.ReleaseYear == 0 {
		r.ReleaseYear = existing.ReleaseYear
	}
	r.Watched = r.Watched || existing.Watched
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func dedupeImages(images []Image) []Image {
	if len(images) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(images))
	out := make([]Image, 0, len(images))
	for _, img := range images {
		src := strings.TrimSpace(img.SourceURL)
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, Image{Name: strings.TrimSpace(img.Name), SourceURL: src})
	}
	return out
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func truncate(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
