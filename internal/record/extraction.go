package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"watchlog/internal/services"
	"watchlog/internal/textutil"
)

// Extraction is the scraper's output for one product page. Every field may
// be absent.
type Extraction struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Director        string   `json:"director"`
	ReleaseYear     Year     `json:"releaseYear,omitempty"`
	ASIN            string   `json:"asin,omitempty"`
	URL             string   `json:"url"`
	Image           string   `json:"image"`
	Images          []string `json:"images"`
	Watched         *bool    `json:"watched,omitempty"`
	HasPromotion    bool     `json:"hasPromotion,omitempty"`
	NormalizedTitle string   `json:"normalizedTitle,omitempty"`
}

// Year accepts a JSON number, a numeric string, an empty string, or null.
type Year int

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = 0
		return nil
	}
	text := string(data)
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		*y = 0
		return nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("release year %q: %w", text, err)
	}
	*y = Year(value)
	return nil
}

// DecodeExtraction reads one Extraction document.
func DecodeExtraction(r io.Reader) (Extraction, error) {
	var ex Extraction
	if err := json.NewDecoder(r).Decode(&ex); err != nil {
		return Extraction{}, services.Wrap(services.ErrValidation, "record", "decode extraction", "invalid JSON", err)
	}
	return ex, nil
}

// FromExtraction builds a WorkRecord from scraper output. The display title
// keeps the scraped text minus storefront chrome; the primary image leads the
// candidate list.
func FromExtraction(ex Extraction) WorkRecord {
	rec := WorkRecord{
		ExternalID:      strings.TrimSpace(ex.ASIN),
		Title:           textutil.CleanTitle(ex.Title),
		NormalizedTitle: strings.TrimSpace(ex.NormalizedTitle),
		Description:     strings.TrimSpace(ex.Description),
		Creator:         strings.TrimSpace(ex.Director),
		URL:             strings.TrimSpace(ex.URL),
		PrimaryImage:    strings.TrimSpace(ex.Image),
		ReleaseYear:     int(ex.ReleaseYear),
		Watched:         ex.Watched == nil || *ex.Watched,
	}
	for _, src := range ex.Images {
		rec.Images = append(rec.Images, Image{SourceURL: src})
	}
	if rec.PrimaryImage == "" && len(rec.Images) > 0 {
		rec.PrimaryImage = strings.TrimSpace(rec.Images[0].SourceURL)
	}
	rec.Normalize()
	return rec
}
