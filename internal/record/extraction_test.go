package record

import (
	"errors"
	"strings"
	"testing"

	"watchlog/internal/services"
)

func TestDecodeExtractionTolerant(t *testing.T) {
	tests := []struct {
		name string
		in   string
		year int
	}{
		{"number year", `{"title":"Foo","releaseYear":2021}`, 2021},
		{"string year", `{"title":"Foo","releaseYear":"2021"}`, 2021},
		{"empty year", `{"title":"Foo","releaseYear":""}`, 0},
		{"null year", `{"title":"Foo","releaseYear":null}`, 0},
		{"absent fields", `{}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := DecodeExtraction(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if int(ex.ReleaseYear) != tt.year {
				t.Fatalf("year = %d, want %d", ex.ReleaseYear, tt.year)
			}
		})
	}
}

func TestDecodeExtractionRejectsGarbage(t *testing.T) {
	_, err := DecodeExtraction(strings.NewReader(`{"releaseYear":"soon"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFromExtraction(t *testing.T) {
	watched := false
	ex := Extraction{
		Title:       "Amazon.co.jp: 進撃の巨人 Season 2を観る | Prime Video",
		Description: " desc ",
		Director:    "荒木哲郎",
		ReleaseYear: 2017,
		ASIN:        "B012345678",
		URL:         "https://www.amazon.co.jp/dp/B012345678",
		Images:      []string{"https://img/a.jpg", "https://img/b.jpg", "https://img/a.jpg"},
		Watched:     &watched,
	}
	rec := FromExtraction(ex)
	if rec.Title != "進撃の巨人 Season 2" {
		t.Fatalf("title = %q", rec.Title)
	}
	if rec.NormalizedTitle == "" {
		t.Fatal("normalized title must be derived")
	}
	if rec.PrimaryImage != "https://img/a.jpg" || rec.CoverImage != "https://img/a.jpg" {
		t.Fatalf("primary/cover = %q %q", rec.PrimaryImage, rec.CoverImage)
	}
	if len(rec.Images) != 2 {
		t.Fatalf("images should be deduplicated, got %+v", rec.Images)
	}
	if rec.Watched {
		t.Fatal("explicit watched=false must be kept")
	}
	if rec.ExternalID != "B012345678" || rec.Creator != "荒木哲郎" || rec.Description != "desc" || rec.ReleaseYear != 2017 {
		t.Fatalf("fields = %+v", rec)
	}

	if !FromExtraction(Extraction{Title: "x"}).Watched {
		t.Fatal("absent watched flag defaults to true")
	}
}
