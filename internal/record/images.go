package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"watchlog/internal/notion"
)

const imageHashLength = 12

// MergeImageFiles combines a stored files list with newly scraped images.
// Stored entries come first (entries without a URL are dropped), then the
// primary image, then the remaining candidates. URLs already present are
// skipped, so the result never repeats a source URL. The first entry is what
// Notion shows as the column's thumbnail.
func MergeImageFiles(existing []Image, primary string, candidates []Image) []Image {
	merged := make([]Image, 0, len(existing)+1+len(candidates))
	seen := make(map[string]struct{}, cap(merged))
	add := func(name, src string) {
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		merged = append(merged, Image{Name: truncate(name, MaxFileNameLength), SourceURL: src})
	}

	for _, img := range existing {
		name := strings.TrimSpace(img.Name)
		if name == "" {
			name = imageName("image", img.SourceURL)
		}
		add(name, img.SourceURL)
	}
	add(imageName("cover", primary), primary)
	for _, img := range candidates {
		add(imageName("image", img.SourceURL), img.SourceURL)
	}
	return merged
}

// imageName derives a stable name from the URL so repeated saves of the same
// image produce the same entry name.
func imageName(prefix, src string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(src)))
	return prefix + "-" + hex.EncodeToString(sum[:])[:imageHashLength]
}

func toNotionFiles(images []Image) []notion.File {
	files := make([]notion.File, 0, len(images))
	for _, img := range images {
		files = append(files, notion.ExternalFile(img.Name, img.SourceURL))
	}
	return files
}
