package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// fullWidthDigits covers U+FF10..U+FF19, the half-width digits offset by 0xFEE0.
var fullWidthDigits = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xFF10, Hi: 0xFF19, Stride: 1}},
}

var parenReplacer = strings.NewReplacer("(", "", ")", "", "（", "", "）", "")

var (
	sitePrefixPattern  = regexp.MustCompile(`^Amazon\.co\.jp\s*[:：]\s*`)
	siteSuffixPattern  = regexp.MustCompile(`\s*\|\s*Prime Video$`)
	watchSuffixPattern = regexp.MustCompile(`\s*を観る$`)
)

// NormalizeTitle canonicalizes a raw scraped title. It collapses whitespace,
// narrows full-width digits, drops parenthesis characters, and removes the
// storefront prefix and suffixes. The result is stable under repeated
// application.
func NormalizeTitle(raw string) string {
	title := collapseSpace(raw)
	if title == "" {
		return ""
	}
	title = narrowDigits(title)
	title = collapseSpace(parenReplacer.Replace(title))
	title = stripSiteChrome(title)
	return collapseSpace(title)
}

// CleanTitle removes only the storefront chrome and extra whitespace, leaving
// the title otherwise as scraped. It is the display form of a title.
func CleanTitle(raw string) string {
	return collapseSpace(stripSiteChrome(collapseSpace(raw)))
}

// ComparisonKey returns the form of a title used for equality checks and
// similarity scoring: normalized, width-folded, case-folded, and stripped of
// punctuation, symbols, and whitespace.
func ComparisonKey(raw string) string {
	title := NormalizeTitle(raw)
	if title == "" {
		return ""
	}
	t := transform.Chain(
		width.Fold,
		cases.Fold(),
		runes.Remove(runes.Predicate(isComparisonNoise)),
	)
	key, _, err := transform.String(t, title)
	if err != nil {
		return ""
	}
	return key
}

func isComparisonNoise(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func narrowDigits(value string) string {
	t := runes.If(runes.In(fullWidthDigits), width.Narrow, nil)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// stripSiteChrome repeats until no pattern matches so stacked chrome such as
// "X を観る | Prime Video" is fully removed in one call.
func stripSiteChrome(value string) string {
	for {
		next := strings.TrimSpace(value)
		next = sitePrefixPattern.ReplaceAllString(next, "")
		next = siteSuffixPattern.ReplaceAllString(next, "")
		next = watchSuffixPattern.ReplaceAllString(next, "")
		if next == value {
			return next
		}
		value = next
	}
}
