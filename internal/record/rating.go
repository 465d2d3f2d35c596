package record

import "strings"

const (
	filledStar = "★"
	emptyStar  = "☆"
)

// RatingLabel maps 1-5 to the star select label, e.g. 4 → "★★★★☆".
// Anything else yields "".
func RatingLabel(rating int) string {
	if rating < 1 || rating > MaxRating {
		return ""
	}
	return strings.Repeat(filledStar, rating) + strings.Repeat(emptyStar, MaxRating-rating)
}

// RatingFromLabel is the inverse of RatingLabel. Unknown labels map to 0.
func RatingFromLabel(label string) int {
	label = strings.TrimSpace(label)
	for rating := MaxRating; rating >= 1; rating-- {
		if RatingLabel(rating) == label {
			return rating
		}
	}
	return 0
}
