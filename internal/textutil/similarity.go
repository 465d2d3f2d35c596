package textutil

import "strings"

const (
	substringBase  = 0.75
	substringRange = 0.2
)

// Similarity scores two titles in [0,1]. Both inputs pass through
// ComparisonKey first. Equal keys score 1; when one key contains the other the
// score is 0.75 plus up to 0.2 scaled by the length ratio; otherwise the score
// is the Jaccard index of the character bigram sets.
func Similarity(a, b string) float64 {
	ka, kb := ComparisonKey(a), ComparisonKey(b)
	if ka == "" || kb == "" {
		return 0
	}
	if ka == kb {
		return 1
	}
	if strings.Contains(ka, kb) || strings.Contains(kb, ka) {
		la, lb := len([]rune(ka)), len([]rune(kb))
		shorter, longer := min(la, lb), max(la, lb)
		return substringBase + substringRange*float64(shorter)/float64(longer)
	}
	return jaccard(bigrams(ka), bigrams(kb))
}

// bigrams returns the set of adjacent rune pairs. A single-rune string is its
// own bigram so the set is never empty for non-empty input.
func bigrams(value string) map[string]struct{} {
	rs := []rune(value)
	set := make(map[string]struct{}, len(rs))
	if len(rs) == 1 {
		set[value] = struct{}{}
		return set
	}
	for i := 0; i+1 < len(rs); i++ {
		set[string(rs[i:i+2])] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for gram := range a {
		if _, ok := b[gram]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
