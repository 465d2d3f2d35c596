// Package textutil provides title canonicalization and similarity scoring.
//
// The primary use cases are:
//   - NormalizeTitle: strips storefront chrome from a scraped title and
//     narrows full-width digits so the result can be stored and matched
//   - CleanTitle: the display form, chrome removed but text untouched
//   - ComparisonKey: a case-folded, punctuation-free form used only for
//     equality checks and scoring, never for display
//   - Similarity: a [0,1] score that ranks exact matches above substring
//     containment and substring containment above bigram overlap
//
// All functions are pure and safe on empty input.
package textutil
