package upsert

import (
	"fmt"

	"watchlog/internal/services"
)

// CommentError reports that the row was saved but the comment was not.
type CommentError struct {
	PageID string
	Err    error
}

func (e *CommentError) Error() string {
	return fmt.Sprintf("page %s saved, but posting the comment failed: %v", e.PageID, e.Err)
}

// Unwrap exposes both the partial-success marker and the upstream cause.
func (e *CommentError) Unwrap() []error {
	return []error{services.ErrPartialSuccess, e.Err}
}
