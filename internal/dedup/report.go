package dedup

import "watchlog/internal/record"

// Report is the duplicate-check payload shown to the user.
type Report struct {
	Duplicate          bool           `json:"duplicate"`
	MatchedBy          Stage          `json:"matchedBy,omitempty"`
	PageID             string         `json:"pageId,omitempty"`
	URL                string         `json:"url,omitempty"`
	Rating             int            `json:"rating,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
	Description        string         `json:"description,omitempty"`
	Director           string         `json:"director,omitempty"`
	Date               string         `json:"date,omitempty"`
	Status             string         `json:"status,omitempty"`
	ASIN               string         `json:"asin,omitempty"`
	HasCover           bool           `json:"hasCover,omitempty"`
	ExistingFiles      []record.Image `json:"existingFiles,omitempty"`
	Candidates         []Candidate    `json:"candidates,omitempty"`
	IdentifierConflict bool           `json:"identifierConflict,omitempty"`
	Backfilled         bool           `json:"backfilled,omitempty"`
	IdentifierMissing  bool           `json:"identifierMissing,omitempty"`
}

// Report flattens the resolution into the duplicate-check payload.
func (r Resolution) Report() Report {
	rep := Report{
		Duplicate:          r.Duplicate,
		MatchedBy:          r.MatchedBy,
		Candidates:         r.Candidates,
		IdentifierConflict: r.IdentifierConflict,
		Backfilled:         r.Backfilled,
		IdentifierMissing:  r.IdentifierMissing,
	}
	if r.Existing == nil {
		return rep
	}
	e := r.Existing
	rep.PageID = e.RemoteID
	rep.URL = e.RemoteURL
	rep.Rating = e.Rating
	rep.Tags = e.Tags
	rep.Description = e.Description
	rep.Director = e.Creator
	rep.Date = e.WatchedDate
	rep.Status = e.Status
	rep.ASIN = e.ExternalID
	rep.HasCover = e.HasExistingCover
	rep.ExistingFiles = e.ExistingImageFiles
	return rep
}
