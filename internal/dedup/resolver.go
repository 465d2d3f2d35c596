package dedup

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"watchlog/internal/logging"
	"watchlog/internal/notion"
	"watchlog/internal/record"
	"watchlog/internal/services"
	"watchlog/internal/textutil"
)

const (
	defaultFuzzyThreshold = 0.55
	defaultPageSize       = 100
	defaultMaxPages       = 3
	defaultMaxCandidates  = 5
	titleLookupPageSize   = 10
)

// Stage names the lookup that produced a match.
type Stage string

const (
	StageNone       Stage = ""
	StageIdentifier Stage = "identifier"
	StageTitle      Stage = "title"
)

// Database is the subset of the Notion client the resolver uses.
type Database interface {
	QueryDatabase(ctx context.Context, databaseID string, query notion.QueryRequest) (*notion.QueryResponse, error)
	UpdatePage(ctx context.Context, pageID string, req notion.PageRequest) (*notion.Page, error)
}

// Config bounds the fuzzy scan. Zero fields take the defaults.
type Config struct {
	FuzzyThreshold float64
	PageSize       int
	MaxPages       int
	MaxCandidates  int
}

func (c Config) withDefaults() Config {
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = defaultFuzzyThreshold
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = defaultMaxPages
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = defaultMaxCandidates
	}
	return c
}

// Candidate is a possible duplicate found by the fuzzy scan.
type Candidate struct {
	PageID     string  `json:"pageId"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	ExternalID string  `json:"asin,omitempty"`
	Score      float64 `json:"score"`
}

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	Duplicate bool
	MatchedBy Stage
	// Existing is the matched row; nil unless Duplicate.
	Existing   *record.WorkRecord
	Candidates []Candidate
	// IdentifierConflict is set when a title match was rejected because its
	// identifier differs from the incoming one.
	IdentifierConflict bool
	// Backfilled is set when the incoming identifier was written to the
	// matched row.
	Backfilled bool
	// IdentifierMissing is set when the database has no identifier column.
	IdentifierMissing bool
}

// Resolver looks up duplicates in one database.
type Resolver struct {
	db         Database
	databaseID string
	fields     record.Fields
	cfg        Config
	logger     *slog.Logger
}

// NewResolver constructs a resolver.
func NewResolver(db Database, databaseID string, fields record.Fields, cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		db:         db,
		databaseID: databaseID,
		fields:     fields,
		cfg:        cfg.withDefaults(),
		logger:     logging.NewComponentLogger(logger, "dedup"),
	}
}

// Resolve finds the stored row matching rec, or the closest candidates when
// there is none.
func (r *Resolver) Resolve(ctx context.Context, rec record.WorkRecord) (Resolution, error) {
	rec.Normalize()
	logger := logging.WithContext(ctx, r.logger)

	identifierUsable := r.fields.Identifier != ""
	if rec.ExternalID != "" && identifierUsable {
		page, err := r.lookupByIdentifier(ctx, rec.ExternalID)
		switch {
		case errors.Is(err, services.ErrSchemaMismatch):
			identifierUsable = false
			logging.WarnWithContext(logger, "identifier column missing; skipping identifier lookup",
				"dedup_identifier_schema_fallback",
				logging.String("property", r.fields.Identifier),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "add the identifier column or clear properties.identifier"),
				logging.String(logging.FieldImpact, "duplicates matched by title only"),
			)
		case err != nil:
			return Resolution{}, err
		case page != nil:
			existing := record.FromPage(page, r.fields)
			logger.Info("duplicate found by identifier",
				logging.String(logging.FieldPageID, existing.RemoteID),
				logging.String("identifier", rec.ExternalID),
			)
			return Resolution{Duplicate: true, MatchedBy: StageIdentifier, Existing: &existing}, nil
		}
	}

	res, err := r.lookupByTitle(ctx, rec, identifierUsable)
	if err != nil {
		return Resolution{}, err
	}
	res.IdentifierMissing = r.fields.Identifier != "" && !identifierUsable
	if res.Duplicate {
		return res, nil
	}

	candidates, err := r.fuzzyCandidates(ctx, rec)
	if err != nil {
		return Resolution{}, err
	}
	res.Candidates = candidates
	logger.Info("no duplicate found",
		logging.Int("candidates", len(candidates)),
		logging.Bool("identifier_conflict", res.IdentifierConflict),
	)
	return res, nil
}

func (r *Resolver) lookupByIdentifier(ctx context.Context, id string) (*notion.Page, error) {
	filter := notion.RichTextEquals(r.fields.Identifier, id)
	resp, err := r.db.QueryDatabase(ctx, r.databaseID, notion.QueryRequest{Filter: &filter, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

func (r *Resolver) lookupByTitle(ctx context.Context, rec record.WorkRecord, canBackfill bool) (Resolution, error) {
	titles := titleVariants(rec)
	if len(titles) == 0 || r.fields.Title == "" {
		return Resolution{}, nil
	}
	filters := make([]notion.Filter, 0, len(titles))
	for _, title := range titles {
		filters = append(filters, notion.TitleEquals(r.fields.Title, title))
	}
	filter := notion.AnyOf(filters...)
	resp, err := r.db.QueryDatabase(ctx, r.databaseID, notion.QueryRequest{Filter: &filter, PageSize: titleLookupPageSize})
	if err != nil {
		return Resolution{}, err
	}

	logger := logging.WithContext(ctx, r.logger)
	var res Resolution
	for i := range resp.Results {
		existing := record.FromPage(&resp.Results[i], r.fields)
		if rec.ExternalID != "" && existing.ExternalID != "" && existing.ExternalID != rec.ExternalID {
			res.IdentifierConflict = true
			logger.Info("title match has a different identifier; treating as a different work",
				logging.String(logging.FieldPageID, existing.RemoteID),
				logging.String("incoming_identifier", rec.ExternalID),
				logging.String("stored_identifier", existing.ExternalID),
			)
			continue
		}
		res.Duplicate = true
		res.MatchedBy = StageTitle
		if existing.ExternalID == "" && rec.ExternalID != "" && canBackfill {
			res.Backfilled = r.backfillIdentifier(ctx, existing.RemoteID, rec.ExternalID)
			if res.Backfilled {
				existing.ExternalID = rec.ExternalID
			}
		}
		res.Existing = &existing
		logger.Info("duplicate found by title",
			logging.String(logging.FieldPageID, existing.RemoteID),
			logging.Bool("backfilled", res.Backfilled),
		)
		return res, nil
	}
	return res, nil
}

// backfillIdentifier writes id onto a row matched by title. Failure is logged
// and does not affect the match.
func (r *Resolver) backfillIdentifier(ctx context.Context, pageID, id string) bool {
	req := notion.PageRequest{Properties: map[string]notion.PropertyValue{
		r.fields.Identifier: notion.RichTextValue(id),
	}}
	if _, err := r.db.UpdatePage(ctx, pageID, req); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "identifier backfill failed",
			"dedup_backfill_failed",
			logging.String(logging.FieldPageID, pageID),
			logging.String("identifier", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-run save to retry the backfill"),
			logging.String(logging.FieldImpact, "row matched but identifier not stored"),
		)
		return false
	}
	return true
}

func (r *Resolver) fuzzyCandidates(ctx context.Context, rec record.WorkRecord) ([]Candidate, error) {
	var (
		candidates []Candidate
		cursor     string
	)
	for page := 0; page < r.cfg.MaxPages; page++ {
		resp, err := r.db.QueryDatabase(ctx, r.databaseID, notion.QueryRequest{
			PageSize:    r.cfg.PageSize,
			StartCursor: cursor,
		})
		if err != nil {
			return nil, err
		}
		for i := range resp.Results {
			row := record.FromPage(&resp.Results[i], r.fields)
			score := textutil.Similarity(rec.Title, row.Title)
			if score < r.cfg.FuzzyThreshold {
				continue
			}
			candidates = append(candidates, Candidate{
				PageID:     row.RemoteID,
				Title:      row.Title,
				URL:        row.RemoteURL,
				ExternalID: row.ExternalID,
				Score:      score,
			})
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(candidates) > r.cfg.MaxCandidates {
		candidates = candidates[:r.cfg.MaxCandidates]
	}
	return candidates, nil
}

// titleVariants returns the distinct non-empty forms of the title used for
// the exact lookup: as given, normalized, and comparison key.
func titleVariants(rec record.WorkRecord) []string {
	var out []string
	for _, v := range []string{rec.Title, rec.NormalizedTitle, textutil.ComparisonKey(rec.Title)} {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
