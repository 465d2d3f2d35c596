package upsert

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"watchlog/internal/dedup"
	"watchlog/internal/logging"
	"watchlog/internal/notion"
	"watchlog/internal/record"
	"watchlog/internal/services"
)

// Pages is the subset of the Notion client used to write rows.
type Pages interface {
	CreatePage(ctx context.Context, req notion.PageRequest) (*notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, req notion.PageRequest) (*notion.Page, error)
	CreateComment(ctx context.Context, pageID, text string) (*notion.Comment, error)
}

// Resolver finds the stored row matching a record.
type Resolver interface {
	Resolve(ctx context.Context, rec record.WorkRecord) (dedup.Resolution, error)
}

// Edit applies user changes to a record after enrichment.
type Edit func(*record.WorkRecord)

// Result describes a completed write.
type Result struct {
	ID      string
	URL     string
	Created bool
	// Unchanged is set when Complete found nothing to fill.
	Unchanged  bool
	Resolution *dedup.Resolution
}

// Service coordinates resolution, mapping, and writes for one database.
type Service struct {
	pages      Pages
	resolver   Resolver
	mapper     *record.Mapper
	databaseID string
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(pages Pages, resolver Resolver, mapper *record.Mapper, databaseID string, logger *slog.Logger) *Service {
	return &Service{
		pages:      pages,
		resolver:   resolver,
		mapper:     mapper,
		databaseID: strings.TrimSpace(databaseID),
		logger:     logging.NewComponentLogger(logger, "upsert"),
	}
}

// Upsert writes rec: an update when RemoteID is set, otherwise a create in
// the configured database. A non-empty comment is posted afterwards.
func (s *Service) Upsert(ctx context.Context, rec record.WorkRecord) (Result, error) {
	return s.upsert(ctx, rec, s.mapper)
}

func (s *Service) upsert(ctx context.Context, rec record.WorkRecord, mapper *record.Mapper) (Result, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}
	isUpdate := rec.IsUpdate()
	if !isUpdate && s.databaseID == "" {
		return Result{}, services.ErrSettingsMissing
	}

	build := func(m *record.Mapper) notion.PageRequest {
		req := notion.PageRequest{
			Properties: m.Properties(rec, isUpdate),
			Cover:      m.Cover(rec, isUpdate),
		}
		if !isUpdate {
			req.Parent = &notion.Parent{DatabaseID: s.databaseID}
		}
		return req
	}
	send := func(req notion.PageRequest) (*notion.Page, error) {
		if isUpdate {
			return s.pages.UpdatePage(ctx, rec.RemoteID, req)
		}
		return s.pages.CreatePage(ctx, req)
	}
	page, req, err := s.write(ctx, mapper, build, send)
	if err != nil {
		return Result{}, err
	}

	result := Result{ID: page.ID, URL: page.URL, Created: !isUpdate}
	logging.WithContext(ctx, s.logger).Info("page saved",
		logging.String(logging.FieldPageID, page.ID),
		logging.Bool("created", result.Created),
		logging.Int("properties", len(req.Properties)),
		logging.Bool("cover", req.Cover != nil),
	)
	return s.postComment(ctx, result, rec.Comment)
}

// Save resolves duplicates, enriches rec from a matched row, applies edits,
// and upserts. Resolution is skipped when rec already names its row.
func (s *Service) Save(ctx context.Context, rec record.WorkRecord, edits ...Edit) (Result, error) {
	var resolution *dedup.Resolution
	if !rec.IsUpdate() {
		res, err := s.resolver.Resolve(ctx, rec)
		if err != nil {
			return Result{}, err
		}
		resolution = &res
		if res.Duplicate && res.Existing != nil {
			rec.Enrich(*res.Existing)
		}
	}
	for _, edit := range edits {
		if edit != nil {
			edit(&rec)
		}
	}
	result, err := s.upsert(ctx, rec, s.mapperFor(resolution))
	if result.ID != "" {
		result.Resolution = resolution
	}
	return result, err
}

// Complete fills the columns the matching stored row lacks. It never clears
// a column and only sets the cover when the row has none. A record with no
// stored match fails with services.ErrNotFound.
func (s *Service) Complete(ctx context.Context, rec record.WorkRecord) (Result, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}
	res, err := s.resolver.Resolve(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if !res.Duplicate || res.Existing == nil {
		return Result{Resolution: &res}, services.Wrap(services.ErrNotFound, "upsert", "complete",
			"no stored row matches "+rec.Title, nil)
	}
	existing := *res.Existing

	build := func(m *record.Mapper) notion.PageRequest {
		return notion.PageRequest{
			Properties: m.CompletionProperties(rec, existing),
			Cover:      m.CompletionCover(rec, existing),
		}
	}
	mapper := s.mapperFor(&res)
	req := build(mapper)
	result := Result{ID: existing.RemoteID, URL: existing.RemoteURL, Resolution: &res}
	logger := logging.WithContext(ctx, s.logger)
	if len(req.Properties) == 0 && req.Cover == nil {
		result.Unchanged = true
		logger.Info("row already complete", logging.String(logging.FieldPageID, existing.RemoteID))
		return s.postComment(ctx, result, rec.Comment)
	}
	page, req, err := s.write(ctx, mapper, build, func(req notion.PageRequest) (*notion.Page, error) {
		return s.pages.UpdatePage(ctx, existing.RemoteID, req)
	})
	if err != nil {
		return Result{}, err
	}
	result.URL = page.URL
	logger.Info("row completed",
		logging.String(logging.FieldPageID, page.ID),
		logging.Int("properties", len(req.Properties)),
		logging.Bool("cover", req.Cover != nil),
	)
	return s.postComment(ctx, result, rec.Comment)
}

// mapperFor drops the identifier column when resolution found the database
// has none.
func (s *Service) mapperFor(res *dedup.Resolution) *record.Mapper {
	if res == nil || !res.IdentifierMissing {
		return s.mapper
	}
	mapper, _ := s.mapper.Without(s.mapper.Fields.Identifier)
	return mapper
}

// write sends the request built by build. A rejection naming a column the
// database lacks drops that column and sends again; the title column is
// never dropped.
func (s *Service) write(
	ctx context.Context,
	mapper *record.Mapper,
	build func(*record.Mapper) notion.PageRequest,
	send func(notion.PageRequest) (*notion.Page, error),
) (*notion.Page, notion.PageRequest, error) {
	req := build(mapper)
	for {
		page, err := send(req)
		if err == nil || !errors.Is(err, services.ErrSchemaMismatch) {
			return page, req, err
		}
		column, ok := notion.MissingProperty(err)
		if !ok {
			return nil, req, err
		}
		narrowed, ok := mapper.Without(column)
		if !ok {
			return nil, req, err
		}
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "column missing from database; writing without it",
			"upsert_schema_fallback",
			logging.String("property", column),
			logging.String(logging.FieldErrorHint, "add the column or clear it under [properties]"),
			logging.String(logging.FieldImpact, "value not stored"),
		)
		mapper = narrowed
		req = build(mapper)
	}
}

func (s *Service) postComment(ctx context.Context, result Result, comment string) (Result, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return result, nil
	}
	if _, err := s.pages.CreateComment(ctx, result.ID, comment); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "comment post failed",
			"upsert_comment_failed",
			logging.String(logging.FieldPageID, result.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "post the comment manually or re-run with --comment"),
		)
		return result, &CommentError{PageID: result.ID, Err: err}
	}
	return result, nil
}
