package upsert

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"watchlog/internal/dedup"
	"watchlog/internal/logging"
	"watchlog/internal/notion"
	"watchlog/internal/record"
	"watchlog/internal/services"
	"watchlog/internal/testsupport"
)

func newTestService(t *testing.T, server *testsupport.NotionServer, databaseID string) *Service {
	t.Helper()
	queue := notion.NewQueue(notion.QueueConfig{MinInterval: time.Millisecond})
	t.Cleanup(queue.Close)
	client := notion.New("test-token", notion.WithBaseURL(server.BaseURL()), notion.WithQueue(queue))
	fields := record.DefaultFields()
	resolver := dedup.NewResolver(client, databaseID, fields, dedup.Config{}, logging.NewNop())
	return NewService(client, resolver, record.NewMapper(fields, "鑑賞終了"), databaseID, logging.NewNop())
}

func TestUpsertCreatesWithParent(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Upsert(context.Background(), record.WorkRecord{Title: "Foo"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if result.ID == "" || !result.Created {
		t.Fatalf("result = %+v", result)
	}
	creates := server.RequestsTo(http.MethodPost, "pages")
	if len(creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(creates))
	}
	var body notion.PageRequest
	creates[0].Decode(t, &body)
	if body.Parent == nil || body.Parent.DatabaseID != server.DatabaseID() {
		t.Fatalf("parent = %+v", body.Parent)
	}
	if len(server.RequestsTo(http.MethodPatch, "pages/")) != 0 {
		t.Fatal("create must not also update")
	}
	if server.PageCount() != 1 {
		t.Fatalf("stored pages = %d", server.PageCount())
	}
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(map[string]notion.PropertyValue{
		"Name":  notion.TitleValue("Foo"),
		"ジャンル":  notion.MultiSelectValue("SF"),
		"オススメ度": notion.SelectValue("★★☆☆☆"),
	})
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Upsert(context.Background(), record.WorkRecord{Title: "Foo", RemoteID: id})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if result.ID != id || result.Created {
		t.Fatalf("result = %+v", result)
	}
	patches := server.RequestsTo(http.MethodPatch, "pages/"+id)
	if len(patches) != 1 {
		t.Fatalf("patches = %d", len(patches))
	}
	var body notion.PageRequest
	patches[0].Decode(t, &body)
	if body.Parent != nil {
		t.Fatal("update must not send a parent")
	}
	page, _ := server.Page(id)
	if len(page.Properties["ジャンル"].Options) != 0 || page.Properties["オススメ度"].Option != nil {
		t.Fatalf("tags and rating should be cleared: %+v", page.Properties)
	}
	if server.PageCount() != 1 {
		t.Fatal("update must not create rows")
	}
}

func TestUpsertPostsComment(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Upsert(context.Background(), record.WorkRecord{Title: "Foo", Comment: " 最高だった "})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	comments := server.Comments()
	if len(comments) != 1 || comments[0].Parent.PageID != result.ID {
		t.Fatalf("comments = %+v", comments)
	}
	if got := notion.PlainText(comments[0].RichText); got != "最高だった" {
		t.Fatalf("comment text = %q", got)
	}
}

func TestUpsertCommentFailureIsPartialSuccess(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.FailNext(http.MethodPost, "comments", testsupport.Failure{
		Status: http.StatusForbidden, Code: "restricted_resource", Message: "Insufficient permissions for this endpoint.",
	})
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Upsert(context.Background(), record.WorkRecord{Title: "Foo", Comment: "hi"})
	if err == nil {
		t.Fatal("expected comment error")
	}
	var commentErr *CommentError
	if !errors.As(err, &commentErr) {
		t.Fatalf("expected *CommentError, got %T", err)
	}
	if !errors.Is(err, services.ErrPartialSuccess) || services.Classify(err) != "partial_success" {
		t.Fatalf("comment failure must classify as partial success: %v", err)
	}
	if result.ID == "" || commentErr.PageID != result.ID {
		t.Fatalf("saved id must survive: result=%+v err=%+v", result, commentErr)
	}
	if server.PageCount() != 1 {
		t.Fatal("row should still be saved")
	}
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	svc := newTestService(t, server, server.DatabaseID())

	_, err := svc.Upsert(context.Background(), record.WorkRecord{Title: "Foo", Rating: 7})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(server.Requests()); n != 0 {
		t.Fatalf("no request expected, got %d", n)
	}
}

func TestUpsertWithoutDatabaseFailsFast(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	svc := newTestService(t, server, "")

	_, err := svc.Upsert(context.Background(), record.WorkRecord{Title: "Foo"})
	if !errors.Is(err, services.ErrSettingsMissing) || services.Classify(err) != "configuration" {
		t.Fatalf("expected settings missing, got %v", err)
	}
	if n := len(server.Requests()); n != 0 {
		t.Fatalf("no request expected, got %d", n)
	}
}

func TestSaveEnrichesDuplicateThenAppliesEdits(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(map[string]notion.PropertyValue{
		"Name":  notion.TitleValue("Foo"),
		"概要":    notion.RichTextValue("stored description"),
		"ジャンル":  notion.MultiSelectValue("SF"),
		"オススメ度": notion.SelectValue("★★★☆☆"),
	})
	server.SetCover(id, "https://img/stored.jpg")
	svc := newTestService(t, server, server.DatabaseID())

	rec := record.WorkRecord{Title: "Foo", ExternalID: "B012345678", PrimaryImage: "https://img/new.jpg"}
	result, err := svc.Save(context.Background(), rec, func(r *record.WorkRecord) { r.Rating = 5 })
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.ID != id || result.Created {
		t.Fatalf("result = %+v", result)
	}
	if result.Resolution == nil || !result.Resolution.Duplicate || !result.Resolution.Backfilled {
		t.Fatalf("resolution = %+v", result.Resolution)
	}

	page, _ := server.Page(id)
	props := page.Properties
	if got := props["概要"].PlainText(); got != "stored description" {
		t.Fatalf("description = %q, want enriched value", got)
	}
	if got := props["ジャンル"].OptionNames(); len(got) != 1 || got[0] != "SF" {
		t.Fatalf("tags = %v, want enriched SF", got)
	}
	if got := props["オススメ度"].OptionName(); got != "★★★★★" {
		t.Fatalf("rating = %q, want edit applied", got)
	}
	if got := props["ASIN"].PlainText(); got != "B012345678" {
		t.Fatalf("identifier = %q", got)
	}
	if page.Cover == nil || page.Cover.SourceURL() != "https://img/stored.jpg" {
		t.Fatalf("existing cover must be kept, got %+v", page.Cover)
	}
	if files := props["カバー画像"].Files; len(files) != 1 || files[0].SourceURL() != "https://img/new.jpg" {
		t.Fatalf("files = %+v", files)
	}
}

func TestSaveCreatesWhenNoDuplicate(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.AddPage(map[string]notion.PropertyValue{"Name": notion.TitleValue("Bar")})
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Save(context.Background(), record.WorkRecord{Title: "Foo", Tags: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !result.Created || result.Resolution == nil || result.Resolution.Duplicate {
		t.Fatalf("result = %+v", result)
	}
	page, _ := server.Page(result.ID)
	if got := page.Properties["ステータス"].OptionName(); got != "鑑賞終了" {
		t.Fatalf("default status = %q", got)
	}
}

func TestCompleteFillsOnlyMissingColumns(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(map[string]notion.PropertyValue{
		"Name":  notion.TitleValue("Foo"),
		"概要":    notion.RichTextValue("keep me"),
		"オススメ度": notion.SelectValue("★★☆☆☆"),
	})
	svc := newTestService(t, server, server.DatabaseID())

	rec := record.WorkRecord{Title: "Foo", Description: "replace?", Creator: "someone", Rating: 5, PrimaryImage: "https://img/p.jpg"}
	result, err := svc.Complete(context.Background(), rec)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.ID != id || result.Unchanged {
		t.Fatalf("result = %+v", result)
	}
	page, _ := server.Page(id)
	if got := page.Properties["概要"].PlainText(); got != "keep me" {
		t.Fatalf("description overwritten: %q", got)
	}
	if got := page.Properties["オススメ度"].OptionName(); got != "★★☆☆☆" {
		t.Fatalf("rating overwritten: %q", got)
	}
	if got := page.Properties["監督"].PlainText(); got != "someone" {
		t.Fatalf("creator = %q", got)
	}
	if page.Cover == nil || page.Cover.SourceURL() != "https://img/p.jpg" {
		t.Fatalf("cover should be filled, got %+v", page.Cover)
	}

	again, err := svc.Complete(context.Background(), rec)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if !again.Unchanged {
		t.Fatalf("second completion should be a no-op: %+v", again)
	}
	if n := len(server.RequestsTo(http.MethodPatch, "pages/")); n != 1 {
		t.Fatalf("patches = %d, want 1", n)
	}
}

func TestCompleteWithoutMatch(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	svc := newTestService(t, server, server.DatabaseID())

	_, err := svc.Complete(context.Background(), record.WorkRecord{Title: "Missing"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func createdProperties(t *testing.T, server *testsupport.NotionServer) []map[string]notion.PropertyValue {
	t.Helper()
	var out []map[string]notion.PropertyValue
	for _, req := range server.RequestsTo(http.MethodPost, "pages") {
		var body notion.PageRequest
		req.Decode(t, &body)
		out = append(out, body.Properties)
	}
	return out
}

func TestSaveWithoutIdentifierColumn(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.RemoveProperty("ASIN")
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Save(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B012345678"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !result.Created || server.PageCount() != 1 {
		t.Fatalf("result = %+v, pages = %d", result, server.PageCount())
	}
	if result.Resolution == nil || !result.Resolution.IdentifierMissing {
		t.Fatalf("resolution = %+v", result.Resolution)
	}
	creates := createdProperties(t, server)
	if len(creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(creates))
	}
	if _, ok := creates[0]["ASIN"]; ok {
		t.Fatal("create body must not carry the missing ASIN column")
	}
}

func TestSaveWithoutReleaseYearColumn(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.RemoveProperty("公開年")
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Save(context.Background(), record.WorkRecord{Title: "Foo", ReleaseYear: 2014, Creator: "Nolan"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !result.Created || server.PageCount() != 1 {
		t.Fatalf("result = %+v, pages = %d", result, server.PageCount())
	}
	creates := createdProperties(t, server)
	if len(creates) != 2 {
		t.Fatalf("creates = %d, want rejected attempt plus retry", len(creates))
	}
	if _, ok := creates[1]["公開年"]; ok {
		t.Fatal("retry must drop the missing release year column")
	}
	page, _ := server.Page(result.ID)
	if got := page.Properties["監督"].PlainText(); got != "Nolan" {
		t.Fatalf("director = %q", got)
	}
}

func TestSaveWithSchemaSkipsMissingColumns(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.RemoveProperty("ASIN")
	server.RemoveProperty("公開年")
	db := testsupport.StockDatabase()
	delete(db.Properties, "ASIN")
	delete(db.Properties, "公開年")

	queue := notion.NewQueue(notion.QueueConfig{MinInterval: time.Millisecond})
	t.Cleanup(queue.Close)
	client := notion.New("test-token", notion.WithBaseURL(server.BaseURL()), notion.WithQueue(queue))
	fields := record.DefaultFields().Restrict(record.InspectDatabase(&db, record.DefaultFields()))
	resolver := dedup.NewResolver(client, server.DatabaseID(), fields, dedup.Config{}, logging.NewNop())
	svc := NewService(client, resolver, record.NewMapper(fields, "鑑賞終了"), server.DatabaseID(), logging.NewNop())

	if _, err := svc.Save(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B012345678", ReleaseYear: 2014}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	creates := createdProperties(t, server)
	if len(creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(creates))
	}
	for _, column := range []string{"ASIN", "公開年"} {
		if _, ok := creates[0][column]; ok {
			t.Fatalf("create body carries missing column %s", column)
		}
	}
	for _, req := range server.RequestsTo(http.MethodPost, "databases/") {
		var query notion.QueryRequest
		req.Decode(t, &query)
		if query.Filter != nil && query.Filter.Property == "ASIN" {
			t.Fatal("identifier lookup must be skipped when the column is absent")
		}
	}
}

func TestCompleteWithoutIdentifierColumn(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.RemoveProperty("ASIN")
	id := server.AddPage(map[string]notion.PropertyValue{"Name": notion.TitleValue("Foo")})
	svc := newTestService(t, server, server.DatabaseID())

	result, err := svc.Complete(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B012345678", Creator: "Nolan"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.ID != id || result.Unchanged {
		t.Fatalf("result = %+v", result)
	}
	patches := server.RequestsTo(http.MethodPatch, "pages/"+id)
	if len(patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(patches))
	}
	var body notion.PageRequest
	patches[0].Decode(t, &body)
	if _, ok := body.Properties["ASIN"]; ok {
		t.Fatal("patch must not carry the missing ASIN column")
	}
	if got := body.Properties["監督"].PlainText(); got != "Nolan" {
		t.Fatalf("director = %q", got)
	}
}
