package dedup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"watchlog/internal/logging"
	"watchlog/internal/notion"
	"watchlog/internal/record"
	"watchlog/internal/services"
	"watchlog/internal/testsupport"
)

func newTestResolver(t *testing.T, server *testsupport.NotionServer) *Resolver {
	t.Helper()
	queue := notion.NewQueue(notion.QueueConfig{MinInterval: time.Millisecond})
	t.Cleanup(queue.Close)
	client := notion.New("test-token", notion.WithBaseURL(server.BaseURL()), notion.WithQueue(queue))
	return NewResolver(client, server.DatabaseID(), record.DefaultFields(), Config{}, logging.NewNop())
}

func row(title, asin string) map[string]notion.PropertyValue {
	props := map[string]notion.PropertyValue{"Name": notion.TitleValue(title)}
	if asin != "" {
		props["ASIN"] = notion.RichTextValue(asin)
	}
	return props
}

func TestResolveByIdentifier(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(row("Stored Title", "B0AAAAAAAA"))
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "Renamed", ExternalID: "B0AAAAAAAA"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Duplicate || res.MatchedBy != StageIdentifier || res.Existing.RemoteID != id {
		t.Fatalf("resolution = %+v", res)
	}
	if n := len(server.RequestsTo(http.MethodPost, "databases/")); n != 1 {
		t.Fatalf("identifier hit should stop after one query, got %d", n)
	}
}

func TestResolveByTitleBackfillsIdentifier(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(row("Foo", ""))
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B012345678"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Duplicate || res.MatchedBy != StageTitle || res.Existing.RemoteID != id {
		t.Fatalf("resolution = %+v", res)
	}
	if !res.Backfilled || res.Existing.ExternalID != "B012345678" {
		t.Fatalf("expected backfill, got %+v", res)
	}
	page, _ := server.Page(id)
	if got := page.Properties["ASIN"].PlainText(); got != "B012345678" {
		t.Fatalf("stored identifier = %q", got)
	}
}

func TestResolveBackfillFailureKeepsMatch(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(row("Foo", ""))
	server.FailNext(http.MethodPatch, "pages/", testsupport.Failure{Status: http.StatusInternalServerError, Code: "internal_server_error"})
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B012345678"})
	if err != nil {
		t.Fatalf("backfill failure must not abort resolution: %v", err)
	}
	if !res.Duplicate || res.Existing.RemoteID != id || res.Backfilled {
		t.Fatalf("resolution = %+v", res)
	}
}

func TestResolveDifferentIdentifierIsNotDuplicate(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(row("進撃の巨人", "B0XXXXXXXX"))
	server.AddPage(row("ワンピース", ""))
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "進撃の巨人", ExternalID: "B0YYYYYYYY"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Duplicate || res.Existing != nil {
		t.Fatalf("different identifiers must not merge: %+v", res)
	}
	if !res.IdentifierConflict {
		t.Fatal("expected identifier conflict flag")
	}
	if len(res.Candidates) != 1 || res.Candidates[0].PageID != id || res.Candidates[0].Score != 1 {
		t.Fatalf("candidates = %+v", res.Candidates)
	}
	if n := len(server.RequestsTo(http.MethodPatch, "pages/")); n != 0 {
		t.Fatalf("no backfill expected, got %d patches", n)
	}
}

func TestResolveMissingIdentifierColumnFallsBack(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.RemoveProperty("ASIN")
	id := server.AddPage(row("Foo", ""))
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B012345678"})
	if err != nil {
		t.Fatalf("schema mismatch should be absorbed: %v", err)
	}
	if !res.Duplicate || res.Existing.RemoteID != id {
		t.Fatalf("resolution = %+v", res)
	}
	if res.Backfilled || len(server.RequestsTo(http.MethodPatch, "pages/")) != 0 {
		t.Fatal("backfill must be skipped when the identifier column is missing")
	}
}

func TestResolveMatchesNormalizedTitle(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	id := server.AddPage(row("ガンダム083", ""))
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "ガンダム０８３"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Duplicate || res.Existing.RemoteID != id {
		t.Fatalf("normalized title should match: %+v", res)
	}
}

func TestResolveFuzzyScanIsBounded(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	for i := 1; i <= 350; i++ {
		server.AddPage(row(fmt.Sprintf("Show %d", i), ""))
	}
	server.AddPage(row("Completely Different", ""))
	resolver := newTestResolver(t, server)

	res, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "Show"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Duplicate {
		t.Fatal("fuzzy results are never duplicates")
	}
	if len(res.Candidates) != defaultMaxCandidates {
		t.Fatalf("candidates = %d, want %d", len(res.Candidates), defaultMaxCandidates)
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].Score > res.Candidates[i-1].Score {
			t.Fatalf("candidates not sorted: %+v", res.Candidates)
		}
	}
	if res.Candidates[0].Title != "Show 1" {
		t.Fatalf("stable order expected, first = %q", res.Candidates[0].Title)
	}

	var scans int
	for _, req := range server.RequestsTo(http.MethodPost, "databases/") {
		var q notion.QueryRequest
		req.Decode(t, &q)
		if q.Filter == nil {
			scans++
			if q.PageSize != defaultPageSize {
				t.Fatalf("page size = %d", q.PageSize)
			}
		}
	}
	if scans != defaultMaxPages {
		t.Fatalf("scanned %d pages, want %d", scans, defaultMaxPages)
	}
}

func TestResolvePropagatesUpstreamErrors(t *testing.T) {
	server := testsupport.NewNotionServer(t)
	server.FailNext(http.MethodPost, "databases/", testsupport.Failure{Status: http.StatusBadGateway, Code: "bad_gateway", Message: "upstream down"})
	resolver := newTestResolver(t, server)

	_, err := resolver.Resolve(context.Background(), record.WorkRecord{Title: "Foo", ExternalID: "B0"})
	if !errors.Is(err, services.ErrUpstream) || err.Error() != "upstream down" {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestTitleVariants(t *testing.T) {
	rec := record.WorkRecord{Title: "The Movie (2020)"}
	rec.Normalize()
	got := titleVariants(rec)
	want := []string{"The Movie (2020)", "The Movie 2020", "themovie2020"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("variants = %q, want %q", got, want)
	}
	same := record.WorkRecord{Title: "foo", NormalizedTitle: "foo"}
	if got := titleVariants(same); len(got) != 1 {
		t.Fatalf("duplicates should collapse, got %q", got)
	}
}

func TestReport(t *testing.T) {
	existing := &record.WorkRecord{
		RemoteID:           "p1",
		RemoteURL:          "https://notion.so/p1",
		Rating:             4,
		Tags:               []string{"SF"},
		Creator:            "someone",
		WatchedDate:        "2024-01-01",
		Status:             "鑑賞終了",
		HasExistingCover:   true,
		ExistingImageFiles: []record.Image{{Name: "a", SourceURL: "https://img/a"}},
	}
	rep := Resolution{Duplicate: true, MatchedBy: StageTitle, Existing: existing}.Report()
	if !rep.Duplicate || rep.PageID != "p1" || rep.URL != "https://notion.so/p1" || rep.Director != "someone" ||
		rep.Date != "2024-01-01" || !rep.HasCover || len(rep.ExistingFiles) != 1 || rep.Rating != 4 {
		t.Fatalf("report = %+v", rep)
	}
	empty := Resolution{Candidates: []Candidate{{PageID: "p2", Score: 0.8}}}.Report()
	if empty.Duplicate || empty.PageID != "" || len(empty.Candidates) != 1 {
		t.Fatalf("report = %+v", empty)
	}
}
