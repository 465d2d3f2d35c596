package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"watchlog/internal/notion"
)

// DatabaseID is the database served by a NotionServer unless overridden.
const DatabaseID = "db-test"

// RecordedRequest is one request received by the fake server.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Decode unmarshals the request body into v.
func (r RecordedRequest) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode %s %s body: %v", r.Method, r.Path, err)
	}
}

// Failure is a scripted error response.
type Failure struct {
	Status     int
	Code       string
	Message    string
	RetryAfter string
}

type scriptedFailure struct {
	method string
	prefix string
	fail   Failure
}

// NotionServer is an in-memory stand-in for the Notion endpoints watchlog
// calls. Filters support title and rich_text equals plus "or" compounds;
// filtering on a column missing from the schema fails with validation_error
// like the real API.
type NotionServer struct {
	t          testing.TB
	server     *httptest.Server
	databaseID string

	mu       sync.Mutex
	database notion.Database
	pages    []notion.Page
	comments []notion.Comment
	requests []RecordedRequest
	failures []scriptedFailure
	nextID   int
}

// NewNotionServer starts a fake server seeded with StockDatabase.
func NewNotionServer(t testing.TB) *NotionServer {
	t.Helper()
	s := &NotionServer{
		t:          t,
		databaseID: DatabaseID,
		database:   StockDatabase(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/databases/{id}", s.handleRetrieveDatabase)
	mux.HandleFunc("POST /v1/databases/{id}/query", s.handleQuery)
	mux.HandleFunc("POST /v1/pages", s.handleCreatePage)
	mux.HandleFunc("PATCH /v1/pages/{id}", s.handleUpdatePage)
	mux.HandleFunc("POST /v1/comments", s.handleCreateComment)
	s.server = httptest.NewServer(s.intercept(mux))
	t.Cleanup(s.server.Close)
	return s
}

// StockDatabase returns the schema of the default watch-list database.
func StockDatabase() notion.Database {
	options := func(names ...string) *notion.OptionList {
		list := &notion.OptionList{}
		for _, name := range names {
			list.Options = append(list.Options, notion.SelectOption{Name: name, Color: "default"})
		}
		return list
	}
	return notion.Database{
		ID: DatabaseID,
		Properties: map[string]notion.PropertySchema{
			"Name":  {Type: notion.KindTitle},
			"URL":   {Type: notion.KindURL},
			"概要":    {Type: notion.KindRichText},
			"監督":    {Type: notion.KindRichText},
			"鑑賞終了":  {Type: notion.KindCheckbox},
			"日付":    {Type: notion.KindDate},
			"ステータス": {Type: notion.KindStatus, Status: options("見たい", "鑑賞中", "鑑賞終了")},
			"カバー画像": {Type: notion.KindFiles},
			"ジャンル":  {Type: notion.KindMultiSelect, MultiSelect: options("アニメ", "SF", "ドラマ")},
			"オススメ度": {Type: notion.KindSelect, Select: options("★★★★★", "★★★★☆", "★★★☆☆", "★★☆☆☆", "★☆☆☆☆")},
			"ASIN":  {Type: notion.KindRichText},
			"公開年":   {Type: notion.KindDate},
		},
	}
}

// BaseURL is the API root to configure clients with.
func (s *NotionServer) BaseURL() string {
	return s.server.URL + "/v1"
}

// DatabaseID returns the served database id.
func (s *NotionServer) DatabaseID() string {
	return s.databaseID
}

// SetDatabase replaces the served schema.
func (s *NotionServer) SetDatabase(db notion.Database) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.database = db
}

// RemoveProperty drops a column from the schema.
func (s *NotionServer) RemoveProperty(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.database.Properties, name)
}

// AddPage stores a row and returns its id.
func (s *NotionServer) AddPage(props map[string]notion.PropertyValue) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.newPageLocked(props)
	s.pages = append(s.pages, page)
	return page.ID
}

// SetCover sets the cover of a stored row.
func (s *NotionServer) SetCover(pageID, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page := s.findLocked(pageID); page != nil {
		cover := notion.ExternalFile("", url)
		page.Cover = &cover
	}
}

// Page returns a copy of a stored row.
func (s *NotionServer) Page(id string) (notion.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page := s.findLocked(id); page != nil {
		return *page, true
	}
	return notion.Page{}, false
}

// PageCount returns the number of stored rows.
func (s *NotionServer) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Comments returns the posted comments.
func (s *NotionServer) Comments() []notion.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notion.Comment(nil), s.comments...)
}

// Requests returns every request received so far.
func (s *NotionServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// RequestsTo returns the requests whose method matches and whose path starts
// with prefix (relative to /v1).
func (s *NotionServer) RequestsTo(method, prefix string) []RecordedRequest {
	var out []RecordedRequest
	for _, req := range s.Requests() {
		if req.Method == method && strings.HasPrefix(req.Path, prefix) {
			out = append(out, req)
		}
	}
	return out
}

// FailNext makes the next matching request fail with f. Failures are consumed
// in the order they were scripted.
func (s *NotionServer) FailNext(method, prefix string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, scriptedFailure{method: method, prefix: prefix, fail: f})
}

func (s *NotionServer) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		path := strings.TrimPrefix(r.URL.Path, "/v1/")

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{Method: r.Method, Path: path, Header: r.Header.Clone(), Body: body})
		var failure *Failure
		for i, sf := range s.failures {
			if sf.method == r.Method && strings.HasPrefix(path, sf.prefix) {
				f := sf.fail
				failure = &f
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if r.Header.Get("Authorization") == "" || r.Header.Get("Notion-Version") == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
			return
		}
		if failure != nil {
			if failure.RetryAfter != "" {
				w.Header().Set("Retry-After", failure.RetryAfter)
			}
			writeError(w, failure.Status, failure.Code, failure.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *NotionServer) handleRetrieveDatabase(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != s.databaseID {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database with ID: "+r.PathValue("id")+".")
		return
	}
	s.mu.Lock()
	db := s.database
	s.mu.Unlock()
	writeJSON(w, db)
}

func (s *NotionServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("id") != s.databaseID {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find database with ID: "+r.PathValue("id")+".")
		return
	}
	var query notion.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Error parsing JSON body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if query.Filter != nil {
		if missing := s.missingPropertyLocked(*query.Filter); missing != "" {
			writeError(w, http.StatusBadRequest, "validation_error", "Could not find property with name or id: "+missing)
			return
		}
	}
	var matched []notion.Page
	for _, page := range s.pages {
		if query.Filter == nil || matches(*query.Filter, page) {
			matched = append(matched, page)
		}
	}

	start := 0
	if query.StartCursor != "" {
		n, err := strconv.Atoi(query.StartCursor)
		if err != nil || n < 0 || n > len(matched) {
			writeError(w, http.StatusBadRequest, "validation_error", "start_cursor provided is invalid: "+query.StartCursor)
			return
		}
		start = n
	}
	size := query.PageSize
	if size <= 0 || size > 100 {
		size = 100
	}
	end := min(start+size, len(matched))
	resp := notion.QueryResponse{Results: append([]notion.Page{}, matched[start:end]...)}
	if end < len(matched) {
		resp.HasMore = true
		resp.NextCursor = strconv.Itoa(end)
	}
	writeJSON(w, resp)
}

func (s *NotionServer) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req notion.PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Error parsing JSON body.")
		return
	}
	if req.Parent == nil || req.Parent.DatabaseID != s.databaseID {
		writeError(w, http.StatusBadRequest, "validation_error", "body failed validation: body.parent should be defined.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if missing := s.unknownPropertyLocked(req.Properties); missing != "" {
		writeError(w, http.StatusBadRequest, "validation_error", missing+" is not a property that exists.")
		return
	}
	page := s.newPageLocked(req.Properties)
	page.Cover = req.Cover
	s.pages = append(s.pages, page)
	writeJSON(w, page)
}

func (s *NotionServer) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var req notion.PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Error parsing JSON body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.findLocked(r.PathValue("id"))
	if page == nil {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+r.PathValue("id")+".")
		return
	}
	if missing := s.unknownPropertyLocked(req.Properties); missing != "" {
		writeError(w, http.StatusBadRequest, "validation_error", missing+" is not a property that exists.")
		return
	}
	for name, value := range req.Properties {
		page.Properties[name] = value
	}
	if req.Cover != nil {
		page.Cover = req.Cover
	}
	writeJSON(w, page)
}

func (s *NotionServer) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var comment notion.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Error parsing JSON body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(comment.Parent.PageID) == nil {
		writeError(w, http.StatusNotFound, "object_not_found", "Could not find page with ID: "+comment.Parent.PageID+".")
		return
	}
	s.nextID++
	comment.ID = fmt.Sprintf("comment-%d", s.nextID)
	s.comments = append(s.comments, comment)
	writeJSON(w, comment)
}

func (s *NotionServer) newPageLocked(props map[string]notion.PropertyValue) notion.Page {
	s.nextID++
	id := fmt.Sprintf("page-%d", s.nextID)
	stored := make(map[string]notion.PropertyValue, len(props))
	for name, value := range props {
		stored[name] = value
	}
	return notion.Page{ID: id, URL: "https://www.notion.so/" + id, Properties: stored}
}

func (s *NotionServer) findLocked(id string) *notion.Page {
	for i := range s.pages {
		if s.pages[i].ID == id {
			return &s.pages[i]
		}
	}
	return nil
}

func (s *NotionServer) missingPropertyLocked(f notion.Filter) string {
	for _, sub := range f.Or {
		if missing := s.missingPropertyLocked(sub); missing != "" {
			return missing
		}
	}
	if f.Property == "" {
		return ""
	}
	if _, ok := s.database.Properties[f.Property]; !ok {
		return f.Property
	}
	return ""
}

func (s *NotionServer) unknownPropertyLocked(props map[string]notion.PropertyValue) string {
	for name := range props {
		if _, ok := s.database.Properties[name]; !ok {
			return name
		}
	}
	return ""
}

func matches(f notion.Filter, page notion.Page) bool {
	if len(f.Or) > 0 {
		for _, sub := range f.Or {
			if matches(sub, page) {
				return true
			}
		}
		return false
	}
	text := page.Properties[f.Property].PlainText()
	switch {
	case f.Title != nil:
		return text == f.Title.Equals
	case f.RichText != nil:
		return text == f.RichText.Equals
	default:
		return true
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object":  "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}
