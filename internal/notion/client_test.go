package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"watchlog/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	queue := NewQueue(QueueConfig{MinInterval: time.Millisecond, RetryBuffer: -1})
	t.Cleanup(queue.Close)
	return New("secret-token", WithBaseURL(server.URL+"/"), WithQueue(queue))
}

func TestClientSendsHeadersAndBody(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != DefaultVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "page-new", "url": "https://notion.so/page-new", "properties": map[string]any{}})
	})

	page, err := client.CreatePage(context.Background(), PageRequest{
		Parent:     &Parent{DatabaseID: "db-1"},
		Properties: map[string]PropertyValue{"Name": TitleValue("Foo")},
	})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.ID != "page-new" {
		t.Fatalf("page id = %q", page.ID)
	}
	parent, _ := gotBody["parent"].(map[string]any)
	if parent["database_id"] != "db-1" {
		t.Fatalf("parent = %v", gotBody["parent"])
	}
	if _, ok := gotBody["cover"]; ok {
		t.Fatal("cover should be omitted when unset")
	}
}

func TestClientRetrieveDatabaseOmitsContentType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/databases/db-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "" {
			t.Errorf("GET should not carry a content type")
		}
		io.WriteString(w, `{"id":"db-1","properties":{"ステータス":{"type":"select","select":{"options":[{"name":"見たい","color":"blue"}]}}}}`)
	})
	db, err := client.RetrieveDatabase(context.Background(), "db-1")
	if err != nil {
		t.Fatalf("RetrieveDatabase: %v", err)
	}
	status := db.Properties["ステータス"]
	if status.Type != KindSelect || status.Select == nil || status.Select.Options[0].Color != "blue" {
		t.Fatalf("status schema = %+v", status)
	}
}

func TestClientQueryDatabase(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.PageSize != 100 || req.StartCursor != "c1" {
			t.Errorf("query = %+v", req)
		}
		io.WriteString(w, `{"results":[{"id":"p1","properties":{"Name":{"type":"title","title":[{"plain_text":"Foo"}]}}}],"has_more":false,"next_cursor":null}`)
	})
	resp, err := client.QueryDatabase(context.Background(), "db-1", QueryRequest{PageSize: 100, StartCursor: "c1"})
	if err != nil {
		t.Fatalf("QueryDatabase: %v", err)
	}
	if len(resp.Results) != 1 || resp.HasMore || resp.NextCursor != "" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		marker  error
	}{
		{"upstream message verbatim", http.StatusBadRequest, `{"object":"error","code":"invalid_json","message":"Body is not valid JSON."}`, "Body is not valid JSON.", services.ErrUpstream},
		{"status text fallback", http.StatusBadGateway, `not json`, "502 Bad Gateway", services.ErrUpstream},
		{"missing property", http.StatusBadRequest, `{"code":"validation_error","message":"Could not find property with name or id: ASIN"}`, "Could not find property with name or id: ASIN", services.ErrSchemaMismatch},
		{"validation", http.StatusBadRequest, `{"code":"validation_error","message":"body.properties.Name should be defined"}`, "body.properties.Name should be defined", services.ErrValidation},
		{"not found", http.StatusNotFound, `{"code":"object_not_found","message":"Could not find page"}`, "Could not find page", services.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := client.UpdatePage(context.Background(), "p1", PageRequest{})
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.message {
				t.Fatalf("message = %q, want %q", err.Error(), tt.message)
			}
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v marker, got %v", tt.marker, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Fatalf("expected APIError with status %d, got %#v", tt.status, err)
			}
		})
	}
}

func TestClientRateLimitSurfacesAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"code":"rate_limited","message":"You have been rate limited."}`)
	}))
	t.Cleanup(server.Close)
	queue := NewQueue(QueueConfig{MinInterval: time.Millisecond, MaxRetries: 2, RetryBuffer: -1})
	t.Cleanup(queue.Close)
	client := New("t", WithBaseURL(server.URL), WithQueue(queue))

	_, err := client.CreateComment(context.Background(), "p1", "hello")
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

func TestClientCreateCommentBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Parent   Parent `json:"parent"`
			RichText []struct {
				Text TextContent `json:"text"`
			} `json:"rich_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Parent.PageID != "p1" || len(body.RichText) != 1 || body.RichText[0].Text.Content != "great" {
			t.Errorf("comment body = %+v", body)
		}
		io.WriteString(w, `{"id":"c1","parent":{"page_id":"p1"},"rich_text":[]}`)
	})
	comment, err := client.CreateComment(context.Background(), "p1", "great")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if comment.ID != "c1" {
		t.Fatalf("comment id = %q", comment.ID)
	}
}

func TestMissingProperty(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"write rejection", &APIError{StatusCode: 400, Code: "validation_error", Message: "ASIN is not a property that exists."}, "ASIN", true},
		{"wrapped", fmt.Errorf("create: %w", &APIError{StatusCode: 400, Code: "validation_error", Message: "公開年 is not a property that exists."}), "公開年", true},
		{"query rejection", &APIError{StatusCode: 400, Code: "validation_error", Message: "Could not find property with name or id: ASIN"}, "", false},
		{"other code", &APIError{StatusCode: 404, Code: "object_not_found", Message: "ASIN is not a property that exists."}, "", false},
		{"plain error", errors.New("boom"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MissingProperty(tt.err)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("MissingProperty = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
