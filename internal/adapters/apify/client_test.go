package apify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tuberag/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient("test-token", testLogger(),
		WithBaseURL(baseURL),
		WithPollInterval(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("", testLogger()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestFetchVideosSuccess(t *testing.T) {
	var polls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/acts/"):
			var input runInput
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				t.Errorf("bad run input: %v", err)
			}
			if input.SubtitlesLanguage != "en" || input.SubtitlesFormat != "plaintext" {
				t.Errorf("unexpected subtitle options: %+v", input)
			}
			if input.MaxResults != 5 {
				t.Errorf("expected maxResults 5, got %d", input.MaxResults)
			}
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"run-1"}}`)

		case strings.Contains(r.URL.Path, "/actor-runs/run-1"):
			if polls.Add(1) < 2 {
				io.WriteString(w, `{"data":{"status":"RUNNING"}}`)
				return
			}
			io.WriteString(w, `{"data":{"status":"SUCCEEDED","defaultDatasetId":"ds-1"}}`)

		case strings.Contains(r.URL.Path, "/datasets/ds-1/items"):
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("expected limit 5, got %q", got)
			}
			io.WriteString(w, `[
				{"id":"a","title":"First","url":"https://youtu.be/a","date":"2024-05-01","subtitles":"hello","viewCount":1200,"duration":"10:00"},
				{"id":"b","date":"2024-06-15"}
			]`)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	records, err := client.FetchVideos(context.Background(), "https://youtube.com/@chan", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "First" || records[0].ViewCount != 1200 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[0].Transcript != "hello" {
		t.Errorf("expected transcript mapped from subtitles, got %q", records[0].Transcript)
	}
	if records[1].Title != "Untitled" {
		t.Errorf("expected default title, got %q", records[1].Title)
	}
	if records[1].ViewCount != 0 {
		t.Errorf("expected default view count 0, got %d", records[1].ViewCount)
	}
}

func TestFetchVideosRunFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/acts/"):
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"run-2"}}`)
		case strings.Contains(r.URL.Path, "/actor-runs/run-2"):
			io.WriteString(w, `{"data":{"status":"FAILED"}}`)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchVideos(context.Background(), "https://youtube.com/@chan", 1)
	if err == nil {
		t.Fatal("expected error for failed run")
	}

	var runErr *domain.RemoteRunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected RemoteRunError, got %T: %v", err, err)
	}
	if runErr.Status != "FAILED" {
		t.Errorf("expected status FAILED, got %q", runErr.Status)
	}
}

func TestFetchVideosStartRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"type":"token-not-found"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.FetchVideos(context.Background(), "https://youtube.com/@chan", 1); err == nil {
		t.Fatal("expected error for rejected start")
	}
}

func TestFetchVideosContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"run-3"}}`)
		default:
			// Never reaches a terminal state.
			io.WriteString(w, `{"data":{"status":"RUNNING"}}`)
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := newTestClient(t, server.URL)
	_, err := client.FetchVideos(ctx, "https://youtube.com/@chan", 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestTaskLifecycle(t *testing.T) {
	var deleted atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/actor-tasks":
			var payload struct {
				ActID   string `json:"actId"`
				Name    string `json:"name"`
				Options struct {
					MemoryMbytes int `json:"memoryMbytes"`
				} `json:"options"`
				Input runInput `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("bad task payload: %v", err)
			}
			if payload.Options.MemoryMbytes != 1024 {
				t.Errorf("expected 1024 MB, got %d", payload.Options.MemoryMbytes)
			}
			if payload.Name != "task-a" {
				t.Errorf("unexpected task name %q", payload.Name)
			}
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"task-1"}}`)

		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/actor-tasks/task-1/runs"):
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data":{"id":"run-4"}}`)

		case strings.Contains(r.URL.Path, "/actor-runs/run-4"):
			io.WriteString(w, `{"data":{"status":"SUCCEEDED","defaultDatasetId":"ds-4"}}`)

		case strings.Contains(r.URL.Path, "/datasets/ds-4/items"):
			io.WriteString(w, `[{"id":"v1","title":"Video","subtitles":"text"}]`)

		case r.Method == http.MethodDelete && strings.Contains(r.URL.Path, "/actor-tasks/task-1"):
			deleted.Store(true)
			w.WriteHeader(http.StatusNoContent)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx := context.Background()

	taskID, err := client.CreateTask(ctx, "task-a", "https://youtube.com/@chan", 10)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if taskID != "task-1" {
		t.Errorf("expected task-1, got %q", taskID)
	}

	records, err := client.RunTask(ctx, taskID, 10)
	if err != nil {
		t.Fatalf("run task: %v", err)
	}
	if len(records) != 1 || records[0].ID != "v1" {
		t.Errorf("unexpected records: %+v", records)
	}

	if err := client.DeleteTask(ctx, taskID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if !deleted.Load() {
		t.Error("expected remote delete to be called")
	}
}
