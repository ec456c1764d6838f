package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"tuberag/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubScraper returns canned records or errors per URL.
type stubScraper struct {
	mu      sync.Mutex
	byURL   map[string][]domain.VideoRecord
	errURLs map[string]error
	calls   []string
}

func (s *stubScraper) FetchVideos(ctx context.Context, url string, maxResults int) ([]domain.VideoRecord, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	if err, ok := s.errURLs[url]; ok {
		return nil, err
	}
	return s.byURL[url], nil
}

func rec(id, date string) domain.VideoRecord {
	return domain.VideoRecord{ID: id, Title: "t-" + id, PublishedAt: date, Transcript: "text"}
}

func TestFetchAllMergesAndSorts(t *testing.T) {
	scraper := &stubScraper{
		byURL: map[string][]domain.VideoRecord{
			"u1": {rec("a", "2024-05-01"), rec("b", "2023-12-10")},
			"u2": {rec("c", "2024-06-15")},
		},
	}
	batch := NewBatchScraper(scraper, nil, 2, testLogger())

	got, err := batch.FetchAll(context.Background(), []string{"u1", "u2"}, 50, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	wantOrder := []string{"2024-06-15", "2024-05-01", "2023-12-10"}
	for i, want := range wantOrder {
		if got[i].PublishedAt != want {
			t.Errorf("position %d: expected date %s, got %s", i, want, got[i].PublishedAt)
		}
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	scraper := &stubScraper{
		byURL: map[string][]domain.VideoRecord{
			"good": {rec("a", "2024-01-01"), rec("b", "2024-02-01"), rec("c", "2024-03-01")},
		},
		errURLs: map[string]error{
			"bad": errors.New("transport error"),
		},
	}
	batch := NewBatchScraper(scraper, nil, 2, testLogger())

	got, err := batch.FetchAll(context.Background(), []string{"good", "bad"}, 50, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 records from the good URL, got %d", len(got))
	}
	if len(scraper.calls) != 2 {
		t.Errorf("expected both URLs attempted, got %v", scraper.calls)
	}
}

func TestFetchAllEmptyWhenAllFail(t *testing.T) {
	scraper := &stubScraper{
		errURLs: map[string]error{
			"u1": errors.New("boom"),
			"u2": errors.New("boom"),
		},
	}
	batch := NewBatchScraper(scraper, nil, 2, testLogger())

	got, err := batch.FetchAll(context.Background(), []string{"u1", "u2"}, 10, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestFetchAllCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scraper := &stubScraper{errURLs: map[string]error{"u1": context.Canceled}}
	batch := NewBatchScraper(scraper, nil, 1, testLogger())

	_, err := batch.FetchAll(ctx, []string{"u1"}, 10, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// stubTaskRunner records the task lifecycle.
type stubTaskRunner struct {
	mu        sync.Mutex
	nextID    int
	createErr map[string]error
	runErr    map[string]error
	records   map[string][]domain.VideoRecord
	created   []string
	deleted   []string
	taskURLs  map[string]string
}

func newStubTaskRunner() *stubTaskRunner {
	return &stubTaskRunner{
		createErr: map[string]error{},
		runErr:    map[string]error{},
		records:   map[string][]domain.VideoRecord{},
		taskURLs:  map[string]string{},
	}
}

func (s *stubTaskRunner) CreateTask(ctx context.Context, name, url string, maxResults int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.createErr[url]; ok {
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("task-%d", s.nextID)
	s.created = append(s.created, id)
	s.taskURLs[id] = url
	return id, nil
}

func (s *stubTaskRunner) RunTask(ctx context.Context, taskID string, limit int) ([]domain.VideoRecord, error) {
	s.mu.Lock()
	url := s.taskURLs[taskID]
	s.mu.Unlock()
	if err, ok := s.runErr[url]; ok {
		return nil, err
	}
	return s.records[url], nil
}

func (s *stubTaskRunner) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, taskID)
	return nil
}

func (s *stubTaskRunner) FetchVideos(ctx context.Context, url string, maxResults int) ([]domain.VideoRecord, error) {
	return nil, errors.New("not used in task mode")
}

func TestFetchAllTaskModeDeletesAllCreatedTasks(t *testing.T) {
	runner := newStubTaskRunner()
	runner.records["u1"] = []domain.VideoRecord{rec("a", "2024-01-01")}
	runner.runErr["u2"] = errors.New("execution failed")

	batch := NewBatchScraper(runner, runner, 2, testLogger())

	got, err := batch.FetchAll(context.Background(), []string{"u1", "u2"}, 10, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected the one record from u1, got %+v", got)
	}
	if len(runner.created) != 2 {
		t.Fatalf("expected 2 tasks created, got %d", len(runner.created))
	}
	// Cleanup is unconditional: the failed run's task is deleted too.
	if len(runner.deleted) != 2 {
		t.Fatalf("expected 2 tasks deleted, got %d (%v)", len(runner.deleted), runner.deleted)
	}
}

func TestFetchAllTaskModeSkipsCreateFailures(t *testing.T) {
	runner := newStubTaskRunner()
	runner.createErr["u1"] = errors.New("name taken")
	runner.records["u2"] = []domain.VideoRecord{rec("b", "2024-02-01")}

	batch := NewBatchScraper(runner, runner, 2, testLogger())

	got, err := batch.FetchAll(context.Background(), []string{"u1", "u2"}, 10, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if len(runner.created) != 1 {
		t.Errorf("expected 1 task created, got %d", len(runner.created))
	}
}

func TestFetchAllTaskModeAllCreatesFail(t *testing.T) {
	runner := newStubTaskRunner()
	runner.createErr["u1"] = errors.New("boom")

	batch := NewBatchScraper(runner, runner, 1, testLogger())

	if _, err := batch.FetchAll(context.Background(), []string{"u1"}, 10, true); err == nil {
		t.Fatal("expected error when no tasks could be created")
	}
}

func TestTaskName(t *testing.T) {
	name := taskName(3, "https://www.youtube.com/playlist?list=PLsomethingreallylongbeyondtwentychars")
	if !strings.HasPrefix(name, "youtube-scraper-3-") {
		t.Errorf("unexpected prefix in %q", name)
	}
	tail := strings.TrimPrefix(name, "youtube-scraper-3-")
	// tail is "<url-tail>-<suffix>"; the url part is capped at 20 chars.
	urlPart := tail[:strings.LastIndex(tail, "-")]
	if len(urlPart) > 20 {
		t.Errorf("url tail %q exceeds 20 chars", urlPart)
	}

	other := taskName(3, "https://www.youtube.com/playlist?list=PLsomethingreallylongbeyondtwentychars")
	if name == other {
		t.Error("expected unique task names for identical inputs")
	}
}
