package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tuberag/internal/core/domain"
	"tuberag/internal/core/ports"
)

// DefaultConcurrency caps how many source URLs are scraped at once.
const DefaultConcurrency = 4

// BatchScraper fans a scrape out over many source URLs and merges the
// results. Per-URL failures are isolated: they are logged and excluded
// from the merge, and never cancel sibling fetches.
type BatchScraper struct {
	scraper     ports.VideoScraper
	tasks       ports.TaskRunner
	concurrency int
	logger      *slog.Logger
}

// NewBatchScraper creates a batch scraper. concurrency <= 0 selects
// DefaultConcurrency.
func NewBatchScraper(scraper ports.VideoScraper, tasks ports.TaskRunner, concurrency int, logger *slog.Logger) *BatchScraper {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &BatchScraper{
		scraper:     scraper,
		tasks:       tasks,
		concurrency: concurrency,
		logger:      logger,
	}
}

// FetchAll scrapes every URL concurrently and returns the merged records
// sorted by publish date, newest first. With useTasks it pre-registers a
// reusable remote task per URL and deletes each one after the batch.
func (b *BatchScraper) FetchAll(ctx context.Context, urls []string, maxPerSource int, useTasks bool) ([]domain.VideoRecord, error) {
	if useTasks {
		return b.fetchWithTasks(ctx, urls, maxPerSource)
	}
	return b.fetchDirect(ctx, urls, maxPerSource)
}

func (b *BatchScraper) fetchDirect(ctx context.Context, urls []string, maxPerSource int) ([]domain.VideoRecord, error) {
	b.logger.Info("starting batch scrape", "urls", len(urls), "max_per_source", maxPerSource)

	// One result slot per URL; slots are written only by their own
	// goroutine, so no locking is needed.
	results := make([][]domain.VideoRecord, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			records, err := b.scraper.FetchVideos(ctx, u, maxPerSource)
			if err != nil {
				b.logger.Warn("scrape failed", "url", u, "error", err)
				return nil
			}
			results[i] = records
			return nil
		})
	}
	// Goroutines never return errors; failures stay isolated per URL.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := mergeByDate(results)
	b.logger.Info("batch scrape complete", "total_videos", len(merged))
	return merged, nil
}

// createdTask pairs a remote task ID with the URL it was registered for.
type createdTask struct {
	id  string
	url string
}

func (b *BatchScraper) fetchWithTasks(ctx context.Context, urls []string, maxPerSource int) ([]domain.VideoRecord, error) {
	b.logger.Info("creating scraper tasks", "urls", len(urls))

	tasks := make([]createdTask, 0, len(urls))
	for i, u := range urls {
		name := taskName(i, u)
		id, err := b.tasks.CreateTask(ctx, name, u, maxPerSource)
		if err != nil {
			b.logger.Warn("failed to create task", "url", u, "error", err)
			continue
		}
		b.logger.Info("created task", "name", name, "task_id", id)
		tasks = append(tasks, createdTask{id: id, url: u})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks created successfully")
	}

	// Every created task is deleted after the batch regardless of how its
	// run ended. Deletion failures are logged and swallowed.
	defer b.cleanupTasks(tasks)

	results := make([][]domain.VideoRecord, len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			records, err := b.tasks.RunTask(ctx, task.id, maxPerSource)
			if err != nil {
				b.logger.Warn("task run failed", "url", task.url, "task_id", task.id, "error", err)
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := mergeByDate(results)
	b.logger.Info("batch scrape complete", "total_videos", len(merged))
	return merged, nil
}

func (b *BatchScraper) cleanupTasks(tasks []createdTask) {
	// Cleanup runs on a fresh context so it still happens after an
	// interrupt cancels the batch context.
	ctx := context.Background()
	for _, task := range tasks {
		if err := b.tasks.DeleteTask(ctx, task.id); err != nil {
			b.logger.Warn("failed to delete task", "task_id", task.id, "error", err)
		}
	}
}

// taskName derives a unique remote task name from the URL position and tail.
func taskName(index int, sourceURL string) string {
	tail := sourceURL
	if i := strings.LastIndex(tail, "/"); i >= 0 {
		tail = tail[i+1:]
	}
	if len(tail) > 20 {
		tail = tail[:20]
	}
	return fmt.Sprintf("youtube-scraper-%d-%s-%s", index, tail, uuid.NewString()[:8])
}

// mergeByDate flattens the per-URL result slots and sorts the combined
// records by their raw date string, descending. The comparison is
// lexicographic on purpose: the source date format is opaque and the
// ordering matches what the scraping service returns for ISO-like dates.
func mergeByDate(results [][]domain.VideoRecord) []domain.VideoRecord {
	var merged []domain.VideoRecord
	for _, records := range results {
		merged = append(merged, records...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt > merged[j].PublishedAt
	})
	return merged
}
