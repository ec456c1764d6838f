package ports

import (
	"context"

	"tuberag/internal/core/domain"
)

// VideoScraper defines the contract for fetching video records from a
// single source URL via the remote job-execution API.
type VideoScraper interface {
	// FetchVideos submits a scraping job for the URL, waits for it to
	// finish, and returns up to maxResults mapped records.
	FetchVideos(ctx context.Context, url string, maxResults int) ([]domain.VideoRecord, error)
}

// TaskRunner is the reusable-task variant of the scraper. A task is a named
// remote job definition created before execution and deleted after use.
type TaskRunner interface {
	// CreateTask registers a named job definition and returns its ID.
	CreateTask(ctx context.Context, name, url string, maxResults int) (string, error)

	// RunTask executes a previously created task, waits for completion,
	// and returns up to limit mapped records.
	RunTask(ctx context.Context, taskID string, limit int) ([]domain.VideoRecord, error)

	// DeleteTask removes the remote task definition.
	DeleteTask(ctx context.Context, taskID string) error
}

// TranscriptStore defines the contract for persisting transcript artifacts.
type TranscriptStore interface {
	// SaveTranscript writes one transcript document and returns its path.
	SaveTranscript(ctx context.Context, filename string, content []byte) (string, error)

	// SaveManifest overwrites the metadata manifest and returns its path.
	SaveManifest(ctx context.Context, data []byte) (string, error)

	// ListTranscripts returns the sorted paths of all transcript files.
	ListTranscripts() ([]string, error)
}

// ContextUploader submits local documents to the remote model-context store
// and waits for each to become ready.
type ContextUploader interface {
	UploadFile(ctx context.Context, path, displayName string) (domain.ContextFile, error)
}

// Generator answers a free-text question, optionally conditioned on
// previously uploaded context documents.
type Generator interface {
	Generate(ctx context.Context, prompt string, files []domain.ContextFile) (string, error)
}
