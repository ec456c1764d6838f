package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for whole-batch emptiness. Partial failure inside a batch
// is tolerated; total emptiness is not.
var (
	// ErrNoVideos means no source yielded any video record.
	ErrNoVideos = errors.New("no videos found")

	// ErrNoTranscripts means videos were found but none carried subtitles.
	ErrNoTranscripts = errors.New("no transcripts available")
)

// RemoteRunError reports a scraping job that reached a terminal failure
// state on the remote side.
type RemoteRunError struct {
	RunID  string
	Status string
}

func (e *RemoteRunError) Error() string {
	return fmt.Sprintf("actor run %s finished with status %s", e.RunID, e.Status)
}

// UploadError reports a context-store upload whose remote processing failed.
type UploadError struct {
	Name  string
	State string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("file %s processing failed with state %s", e.Name, e.State)
}
