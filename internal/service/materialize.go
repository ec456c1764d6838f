package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tuberag/internal/core/domain"
	"tuberag/internal/core/ports"
)

const maxFilenameTitleLen = 50

// Materializer turns scraped records into on-disk transcript documents and
// persists the metadata manifest.
type Materializer struct {
	store  ports.TranscriptStore
	logger *slog.Logger
	now    func() time.Time
}

// NewMaterializer creates a Materializer writing through the given store.
func NewMaterializer(store ports.TranscriptStore, logger *slog.Logger) *Materializer {
	return &Materializer{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the manifest timestamp source. Used by tests to get
// deterministic manifests.
func (m *Materializer) WithClock(now func() time.Time) *Materializer {
	m.now = now
	return m
}

// Materialize writes one transcript document per record that has a
// transcript and returns the created file paths. Records without a
// transcript are skipped silently; records that fail to write are skipped
// with a warning. A single record never aborts the batch.
func (m *Materializer) Materialize(ctx context.Context, records []domain.VideoRecord) []string {
	m.logger.Info("creating transcript files", "videos", len(records))

	var paths []string
	for _, rec := range records {
		if !rec.HasTranscript() {
			m.logger.Info("no transcript available, skipping", "title", rec.Title)
			continue
		}

		filename := transcriptFilename(rec)
		path, err := m.store.SaveTranscript(ctx, filename, []byte(formatTranscript(rec)))
		if err != nil {
			m.logger.Warn("failed to create transcript", "title", rec.Title, "error", err)
			continue
		}
		m.logger.Info("created transcript", "file", filename)
		paths = append(paths, path)
	}

	m.logger.Info("transcript files created", "count", len(paths))
	return paths
}

// SaveManifest overwrites the metadata manifest with the full record list.
func (m *Materializer) SaveManifest(ctx context.Context, records []domain.VideoRecord) error {
	manifest := domain.Manifest{
		TotalVideos:   len(records),
		ProcessedDate: m.now().Format(time.RFC3339),
		Videos:        records,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	path, err := m.store.SaveManifest(ctx, data)
	if err != nil {
		return err
	}
	m.logger.Info("saved metadata", "path", path)
	return nil
}

// transcriptFilename derives the document filename from the sanitized title
// and the video ID. Colliding derivations overwrite each other; there is no
// collision detection.
func transcriptFilename(rec domain.VideoRecord) string {
	id := rec.ID
	if id == "" {
		id = "unknown"
	}
	return sanitizeFilename(rec.Title) + "_" + id + ".txt"
}

// sanitizeFilename strips filesystem-illegal characters, replaces spaces
// with underscores, and truncates to maxFilenameTitleLen bytes.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			continue
		case ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if runes := []rune(s); len(runes) > maxFilenameTitleLen {
		s = string(runes[:maxFilenameTitleLen])
	}
	return s
}

// formatTranscript renders the fixed self-contained document template.
func formatTranscript(rec domain.VideoRecord) string {
	return fmt.Sprintf(`# %s

**URL:** %s
**Date:** %s
**Views:** %s
**Duration:** %s

## Description

%s

## Transcript

%s

---
Video ID: %s
`,
		rec.Title,
		rec.URL,
		rec.PublishedAt,
		groupDigits(rec.ViewCount),
		rec.Duration,
		rec.Description,
		rec.Transcript,
		rec.ID,
	)
}

// groupDigits formats n with comma thousands separators.
func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
