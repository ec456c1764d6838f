package service

import (
	"context"
	"log/slog"
	"path/filepath"

	"tuberag/internal/core/domain"
	"tuberag/internal/core/ports"
)

// Uploader submits materialized documents to the remote context store one
// at a time, each with a blocking readiness wait.
type Uploader struct {
	store  ports.ContextUploader
	logger *slog.Logger
}

// NewUploader creates an Uploader writing through the given store.
func NewUploader(store ports.ContextUploader, logger *slog.Logger) *Uploader {
	return &Uploader{store: store, logger: logger}
}

// UploadAll uploads every path sequentially and returns the handles of the
// files that became ready. A file whose upload or processing fails is
// logged and skipped, so the returned list may be shorter than the input.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) []domain.ContextFile {
	var uploaded []domain.ContextFile
	for i, path := range paths {
		u.logger.Info("uploading", "file", i+1, "of", len(paths))
		file, err := u.store.UploadFile(ctx, path, filepath.Base(path))
		if err != nil {
			u.logger.Warn("skipping file", "path", path, "error", err)
			continue
		}
		uploaded = append(uploaded, file)
	}
	return uploaded
}
