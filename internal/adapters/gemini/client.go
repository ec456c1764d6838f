package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"tuberag/internal/core/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"

	defaultPollInterval = 2 * time.Second
)

// Client calls the Gemini REST API for file uploads and content generation.
// It implements ports.ContextUploader and ports.Generator.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithModel overrides the generation model.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithPollInterval overrides the file-readiness polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates a Gemini client with the given API key.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		model:        defaultModel,
		pollInterval: defaultPollInterval,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UploadFile uploads one local file to the context store and blocks until
// remote processing leaves the PROCESSING state. A terminal FAILED state is
// returned as a domain.UploadError.
func (c *Client) UploadFile(ctx context.Context, path, displayName string) (domain.ContextFile, error) {
	c.logger.Info("uploading file", "path", path, "display_name", displayName)

	file, err := c.startUpload(ctx, path, displayName)
	if err != nil {
		return domain.ContextFile{}, fmt.Errorf("failed to upload %s: %w", path, err)
	}

	for file.State == domain.FileStateProcessing {
		select {
		case <-ctx.Done():
			return domain.ContextFile{}, ctx.Err()
		case <-time.After(c.pollInterval):
		}
		file, err = c.GetFile(ctx, file.Name)
		if err != nil {
			return domain.ContextFile{}, fmt.Errorf("failed to poll %s: %w", path, err)
		}
	}

	if file.State == domain.FileStateFailed {
		return domain.ContextFile{}, &domain.UploadError{Name: file.Name, State: file.State}
	}

	c.logger.Info("file ready", "name", file.Name, "display_name", file.DisplayName)
	return file, nil
}

// startUpload sends the multipart media upload and returns the initial
// remote handle, usually still in the PROCESSING state.
func (c *Client) startUpload(ctx context.Context, path, displayName string) (domain.ContextFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ContextFile{}, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return domain.ContextFile{}, err
	}
	meta := struct {
		File struct {
			DisplayName string `json:"display_name"`
		} `json:"file"`
	}{}
	meta.File.DisplayName = displayName
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return domain.ContextFile{}, err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", "text/plain")
	filePart, err := w.CreatePart(fileHeader)
	if err != nil {
		return domain.ContextFile{}, err
	}
	if _, err := filePart.Write(content); err != nil {
		return domain.ContextFile{}, err
	}
	if err := w.Close(); err != nil {
		return domain.ContextFile{}, err
	}

	endpoint := fmt.Sprintf("%s/upload/v1beta/files", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return domain.ContextFile{}, err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())
	req.Header.Set("X-Goog-Upload-Protocol", "multipart")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ContextFile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.ContextFile{}, fmt.Errorf("upload failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		File domain.ContextFile `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ContextFile{}, err
	}
	return result.File, nil
}

// GetFile fetches the current state of a remote file handle.
func (c *Client) GetFile(ctx context.Context, name string) (domain.ContextFile, error) {
	endpoint := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ContextFile{}, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ContextFile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.ContextFile{}, fmt.Errorf("get file failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var file domain.ContextFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return domain.ContextFile{}, err
	}
	return file, nil
}

// ListFiles returns the metadata of every file currently held by the
// context store, following pagination.
func (c *Client) ListFiles(ctx context.Context) ([]domain.ContextFile, error) {
	var files []domain.ContextFile
	pageToken := ""

	for {
		endpoint := fmt.Sprintf("%s/v1beta/files", c.baseURL)
		if pageToken != "" {
			endpoint += "?pageToken=" + pageToken
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		var page struct {
			Files         []domain.ContextFile `json:"files"`
			NextPageToken string               `json:"nextPageToken"`
		}
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("list files failed: status %d, body: %s", resp.StatusCode, string(respBody))
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()

		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteFile removes a file from the context store.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	endpoint := fmt.Sprintf("%s/v1beta/%s", c.baseURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete file failed: status %d", resp.StatusCode)
	}
	return nil
}

// ClearFiles deletes every file in the context store. Individual deletion
// failures are logged and skipped.
func (c *Client) ClearFiles(ctx context.Context) error {
	files, err := c.ListFiles(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := c.DeleteFile(ctx, f.Name); err != nil {
			c.logger.Warn("failed to delete file", "name", f.Name, "error", err)
		}
	}
	return nil
}

// Generate answers a free-text question. With zero context files the prompt
// is sent unconditioned; otherwise every uploaded document is attached.
func (c *Client) Generate(ctx context.Context, prompt string, files []domain.ContextFile) (string, error) {
	type filePart struct {
		FileURI  string `json:"fileUri"`
		MIMEType string `json:"mimeType"`
	}
	type part struct {
		Text     string    `json:"text,omitempty"`
		FileData *filePart `json:"fileData,omitempty"`
	}

	parts := []part{{Text: prompt}}
	for _, f := range files {
		parts = append(parts, part{FileData: &filePart{FileURI: f.URI, MIMEType: f.MIMEType}})
	}

	payload := struct {
		Contents []struct {
			Parts []part `json:"parts"`
		} `json:"contents"`
	}{
		Contents: []struct {
			Parts []part `json:"parts"`
		}{{Parts: parts}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("generation returned no candidates")
	}

	var answer bytes.Buffer
	for _, p := range result.Candidates[0].Content.Parts {
		answer.WriteString(p.Text)
	}
	return answer.String(), nil
}
