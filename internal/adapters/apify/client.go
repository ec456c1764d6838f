package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tuberag/internal/core/domain"
)

const (
	defaultBaseURL = "https://api.apify.com/v2"
	// streamers/youtube-scraper, addressed in the tilde form the REST API
	// expects for user~actor IDs.
	defaultActorID = "streamers~youtube-scraper"

	defaultPollInterval = 3 * time.Second
	taskMemoryMbytes    = 1024
)

// Client calls the Apify REST API to run the YouTube scraper actor and
// retrieve its dataset items. It implements ports.VideoScraper and
// ports.TaskRunner.
type Client struct {
	token        string
	baseURL      string
	actorID      string
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

// WithActorID overrides the scraper actor ID.
func WithActorID(id string) Option {
	return func(c *Client) { c.actorID = id }
}

// WithPollInterval overrides the run-status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates an Apify client with the given API token.
func NewClient(token string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("apify: API token is required")
	}
	c := &Client{
		token:        token,
		baseURL:      defaultBaseURL,
		actorID:      defaultActorID,
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

// runInput is the actor input for one scraping job.
type runInput struct {
	StartURLs         []startURL `json:"startUrls"`
	MaxResults        int        `json:"maxResults"`
	GetSubtitles      bool       `json:"getSubtitles"`
	SubtitlesLanguage string     `json:"subtitlesLanguage"`
	SubtitlesFormat   string     `json:"subtitlesFormat"`
}

type startURL struct {
	URL string `json:"url"`
}

func newRunInput(sourceURL string, maxResults int) runInput {
	return runInput{
		StartURLs:         []startURL{{URL: sourceURL}},
		MaxResults:        maxResults,
		GetSubtitles:      true,
		SubtitlesLanguage: "en",
		SubtitlesFormat:   "plaintext",
	}
}

// FetchVideos submits an actor run for the URL, waits for it to finish, and
// returns up to maxResults mapped records. A single transport or run failure
// is surfaced to the caller; no retry is performed.
func (c *Client) FetchVideos(ctx context.Context, sourceURL string, maxResults int) ([]domain.VideoRecord, error) {
	c.logger.Info("starting actor run", "url", sourceURL, "max_results", maxResults)

	runID, err := c.startActorRun(ctx, sourceURL, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to start actor run: %w", err)
	}

	datasetID, err := c.waitForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for run: %w", err)
	}

	records, err := c.listDatasetItems(ctx, datasetID, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}

	c.logger.Info("actor run finished", "url", sourceURL, "videos", len(records))
	return records, nil
}

func (c *Client) startActorRun(ctx context.Context, sourceURL string, maxResults int) (string, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.baseURL, c.actorID, c.token)

	body, _ := json.Marshal(newRunInput(sourceURL, maxResults))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to start actor: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.ID, nil
}

// waitForRun polls the run status until it reaches a terminal state and
// returns the run's default dataset ID on success.
func (c *Client) waitForRun(ctx context.Context, runID string) (string, error) {
	statusURL := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.baseURL, runID, c.token)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return "", err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", err
		}

		var status struct {
			Data struct {
				Status           string `json:"status"`
				DefaultDatasetID string `json:"defaultDatasetId"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			resp.Body.Close()
			return "", err
		}
		resp.Body.Close()

		switch status.Data.Status {
		case "SUCCEEDED":
			return status.Data.DefaultDatasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", &domain.RemoteRunError{RunID: runID, Status: status.Data.Status}
		}
		// Still running, keep polling.
	}
}

func (c *Client) listDatasetItems(ctx context.Context, datasetID string, limit int) ([]domain.VideoRecord, error) {
	endpoint := fmt.Sprintf("%s/datasets/%s/items?token=%s&format=json&limit=%d",
		c.baseURL, datasetID, c.token, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to list dataset items: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var items []rawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}

	records := make([]domain.VideoRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.toRecord())
	}
	return records, nil
}

// rawItem is one dataset item as returned by the actor. Every field is
// optional; mapping applies defaults.
type rawItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Subtitles   string `json:"subtitles"`
	ViewCount   int64  `json:"viewCount"`
	Duration    string `json:"duration"`
}

func (r rawItem) toRecord() domain.VideoRecord {
	title := r.Title
	if title == "" {
		title = "Untitled"
	}
	views := r.ViewCount
	if views < 0 {
		views = 0
	}
	return domain.VideoRecord{
		ID:          r.ID,
		Title:       title,
		URL:         r.URL,
		Description: r.Description,
		PublishedAt: r.Date,
		Transcript:  r.Subtitles,
		ViewCount:   views,
		Duration:    r.Duration,
	}
}

// CreateTask registers a named reusable job definition for one source URL
// and returns the remote task ID.
func (c *Client) CreateTask(ctx context.Context, name, sourceURL string, maxResults int) (string, error) {
	endpoint := fmt.Sprintf("%s/actor-tasks?token=%s", c.baseURL, c.token)

	payload := struct {
		ActID   string   `json:"actId"`
		Name    string   `json:"name"`
		Options struct {
			MemoryMbytes int `json:"memoryMbytes"`
		} `json:"options"`
		Input runInput `json:"input"`
	}{
		ActID: c.actorID,
		Name:  name,
		Input: newRunInput(sourceURL, maxResults),
	}
	payload.Options.MemoryMbytes = taskMemoryMbytes

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create task: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Data.ID, nil
}

// RunTask executes a previously created task and returns its mapped records.
func (c *Client) RunTask(ctx context.Context, taskID string, limit int) ([]domain.VideoRecord, error) {
	endpoint := fmt.Sprintf("%s/actor-tasks/%s/runs?token=%s", c.baseURL, taskID, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to run task: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	datasetID, err := c.waitForRun(ctx, result.Data.ID)
	if err != nil {
		return nil, fmt.Errorf("task execution failed: %w", err)
	}
	return c.listDatasetItems(ctx, datasetID, limit)
}

// DeleteTask removes a remote task definition.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	endpoint := fmt.Sprintf("%s/actor-tasks/%s?token=%s", c.baseURL, url.PathEscape(taskID), c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to delete task: status %d", resp.StatusCode)
	}
	return nil
}
