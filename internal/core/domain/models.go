package domain

// VideoRecord is one scraped video. Records are built once by the scraper
// adapter and never mutated afterwards. The JSON tags match the field names
// written into the metadata manifest.
type VideoRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	// PublishedAt is the source-provided date string. Used only as a sort
	// key; not guaranteed to be parseable as a date.
	PublishedAt string `json:"date"`
	Transcript  string `json:"subtitles"`
	ViewCount   int64  `json:"views"`
	Duration    string `json:"duration"`
}

// HasTranscript reports whether the record carries transcript text.
func (v VideoRecord) HasTranscript() bool {
	return v.Transcript != ""
}

// Context file states as reported by the model-context store.
const (
	FileStateProcessing = "PROCESSING"
	FileStateActive     = "ACTIVE"
	FileStateFailed     = "FAILED"
)

// ContextFile is a remote handle for a document uploaded to the
// model-context store.
type ContextFile struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	MIMEType    string `json:"mimeType"`
	State       string `json:"state"`
}

// Manifest is the metadata document persisted next to the transcript files.
// It is overwritten unconditionally on every run.
type Manifest struct {
	TotalVideos   int           `json:"total_videos"`
	ProcessedDate string        `json:"processed_date"`
	Videos        []VideoRecord `json:"videos"`
}
