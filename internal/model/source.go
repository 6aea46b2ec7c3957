package model

// WebSource is a scraped web page available as evidence
type WebSource struct {
	Title   string         `json:"title"`
	URL     string         `json:"url"`
	Content Result[string] `json:"content"` // Extracted article body or extraction failure
}

// Text returns the extracted body, or the failure message if extraction failed
func (s WebSource) Text() string {
	if text, ok := s.Content.Get(); ok {
		return text
	}
	return s.Content.Message()
}

// VideoSegment is one time-coded line of a video transcript
type VideoSegment struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`     // Offset from video start, seconds
	Timestamp string  `json:"timestamp"` // MM:SS derived from Start
}

// VideoSource is a video with its transcript, available as evidence
type VideoSource struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	URL            string                 `json:"url"` // Canonical watch URL, no time offset
	Transcript     Result[[]VideoSegment] `json:"transcript"`
	TranscriptText string                 `json:"transcript_text"` // Flattened transcript or failure message
}

// WebResult is a single hit from the web search provider
type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// VideoResult is a single hit from the video search provider
type VideoResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SourceKind classifies what an evidence index resolves to
type SourceKind string

const (
	SourceKindWeb        SourceKind = "web"
	SourceKindVideo      SourceKind = "video"
	SourceKindUnresolved SourceKind = "unresolved" // Index outside both source ranges
)

// TimestampRecord is the earliest cited offset for one video
type TimestampRecord struct {
	Timestamp string `json:"timestamp"` // As written in the citation, e.g. "01:45"
	Seconds   int    `json:"seconds"`
}

// EarliestTimestamps maps a video's evidence index to its earliest cited offset
type EarliestTimestamps map[int]TimestampRecord

// Citation is one marker found in a generated answer
type Citation struct {
	Marker  string     `json:"marker"` // Matched text, e.g. "[2][01:45]"
	Index   int        `json:"index"`
	Kind    SourceKind `json:"kind"`
	URL     string     `json:"url,omitempty"`
	Seconds *int       `json:"seconds,omitempty"` // Set only when a valid MM:SS offset was applied
}
