package model

import (
	"fmt"
	"strings"
	"time"
)

// Answer is the complete result of asking one question
type Answer struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Mode      Mode      `json:"mode"`
	CreatedAt time.Time `json:"created_at"`

	Web    []WebSource   `json:"web_sources"`
	Videos []VideoSource `json:"video_sources"`

	RawAnswer      string             `json:"raw_answer"`      // Text returned by the generation provider
	AnswerHTML     string             `json:"answer_html"`     // Answer body with citations linked
	SourcesSection string             `json:"sources_section"` // Provider's own SOURCES: section, verbatim
	SourcesHTML    string             `json:"sources_html"`    // Canonical ordered source list
	Earliest       EarliestTimestamps `json:"earliest_timestamps"`
	Citations      []Citation         `json:"citations"`

	LLM   *LLMInfo   `json:"llm,omitempty"`
	Debug *DebugInfo `json:"debug,omitempty"`
}

// LLMInfo records which provider produced the answer
type LLMInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DebugInfo mirrors the debug panel: raw search hits, counts, and the prompt
type DebugInfo struct {
	WebResults   []WebResult   `json:"web_results"`
	VideoResults []VideoResult `json:"video_results"`
	WebCount     int           `json:"web_count"`
	VideoCount   int           `json:"video_count"`
	Prompt       string        `json:"prompt"`
}

// Mode selects which evidence types are retrieved
type Mode string

const (
	ModeBoth    Mode = "both"
	ModeWeb     Mode = "web"
	ModeYouTube Mode = "youtube"
)

// IncludesWeb reports whether web evidence is retrieved in this mode
func (m Mode) IncludesWeb() bool {
	return m == ModeBoth || m == ModeWeb
}

// IncludesYouTube reports whether video evidence is retrieved in this mode
func (m Mode) IncludesYouTube() bool {
	return m == ModeBoth || m == ModeYouTube
}

// ParseMode accepts both, web, youtube (and the UI labels "web only", "youtube only")
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return ModeBoth, nil
	case "web", "web only", "web-only":
		return ModeWeb, nil
	case "youtube", "youtube only", "youtube-only", "video":
		return ModeYouTube, nil
	default:
		return "", fmt.Errorf("unknown mode %q (supported: both, web, youtube)", s)
	}
}
