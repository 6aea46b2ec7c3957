// Package youtube finds captioned videos for a question and downloads their
// time-coded transcripts.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/askweb/internal/fetch"
	"github.com/ppiankov/askweb/internal/model"
	"go.uber.org/zap"
)

const (
	// DataAPIEndpoint is the YouTube Data API v3 base
	DataAPIEndpoint = "https://www.googleapis.com/youtube/v3"
	// WatchEndpoint is where watch pages and canonical video URLs live
	WatchEndpoint = "https://www.youtube.com"

	// DefaultMaxResults is the number of videos used as evidence
	DefaultMaxResults = 3

	// Candidates fetched per wanted video, since many have no captions
	oversample = 3
)

// ErrNoAPIKey is returned when video search is configured without a key
var ErrNoAPIKey = errors.New("YouTube API key not set")

// VideoSearcher returns captioned videos for a query
type VideoSearcher interface {
	Search(ctx context.Context, query string, max int) ([]model.VideoResult, error)
}

// Searcher queries the Data API
type Searcher struct {
	fetcher   *fetch.Fetcher
	apiKey    string
	apiBase   string
	watchBase string
	logger    *zap.Logger
}

// NewSearcher creates a Data API searcher. It fails without an API key.
func NewSearcher(fetcher *fetch.Fetcher, cfg model.YouTubeConfig, logger *zap.Logger) (*Searcher, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		fetcher:   fetcher,
		apiKey:    cfg.APIKey,
		apiBase:   strings.TrimSuffix(orDefault(cfg.DataAPIEndpoint, DataAPIEndpoint), "/"),
		watchBase: strings.TrimSuffix(orDefault(cfg.WatchEndpoint, WatchEndpoint), "/"),
		logger:    logger,
	}, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

type captionsResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Search asks for max*3 candidates and keeps, in ranking order, the first max
// that list at least one caption track. Candidates whose caption check fails
// are skipped.
func (s *Searcher) Search(ctx context.Context, query string, max int) ([]model.VideoResult, error) {
	if max <= 0 {
		max = DefaultMaxResults
	}

	params := url.Values{
		"part":       {"id,snippet"},
		"q":          {query},
		"type":       {"video"},
		"maxResults": {strconv.Itoa(max * oversample)},
		"key":        {s.apiKey},
	}
	var resp searchResponse
	if err := s.getJSON(ctx, s.apiBase+"/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("video search: %w", s.redact(err))
	}

	var videos []model.VideoResult
	for _, item := range resp.Items {
		if item.ID.Kind != "youtube#video" || item.ID.VideoID == "" {
			continue
		}
		id := item.ID.VideoID

		has, err := s.hasCaptions(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return videos, ctx.Err()
			}
			s.logger.Debug("caption check failed", zap.String("video_id", id), zap.Error(s.redact(err)))
			continue
		}
		if !has {
			continue
		}

		videos = append(videos, model.VideoResult{
			ID:    id,
			Title: html.UnescapeString(item.Snippet.Title),
			URL:   WatchURL(s.watchBase, id),
		})
		if len(videos) >= max {
			break
		}
	}

	s.logger.Debug("video search complete",
		zap.String("query", query),
		zap.Int("candidates", len(resp.Items)),
		zap.Int("captioned", len(videos)))
	return videos, nil
}

func (s *Searcher) hasCaptions(ctx context.Context, videoID string) (bool, error) {
	params := url.Values{
		"part":    {"snippet"},
		"videoId": {videoID},
		"key":     {s.apiKey},
	}
	var resp captionsResponse
	if err := s.getJSON(ctx, s.apiBase+"/captions?"+params.Encode(), &resp); err != nil {
		return false, err
	}
	return len(resp.Items) > 0, nil
}

func (s *Searcher) getJSON(ctx context.Context, rawURL string, out any) error {
	result, err := s.fetcher.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact keeps the API key out of transport errors, which quote the request URL
func (s *Searcher) redact(err error) error {
	if err == nil || !strings.Contains(err.Error(), s.apiKey) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), s.apiKey, "REDACTED"))
}

// WatchURL is the canonical watch page for a video, without a time offset
func WatchURL(base, videoID string) string {
	return strings.TrimSuffix(base, "/") + "/watch?v=" + url.QueryEscape(videoID)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
