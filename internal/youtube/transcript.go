package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/askweb/internal/cache"
	"github.com/ppiankov/askweb/internal/fetch"
	"github.com/ppiankov/askweb/internal/metrics"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/ppiankov/askweb/internal/transcript"
	"go.uber.org/zap"
)

// TranscriptFailurePrefix starts every transcript failure message
const TranscriptFailurePrefix = "Error getting transcript: "

const playerResponseMarker = "ytInitialPlayerResponse = "

// ErrNoCaptions is returned when a video exposes no caption tracks
var ErrNoCaptions = errors.New("no captions available")

// TranscriptFetcher downloads a video's time-coded transcript
type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID string) model.Result[[]model.VideoSegment]
}

// Transcriber reads caption tracks from the watch page. No API key is needed.
type Transcriber struct {
	fetcher   *fetch.Fetcher
	watchBase string
	languages []string
	cache     cache.Cache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewTranscriber creates a transcriber. c may be nil.
func NewTranscriber(fetcher *fetch.Fetcher, cfg model.YouTubeConfig, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &Transcriber{
		fetcher:   fetcher,
		watchBase: strings.TrimSuffix(orDefault(cfg.WatchEndpoint, WatchEndpoint), "/"),
		languages: languages,
		cache:     c,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Transcript returns the video's segments, or a failure whose message starts
// with "Error getting transcript: ".
func (t *Transcriber) Transcript(ctx context.Context, videoID string) model.Result[[]model.VideoSegment] {
	key := cache.CacheKey(cache.NamespaceTranscript, videoID)
	if t.cache != nil {
		if data, ok := t.cache.Get(key); ok {
			var segments []model.VideoSegment
			if err := json.Unmarshal(data, &segments); err == nil {
				metrics.RecordCacheLookup(cache.NamespaceTranscript, true)
				return model.Success(segments)
			}
		}
		metrics.RecordCacheLookup(cache.NamespaceTranscript, false)
	}

	segments, err := t.fetchTranscript(ctx, videoID)
	if err != nil {
		t.logger.Debug("transcript unavailable", zap.String("video_id", videoID), zap.Error(err))
		return model.Failure[[]model.VideoSegment](TranscriptFailurePrefix + err.Error())
	}

	if t.cache != nil {
		if data, err := json.Marshal(segments); err == nil {
			if err := t.cache.Set(key, data, t.cacheTTL); err != nil {
				t.logger.Warn("cache transcript", zap.String("video_id", videoID), zap.Error(err))
			}
		}
	}
	return model.Success(segments)
}

func (t *Transcriber) fetchTranscript(ctx context.Context, videoID string) ([]model.VideoSegment, error) {
	page, err := t.fetcher.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, WatchURL(t.watchBase, videoID), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Language", strings.Join(t.languages, ",")+";q=0.9")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	player, err := parsePlayerResponse(page.Body)
	if err != nil {
		return nil, err
	}
	if status := player.PlayabilityStatus.Status; status != "" && status != "OK" {
		reason := player.PlayabilityStatus.Reason
		if reason == "" {
			reason = status
		}
		return nil, fmt.Errorf("video unavailable: %s", reason)
	}

	track, ok := pickBestTrack(player.Captions.Renderer.CaptionTracks, t.languages)
	if !ok {
		return nil, fmt.Errorf("%w for video %s", ErrNoCaptions, videoID)
	}

	trackURL, err := t.resolveTrackURL(track.BaseURL)
	if err != nil {
		return nil, err
	}
	body, err := t.fetcher.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("caption track: %w", err)
	}

	return ParseTimedText(body.Body)
}

func (t *Transcriber) resolveTrackURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("caption track url: %w", err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	base, err := url.Parse(t.watchBase + "/")
	if err != nil {
		return "", fmt.Errorf("watch endpoint: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated
}

func parsePlayerResponse(page []byte) (*playerResponse, error) {
	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("player response not found in watch page")
	}
	raw, err := extractJSON(page[idx+len(playerResponseMarker):])
	if err != nil {
		return nil, err
	}
	var player playerResponse
	if err := json.Unmarshal(raw, &player); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return &player, nil
}

// extractJSON returns the balanced {...} object at the start of data,
// skipping braces inside string literals.
func extractJSON(data []byte) ([]byte, error) {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return nil, errors.New("no JSON object found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[start : i+1], nil
			}
		}
	}
	return nil, errors.New("unterminated JSON object")
}

// pickBestTrack prefers a manual track in the earliest listed language, then an
// auto-generated one in that language, then whatever track comes first.
func pickBestTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range languages {
		var auto *captionTrack
		for i := range tracks {
			if !sameLanguage(tracks[i].LanguageCode, lang) {
				continue
			}
			if tracks[i].Kind != "asr" {
				return tracks[i], true
			}
			if auto == nil {
				auto = &tracks[i]
			}
		}
		if auto != nil {
			return *auto, true
		}
	}
	return tracks[0], true
}

// sameLanguage matches "en" against "en", "en-US" and "en-GB"
func sameLanguage(code, want string) bool {
	code, want = strings.ToLower(code), strings.ToLower(want)
	return code == want || strings.HasPrefix(code, want+"-")
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// ParseTimedText decodes a timedtext XML document into segments. Entity
// escaped captions ("&amp;#39;") are unescaped twice over.
func ParseTimedText(data []byte) ([]model.VideoSegment, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode captions: %w", err)
	}

	segments := make([]model.VideoSegment, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if text == "" {
			continue
		}
		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			return nil, fmt.Errorf("caption start %q: %w", t.Start, err)
		}
		segments = append(segments, transcript.NewSegment(text, start))
	}
	if len(segments) == 0 {
		return nil, ErrNoCaptions
	}
	return segments, nil
}
