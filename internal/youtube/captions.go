package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/heimdex/digest-agent/internal/failure"
	"github.com/heimdex/digest-agent/internal/logging"
	"github.com/heimdex/digest-agent/internal/transcript"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	defaultTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxWatchPageBytes = 6 * 1024 * 1024
	maxTimedTextBytes = 2 * 1024 * 1024

	playerResponseMarker = "ytInitialPlayerResponse = "
)

// ClientConfig holds options for a caption Client.
type ClientConfig struct {
	// BaseURL is the origin serving /watch pages. Defaults to DefaultBaseURL.
	BaseURL string
	// Languages lists accepted caption language codes in preference order.
	Languages  []string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client scrapes the watch page for the caption track list and downloads
// the preferred track as timedtext XML.
type Client struct {
	baseURL    string
	languages  []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a caption client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		languages:  langs,
		httpClient: hc,
		logger:     logging.WithComponent(logger, "youtube"),
	}
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",innerxml"`
	} `xml:"text"`
}

// Captions returns the ordered caption entries of videoID.
func (c *Client) Captions(ctx context.Context, videoID string) ([]transcript.Entry, error) {
	player, err := c.playerResponse(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if ps := player.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		msg := "video is unavailable"
		if ps.Reason != "" {
			msg = ps.Reason
		}
		return nil, failure.New(failure.KindVideoUnavailable, msg)
	}
	if player.Captions == nil {
		return nil, failure.New(failure.KindCaptionsDisabled, "subtitles are disabled for this video")
	}

	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, failure.New(failure.KindNoCaptions, "video has no caption tracks")
	}
	track, ok := pickTrack(tracks, c.languages)
	if !ok {
		return nil, failure.New(failure.KindNoCaptions,
			fmt.Sprintf("no caption track for languages %v", c.languages))
	}

	c.logger.Debug("caption track selected",
		"video_id", videoID, "language", track.LanguageCode, "kind", track.Kind)

	return c.fetchTimedText(ctx, track.BaseURL)
}

func (c *Client) playerResponse(ctx context.Context, videoID string) (*playerResponse, error) {
	watchURL := c.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	body, err := c.get(ctx, watchURL, maxWatchPageBytes)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSON(body[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("malformed ytInitialPlayerResponse")
	}

	var resp playerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &resp, nil
}

func (c *Client) fetchTimedText(ctx context.Context, trackURL string) ([]transcript.Entry, error) {
	u, err := url.Parse(trackURL)
	if err != nil {
		return nil, fmt.Errorf("caption track url: %w", err)
	}
	// srv3 and json3 are richer formats; the default is the flat <text> list.
	q := u.Query()
	q.Del("fmt")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String(), maxTimedTextBytes)
	if err != nil {
		return nil, fmt.Errorf("timedtext: %w", err)
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	entries := make([]transcript.Entry, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := plainText(line.Text)
		if text == "" {
			continue
		}
		entries = append(entries, transcript.Entry{
			Text:     text,
			Start:    parseSeconds(line.Start),
			Duration: parseSeconds(line.Dur),
		})
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited by %s", req.URL.Host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// needsPoToken reports whether a track URL is only fetchable from a browser session.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack prefers a manual track in a requested language, then an
// auto-generated one, then any regional variant of a requested language.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}

	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if strings.HasPrefix(t.LanguageCode, lang+"-") {
				return t, true
			}
		}
	}
	return captionTrack{}, false
}

// extractJSON returns the balanced JSON object at the start of data, or nil.
func extractJSON(data []byte) []byte {
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	depth := 0
	inString := false
	escaped := false
	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return data[:i+1]
			}
		}
	}
	return nil
}

// plainText decodes a timedtext fragment. Caption bodies are XML-escaped
// HTML, so entities may be doubly encoded and inline tags like <i> appear.
func plainText(fragment string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(html.UnescapeString(fragment)))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
