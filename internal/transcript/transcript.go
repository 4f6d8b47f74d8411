// Package transcript turns a video's caption track into cleaned plain text.
package transcript

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/heimdex/digest-agent/internal/failure"
	"github.com/heimdex/digest-agent/internal/logging"
)

// Entry is one timed caption line. Start and Duration are in seconds.
type Entry struct {
	Text     string
	Start    float64
	Duration float64
}

// Provider retrieves the caption entries of a video in playback order.
// Implementations report the specific failure kinds (captions disabled,
// no captions, video unavailable) as tagged errors.
type Provider interface {
	Captions(ctx context.Context, videoID string) ([]Entry, error)
}

// bracketed matches non-speech cues like "[Music]". Nested brackets are not
// balanced: the shortest span from the leftmost '[' wins.
var bracketed = regexp.MustCompile(`(?s)\[.*?\]`)

// Fetcher retrieves and cleans captions.
type Fetcher struct {
	provider Provider
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher backed by provider.
func NewFetcher(provider Provider, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		provider: provider,
		logger:   logging.WithComponent(logger, "transcript"),
	}
}

// Fetch returns the cleaned caption text of videoID. The provider is called
// exactly once.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	entries, err := f.provider.Captions(ctx, videoID)
	if err != nil {
		switch failure.KindOf(err) {
		case failure.KindCaptionsDisabled, failure.KindNoCaptions, failure.KindVideoUnavailable, failure.KindFetch:
			return "", err
		}
		return "", failure.Wrap(failure.KindFetch, "could not retrieve captions", err)
	}

	text := Clean(Join(entries))
	f.logger.Debug("captions fetched",
		"video_id", videoID, "entries", len(entries), "chars", len(text))
	return text, nil
}

// Join concatenates entry texts in order, separated by single spaces.
func Join(entries []Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

// Clean strips bracketed annotations, collapses whitespace runs to a single
// space and trims the ends. Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = bracketed.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
