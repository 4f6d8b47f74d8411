// Package youtube resolves video identifiers and retrieves caption tracks
// from YouTube watch pages.
package youtube

import (
	"net/url"

	"github.com/heimdex/digest-agent/internal/failure"
)

// ExtractVideoID returns the value of the "v" query parameter of rawURL.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", failure.Wrap(failure.KindInvalidURL, "could not parse video URL", err)
	}
	id := u.Query().Get("v")
	if id == "" {
		return "", failure.New(failure.KindInvalidURL, "video URL has no v parameter")
	}
	return id, nil
}
