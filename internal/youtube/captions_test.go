package youtube

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/digest-agent/internal/failure"
)

const timedTextBody = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="1.2">Hello</text>
<text start="1.7" dur="0.8">[Music]</text>
<text start="2.5" dur="2">don&amp;#39;t &lt;i&gt;stop&lt;/i&gt;</text>
<text start="4.5" dur="1"></text>
<text start="5.5" dur="1">world</text>
</transcript>`

func watchPage(player string) string {
	return `<html><head><script>var ytInitialPlayerResponse = ` + player +
		`;var meta = {"x": 1};</script></head><body></body></html>`
}

func newTestServer(t *testing.T, player func(base string) string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			if r.URL.Query().Get("v") == "" {
				http.Error(w, "missing v", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, watchPage(player(srv.URL)))
		case "/api/timedtext":
			if r.URL.Query().Get("fmt") != "" {
				http.Error(w, "unexpected fmt", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, timedTextBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(ClientConfig{
		BaseURL: srv.URL,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCaptions(t *testing.T) {
	srv := newTestServer(t, func(base string) string {
		return `{"playabilityStatus":{"status":"OK"},"videoDetails":{"title":"a \"quoted\" {title}"},
			"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
			{"baseUrl":"` + base + `/api/timedtext?v=abc&lang=de","languageCode":"de"},
			{"baseUrl":"` + base + `/api/timedtext?v=abc&lang=en&kind=asr","languageCode":"en","kind":"asr"},
			{"baseUrl":"` + base + `/api/timedtext?v=abc&lang=en&fmt=srv3","languageCode":"en"}]}}}`
	})

	entries, err := newTestClient(srv).Captions(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "Hello", entries[0].Text)
	assert.InDelta(t, 0.5, entries[0].Start, 1e-9)
	assert.InDelta(t, 1.2, entries[0].Duration, 1e-9)
	assert.Equal(t, "[Music]", entries[1].Text)
	assert.Equal(t, "don't stop", entries[2].Text)
	assert.Equal(t, "world", entries[3].Text)
}

func TestCaptionsFailureKinds(t *testing.T) {
	tests := []struct {
		name   string
		player string
		want   failure.Kind
	}{
		{
			name:   "captions disabled",
			player: `{"playabilityStatus":{"status":"OK"}}`,
			want:   failure.KindCaptionsDisabled,
		},
		{
			name:   "video unavailable",
			player: `{"playabilityStatus":{"status":"ERROR","reason":"This video is private"}}`,
			want:   failure.KindVideoUnavailable,
		},
		{
			name:   "empty track list",
			player: `{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[]}}}`,
			want:   failure.KindNoCaptions,
		},
		{
			name: "no english track",
			player: `{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
				{"baseUrl":"http://example.invalid/api/timedtext?lang=fr","languageCode":"fr"}]}}}`,
			want: failure.KindNoCaptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(string) string { return tt.player })

			_, err := newTestClient(srv).Captions(context.Background(), "abc")
			require.Error(t, err)
			assert.Equal(t, tt.want, failure.KindOf(err))
		})
	}
}

func TestCaptionsUpstreamErrorIsUntagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Captions(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, failure.KindInternal, failure.KindOf(err))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestPickTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u1&exp=xpe", LanguageCode: "en"},
		{BaseURL: "u2", LanguageCode: "en", Kind: "asr"},
		{BaseURL: "u3", LanguageCode: "en-GB"},
	}

	got, ok := pickTrack(tracks, []string{"en"})
	require.True(t, ok)
	assert.Equal(t, "u2", got.BaseURL)

	got, ok = pickTrack(tracks[2:], []string{"en"})
	require.True(t, ok)
	assert.Equal(t, "u3", got.BaseURL)

	_, ok = pickTrack(tracks[:1], []string{"en"})
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1};rest`, `{"a":1}`},
		{`{"a":{"b":"}"}} trailing`, `{"a":{"b":"}"}}`},
		{`{"a":"x\\"}, "b":{}}`, `{"a":"x\\"}`},
		{`{"a":"\"{"}`, `{"a":"\"{"}`},
		{`{"unterminated":`, ``},
		{`not json`, ``},
	}

	for _, tt := range tests {
		got := extractJSON([]byte(tt.in))
		assert.Equal(t, tt.want, string(got), "input %s", tt.in)
	}
}
