package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const adminSecretHeader = "x-hasura-admin-secret"

// UploadError represents a non-2xx answer from the GraphQL endpoint.
type UploadError struct {
	StatusCode int
	Body       string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("summary insert failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
// Other client errors (4xx) are considered permanent.
func (e *UploadError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// HTTPClient talks to a Hasura GraphQL endpoint (Nhost) with an admin secret.
type HTTPClient struct {
	graphqlURL  string
	adminSecret string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewHTTPClient(graphqlURL, adminSecret string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		graphqlURL:  graphqlURL,
		adminSecret: adminSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) InsertSummary(ctx context.Context, s SummaryInsert) error {
	var data insertSummaryData
	if err := c.do(ctx, insertSummaryMutation, s, &data); err != nil {
		return err
	}
	c.logger.Info("summary inserted",
		"youtube_url", s.YouTubeURL,
		"affected_rows", data.InsertVideoSummaries.AffectedRows,
	)
	return nil
}

func (c *HTTPClient) do(ctx context.Context, query string, variables, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.adminSecret != "" {
		req.Header.Set(adminSecretHeader, c.adminSecret)
	}

	c.logger.Debug("sending graphql request", "url", c.graphqlURL, "body_bytes", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var gr graphQLResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return fmt.Errorf("unmarshal graphql response: %w", err)
	}
	if len(gr.Errors) > 0 {
		return GraphQLErrors(gr.Errors)
	}
	if out != nil && len(gr.Data) > 0 {
		if err := json.Unmarshal(gr.Data, out); err != nil {
			return fmt.Errorf("unmarshal graphql data: %w", err)
		}
	}
	return nil
}
