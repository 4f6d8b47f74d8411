package store

import (
	"context"

	"github.com/heimdex/digest-agent/internal/cloud"
)

// CloudSink inserts {youtube_url, summary} through the hosted GraphQL API.
type CloudSink struct {
	client cloud.Client
}

func NewCloudSink(client cloud.Client) *CloudSink {
	return &CloudSink{client: client}
}

func (s *CloudSink) Name() string {
	return "cloud"
}

func (s *CloudSink) Save(ctx context.Context, rec Record) error {
	return s.client.InsertSummary(ctx, cloud.SummaryInsert{
		YouTubeURL: rec.YouTubeURL,
		Summary:    rec.Summary,
	})
}
