package cloud

import "context"

// Client persists finished summaries to the hosted database.
type Client interface {
	InsertSummary(ctx context.Context, s SummaryInsert) error
}
