package cloud

import (
	"encoding/json"
	"strings"
)

// insertSummaryMutation writes one row into the video_summaries table.
const insertSummaryMutation = `mutation InsertSummary($youtube_url: String!, $summary: String!) {
  insert_video_summaries(objects: {youtube_url: $youtube_url, summary: $summary}) {
    affected_rows
  }
}`

// SummaryInsert is the row sent to insert_video_summaries.
type SummaryInsert struct {
	YouTubeURL string `json:"youtube_url"`
	Summary    string `json:"summary"`
}

type graphQLRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLErrors is returned when the endpoint answers 200 with errors.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ge := range e {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

type insertSummaryData struct {
	InsertVideoSummaries struct {
		AffectedRows int `json:"affected_rows"`
	} `json:"insert_video_summaries"`
}
