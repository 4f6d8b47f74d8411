package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultHuggingFaceURL   = "https://router.huggingface.co/hf-inference"
	DefaultHuggingFaceModel = "facebook/bart-large-cnn"
)

// HuggingFaceModel calls the hosted inference API for a summarization model.
type HuggingFaceModel struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
}

// NewHuggingFaceModel creates a client for model. Empty baseURL and model
// select the hosted defaults.
func NewHuggingFaceModel(baseURL, model, token string) *HuggingFaceModel {
	if baseURL == "" {
		baseURL = DefaultHuggingFaceURL
	}
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	return &HuggingFaceModel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		token:      token,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

// APIError is a non-2xx reply from the inference API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API returned %d: %s", e.StatusCode, e.Body)
}

// Summarize implements Model. Lengths are in model tokens.
func (m *HuggingFaceModel) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	payload, err := json.Marshal(hfRequest{
		Inputs:     text,
		Parameters: hfParameters{MinLength: minLength, MaxLength: maxLength},
		Options:    hfOptions{WaitForModel: true},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/models/"+m.model, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out []hfSummary
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty response from inference API")
	}
	return out[0].SummaryText, nil
}
