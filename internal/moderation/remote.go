package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// RemoteClassifier calls a model inference endpoint over HTTP.
//
// Request:  {"text": "..."}
// Response: {"probability": 0.83, "label": true, "found_lexical": ["..."]}
type RemoteClassifier struct {
	url    string
	client *http.Client
}

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Probability  float64  `json:"probability"`
	Label        bool     `json:"label"`
	FoundLexical []string `json:"found_lexical"`
}

// NewRemoteClassifier builds a classifier posting to url. A nil client uses http.DefaultClient.
func NewRemoteClassifier(url string, client *http.Client) *RemoteClassifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteClassifier{url: url, client: client}
}

// Classify posts text to the endpoint and decodes the score.
func (c *RemoteClassifier) Classify(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode classifier response: %w", err)
	}

	return Result{
		Probability: out.Probability,
		Flagged:     out.Label,
		Terms:       out.FoundLexical,
	}, nil
}
