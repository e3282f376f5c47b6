package aiclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wireShape encodes requests for, and decodes responses from, one endpoint.
type wireShape interface {
	encode(req Request) ([]byte, error)
	decode(body []byte) (*Envelope, error)
}

// legacyShape posts {messages:[...]} and reads {content:[...]}.
type legacyShape struct{}

func (legacyShape) encode(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func (legacyShape) decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(env.Content) == 0 {
		return nil, fmt.Errorf("%w: content", ErrMissingField)
	}
	return &env, nil
}

// gatewayShape wraps the legacy request as a JSON string next to the run
// metadata and unwraps metrics.summary_text from the response.
type gatewayShape struct {
	meta RunMetadata
}

type gatewayRequest struct {
	RunMetadata
	Prompt string `json:"prompt"`
}

type gatewayResponse struct {
	Status  string          `json:"status"`
	Metrics *gatewayMetrics `json:"metrics"`
}

type gatewayMetrics struct {
	SummaryText *string `json:"summary_text"`
}

func (g gatewayShape) encode(req Request) ([]byte, error) {
	prompt, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(gatewayRequest{RunMetadata: g.meta, Prompt: string(prompt)})
}

func (g gatewayShape) decode(body []byte) (*Envelope, error) {
	var resp gatewayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	switch strings.ToLower(resp.Status) {
	case "error", "failed", "failure":
		return nil, fmt.Errorf("%w: gateway status %q", ErrRejected, resp.Status)
	}
	if resp.Metrics == nil || resp.Metrics.SummaryText == nil {
		return nil, fmt.Errorf("%w: metrics.summary_text", ErrMissingField)
	}
	return &Envelope{Content: []ContentBlock{{Type: "text", Text: *resp.Metrics.SummaryText}}}, nil
}
