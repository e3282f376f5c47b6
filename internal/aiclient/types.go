// Package aiclient talks to the external AI service that writes the merge
// request summary and review. It owns the per-run session token, the retry
// policy and the two wire shapes the service accepts.
package aiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingField      = errors.New("missing field in response")
	ErrAttemptsExhausted = errors.New("all attempts failed")
	ErrTokenAcquisition  = errors.New("token acquisition failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRejected          = errors.New("request rejected")
)

// RequestError is returned for every failed Send.
type RequestError struct {
	// Status is the last HTTP status seen, 0 when none was received.
	Status   int
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ai request failed after %d attempt(s) with status %d: %v", e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("ai request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the legacy request body.
type Request struct {
	Messages []Message `json:"messages"`
}

// NewRequest builds a request from a system prompt and the user content.
func NewRequest(system, user string) Request {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})
	return Request{Messages: msgs}
}

// Prompt flattens the messages into one prompt for completion-style models.
func (r Request) Prompt() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// ContentBlock is one element of a response. Its Type names the key that
// holds the text, e.g. {"type": "text", "text": "..."}.
type ContentBlock struct {
	Type string
	Text string
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typeRaw, ok := raw["type"]
	if !ok {
		return fmt.Errorf("%w: content.type", ErrMissingField)
	}
	if err := json.Unmarshal(typeRaw, &b.Type); err != nil {
		return fmt.Errorf("content.type: %w", err)
	}
	value, ok := raw[b.Type]
	if !ok {
		return fmt.Errorf("%w: content.%s", ErrMissingField, b.Type)
	}
	if err := json.Unmarshal(value, &b.Text); err != nil {
		// Non-string payloads are kept as raw JSON.
		b.Text = string(value)
	}
	return nil
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"type": b.Type, b.Type: b.Text})
}

// Envelope is the normalized response of every backend.
type Envelope struct {
	Content []ContentBlock `json:"content"`
}

// Text returns the text of the first content block.
func (e *Envelope) Text() (string, error) {
	if e == nil || len(e.Content) == 0 {
		return "", fmt.Errorf("%w: content", ErrMissingField)
	}
	return e.Content[0].Text, nil
}

// RunMetadata describes the merge request for the gateway shape.
type RunMetadata struct {
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Author string `json:"author"`
	Commit string `json:"commit"`
	MRURL  string `json:"mr_url"`
}

// SubjectKey returns the token subject of one merge request run.
func SubjectKey(project string, iid int) string {
	return fmt.Sprintf("rate-my-mr-%s-%d", project, iid)
}
