// Package responder calls the remote response generation service.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// ErrEmptyReply is wrapped in a GenerationError when the service answers with a blank response.
var ErrEmptyReply = errors.New("generation service returned an empty reply")

type generateRequest struct {
	Text string `json:"text"`
}

// Client posts user text to the generation endpoint. It never retries.
type Client struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewClient creates a new responder client
func NewClient(cfg config.ResponderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:     cfg.URL,
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Respond returns the generated reply. Every failure is a *domain.GenerationError;
// a malformed body additionally wraps a *domain.ResponseFormatError.
func (c *Client) Respond(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(generateRequest{Text: text})
	if err != nil {
		return "", &domain.GenerationError{Op: "encode", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &domain.GenerationError{Op: "request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &domain.GenerationError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &domain.GenerationError{Op: "read", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.GenerationError{
			Op:  "request",
			Err: fmt.Errorf("generation service returned status %d", resp.StatusCode),
		}
	}

	reply, err := decodeReply(raw)
	if err != nil {
		return "", &domain.GenerationError{Op: "decode", Err: err}
	}
	if strings.TrimSpace(reply) == "" {
		return "", &domain.GenerationError{Op: "decode", Err: ErrEmptyReply}
	}

	log.Debug().
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Int("chars", len(reply)).
		Msg("generation service replied")
	return reply, nil
}

// decodeReply requires a JSON object whose "response" field is a string.
func decodeReply(raw []byte) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return "", &domain.ResponseFormatError{Body: string(raw)}
	}
	value, ok := fields["response"]
	if !ok || string(value) == "null" {
		return "", &domain.ResponseFormatError{Body: string(raw)}
	}
	var reply string
	if err := json.Unmarshal(value, &reply); err != nil {
		return "", &domain.ResponseFormatError{Body: string(raw)}
	}
	return reply, nil
}
