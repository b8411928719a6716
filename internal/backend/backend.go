package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/plumecli/plume/internal/domain"
)

// Delta is one streamed event from the inference server. Exactly one of
// Text, Err, or Done is meaningful per event; the channel closes after the
// final event.
type Delta struct {
	Text string
	Err  error
	Done bool
}

// Streamer is the narrow interface the TUI uses to talk to a backend.
// Implementations stream the assistant's reply as incremental deltas.
type Streamer interface {
	Stream(ctx context.Context, model string, msgs []domain.TranscriptMessage) (<-chan Delta, error)
}

// Client is the HTTP client for a plume inference server speaking
// newline-delimited JSON on /v1/chat.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at the given base address,
// e.g. "http://localhost:7465".
func NewClient(addr string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(addr, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL overrides the base URL (useful for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// Health checks if the server is responding.
func (c *Client) Health() error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(c.baseURL + "/v1/health")
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

// WaitReady polls Health() until the server is responsive or the timeout is
// reached.
func (c *Client) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := c.Health(); err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("backend not ready after %v", timeout)
}

// wireMessage is the request shape for one conversation turn. Messages that
// carry images send their blocks; text-only messages send content.
type wireMessage struct {
	Role    string                `json:"role"`
	Content string                `json:"content,omitempty"`
	Blocks  []domain.ContentBlock `json:"blocks,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []wireMessage `json:"messages"`
}

// wireEvent is one NDJSON line of the response stream.
type wireEvent struct {
	Type  string `json:"type"` // "delta", "done", "error"
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Stream sends the conversation to the server and returns a channel of
// reply deltas. The channel closes when the turn completes, errors, or ctx
// is cancelled. The returned error covers request setup only; stream-time
// failures arrive as Delta.Err.
func (c *Client) Stream(ctx context.Context, model string, msgs []domain.TranscriptMessage) (<-chan Delta, error) {
	payload := chatRequest{Model: model, Messages: make([]wireMessage, 0, len(msgs))}
	for _, m := range msgs {
		wm := wireMessage{Role: m.Role}
		if m.HasBlocks() {
			wm.Blocks = m.Blocks
		} else {
			wm.Content = m.Content
		}
		payload.Messages = append(payload.Messages, wm)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// No timeout for long-running streams; cancellation comes from ctx.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to backend: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("backend error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	out := make(chan Delta)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		parseStream(ctx, resp.Body, out)
	}()
	return out, nil
}

func parseStream(ctx context.Context, body io.Reader, out chan<- Delta) {
	scanner := bufio.NewScanner(body)
	// Large replies can exceed the default line buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var evt wireEvent
		if json.Unmarshal([]byte(line), &evt) != nil {
			continue
		}
		switch evt.Type {
		case "delta":
			if !emit(ctx, out, Delta{Text: evt.Text}) {
				return
			}
		case "error":
			emit(ctx, out, Delta{Err: errors.New(evt.Error)})
			return
		case "done":
			emit(ctx, out, Delta{Done: true})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			emit(ctx, out, Delta{Err: ctx.Err()})
			return
		}
		emit(ctx, out, Delta{Err: err})
		return
	}
	emit(ctx, out, Delta{Err: errors.New("stream ended without done event")})
}

func emit(ctx context.Context, out chan<- Delta, d Delta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
