package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/ezra/internal/domain"
	"github.com/soyeahso/ezra/internal/logging"
)

// OllamaClient streams chat completions from an Ollama server.
type OllamaClient struct {
	baseURL string
	model   string
	client  *http.Client
	log     *logging.Logger
}

// NewOllamaClient creates an Ollama gateway.
// baseURL should be like "http://localhost:11434".
func NewOllamaClient(baseURL, model string, log *logging.Logger) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log.Sub("ollama"),
	}
}

// Name returns the backend name.
func (o *OllamaClient) Name() string { return "ollama" }

// Chat sends a streaming chat request and relays each NDJSON line as
// an Event. The channel is closed when the backend signals done.
func (o *OllamaClient) Chat(ctx context.Context, system string, messages []ChatMessage) (<-chan Event, error) {
	wire := make([]ChatMessage, 0, len(messages)+1)
	if system != "" {
		wire = append(wire, ChatMessage{Role: RoleSystem, Content: system})
	}
	wire = append(wire, messages...)

	payload, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: wire,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	events := make(chan Event)
	go o.stream(ctx, events, payload)
	return events, nil
}

func (o *OllamaClient) stream(ctx context.Context, events chan<- Event, payload []byte) {
	defer close(events)

	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		emit(Event{Err: fmt.Errorf("creating chat request: %w", err)})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		emit(Event{Err: fmt.Errorf("chat request: %w", err)})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		emit(Event{Err: fmt.Errorf("chat API error (%d): %s", resp.StatusCode, string(body))})
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			emit(Event{Err: fmt.Errorf("decoding stream line: %w", err)})
			return
		}

		if chunk.Error != "" {
			emit(Event{Err: fmt.Errorf("backend error: %s", chunk.Error)})
			return
		}

		if chunk.Message.Content != "" {
			if !emit(Event{Output: domain.Chunk{Text: chunk.Message.Content}}) {
				return
			}
		}
		for _, tc := range chunk.Message.ToolCalls {
			call := domain.ToolCall{Name: tc.Function.Name, Args: tc.Function.Arguments}
			if !emit(Event{Output: call}) {
				return
			}
		}

		if chunk.Done {
			o.log.Debug().Str("model", chunk.Model).Msg("stream complete")
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emit(Event{Err: fmt.Errorf("reading stream: %w", err)})
	}
}

// Wire structures for the Ollama chat API.

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatChunk struct {
	Model     string            `json:"model"`
	CreatedAt string            `json:"created_at"`
	Message   ollamaChatMessage `json:"message"`
	Done      bool              `json:"done"`
	Error     string            `json:"error,omitempty"`
}

type ollamaChatMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}
