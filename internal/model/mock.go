package model

import (
	"context"

	"github.com/soyeahso/ezra/internal/domain"
)

// MockGateway is a script-driven test double for Gateway. Each Chat
// call streams the next script in Scripts (or Outputs when Scripts is
// empty), followed by Err if set.
type MockGateway struct {
	Outputs []domain.Output
	Scripts [][]domain.Output
	Err     error

	next  int
	Calls []ChatRecord
}

// ChatRecord captures the arguments of one Chat invocation.
type ChatRecord struct {
	System   string
	Messages []ChatMessage
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) Chat(ctx context.Context, system string, messages []ChatMessage) (<-chan Event, error) {
	m.Calls = append(m.Calls, ChatRecord{System: system, Messages: messages})

	outputs := m.Outputs
	if len(m.Scripts) > 0 {
		if m.next < len(m.Scripts) {
			outputs = m.Scripts[m.next]
			m.next++
		} else {
			outputs = nil
		}
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for _, out := range outputs {
			select {
			case events <- Event{Output: out}:
			case <-ctx.Done():
				return
			}
		}
		if m.Err != nil {
			select {
			case events <- Event{Err: m.Err}:
			case <-ctx.Done():
			}
		}
	}()
	return events, nil
}
