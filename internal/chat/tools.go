package chat

import "context"

// Executor dispatches a tool call requested by the model and returns
// its result. Dispatch may block; the turn driver awaits it before
// consuming the next model output.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) (any, error)
}

// StubExecutor acknowledges every tool call with a fixed placeholder.
// Real tool dispatch lives outside this system.
type StubExecutor struct{}

func (StubExecutor) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	return "tool execution is not available", nil
}
