package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/soyeahso/ezra/internal/domain"
	"github.com/soyeahso/ezra/internal/model"
)

// TurnEvent is one element of a streaming turn. Exactly one of Update
// and Err is set; an Err event is terminal and means the turn failed
// after whatever partial state had already been persisted.
type TurnEvent struct {
	Update domain.Update
	Err    error
}

// StreamTurn drives one streamed reply. It pre-records an empty self
// message row, then for each model output either persists a text chunk
// (atomic append) or dispatches a tool call through exec, persisting
// the outcome annotation once the result is known. Updates are emitted
// in upstream order; a Result always immediately follows its ToolCall,
// and no further upstream output is consumed until the Result has been
// delivered.
//
// When the upstream channel closes, the accumulated SelfMessage is
// appended to the in-memory sequence and the returned channel closes.
// Errors from the gateway, the executor, or the store terminate the
// turn without discarding persisted partial content.
func (c *Conversation) StreamTurn(ctx context.Context, outputs <-chan model.Event, exec Executor) <-chan TurnEvent {
	updates := make(chan TurnEvent)

	go func() {
		defer close(updates)

		turn := uuid.NewString()[:8]
		log := c.log.Sub("turn")

		emit := func(ev TurnEvent) bool {
			select {
			case updates <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		msgID, err := c.store.AddMessage(c.id, domain.RoleSelf, "")
		if err != nil {
			emit(TurnEvent{Err: fmt.Errorf("recording turn message: %w", err)})
			return
		}
		log.Debug().Str("turn", turn).Int64("message", msgID).Msg("turn started")

		var content strings.Builder
		var pending []domain.Outcome

		for {
			var ev model.Event
			var ok bool
			select {
			case ev, ok = <-outputs:
			case <-ctx.Done():
				return
			}
			if !ok {
				break
			}

			if ev.Err != nil {
				emit(TurnEvent{Err: ev.Err})
				return
			}

			switch out := ev.Output.(type) {
			case domain.Chunk:
				if err := c.store.AppendContent(msgID, out.Text); err != nil {
					emit(TurnEvent{Err: err})
					return
				}
				content.WriteString(out.Text)
				if !emit(TurnEvent{Update: out}) {
					return
				}

			case domain.ToolCall:
				if !emit(TurnEvent{Update: out}) {
					return
				}

				result, err := exec.Execute(ctx, out.Name, out.Args)
				if err != nil {
					emit(TurnEvent{Err: fmt.Errorf("tool %s: %w", out.Name, err)})
					return
				}

				if err := c.store.AppendToolCall(msgID, out, result); err != nil {
					emit(TurnEvent{Err: err})
					return
				}
				pending = append(pending, domain.Outcome{Origin: out, Result: result})

				if !emit(TurnEvent{Update: domain.Result{Value: result}}) {
					return
				}

			default:
				emit(TurnEvent{Err: fmt.Errorf("unexpected model output %T", ev.Output)})
				return
			}
		}

		c.messages = append(c.messages, domain.SelfMessage{
			Content:   content.String(),
			ToolCalls: pending,
		})
		log.Debug().
			Str("turn", turn).
			Int("chars", content.Len()).
			Int("toolCalls", len(pending)).
			Msg("turn finalized")
	}()

	return updates
}
