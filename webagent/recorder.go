package webagent

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/flow"
)

type summarizingKey struct{}

type toolArgsKey struct{}

type step struct {
	ready bool

	// model output
	msg *schema.Message

	// tool result
	isTool     bool
	toolName   string
	toolArgs   string
	toolResult string
}

// stepRecorder collects the messages produced by the agent, i.e., model outputs and tool results, through eino
// callbacks.
//
// Non-streamed outputs are kept in the order they complete. Streamed outputs take their slot when the stream starts and
// are filled in once it is fully read.
type stepRecorder struct {
	mu     sync.Mutex
	emitMu sync.Mutex
	wg     sync.WaitGroup
	steps  []*step

	// called with all the messages recorded so far whenever a step completes
	onStep func(msgs []*schema.Message)
}

func newStepRecorder(onStep func(msgs []*schema.Message)) *stepRecorder {
	return &stepRecorder{onStep: onStep}
}

func (r *stepRecorder) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, ri *callbacks.RunInfo, in callbacks.CallbackInput) context.Context {
			if ri.Component != components.ComponentOfTool {
				return ctx
			}
			if ti := tool.ConvCallbackInput(in); ti != nil {
				return context.WithValue(ctx, toolArgsKey{}, ti.ArgumentsInJSON)
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, ri *callbacks.RunInfo, out callbacks.CallbackOutput) context.Context {
			if ignored(ctx) {
				return ctx
			}
			switch ri.Component {
			case components.ComponentOfChatModel:
				if mo := model.ConvCallbackOutput(out); mo != nil && mo.Message != nil {
					r.complete(r.add(&step{}), func(s *step) { s.msg = mo.Message })
				}
			case components.ComponentOfTool:
				if to := tool.ConvCallbackOutput(out); to != nil {
					s := r.add(&step{isTool: true, toolName: ri.Name, toolArgs: toolArgs(ctx)})
					r.complete(s, func(s *step) { s.toolResult = to.Response })
				}
			}
			return ctx
		}).
		OnEndWithStreamOutputFn(func(ctx context.Context, ri *callbacks.RunInfo, out *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
			if ignored(ctx) || (ri.Component != components.ComponentOfChatModel && ri.Component != components.ComponentOfTool) {
				out.Close()
				return ctx
			}
			s := r.add(&step{isTool: ri.Component == components.ComponentOfTool, toolName: ri.Name, toolArgs: toolArgs(ctx)})
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				defer out.Close()
				rail := flow.NewRail(ctx)

				var chunks []*schema.Message
				var result string
				for {
					c, err := out.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						rail.Warnf("Failed to read %v output of %v, %v", ri.Component, ri.Name, err)
						return
					}
					if s.isTool {
						if to := tool.ConvCallbackOutput(c); to != nil {
							result += to.Response
						}
					} else if mo := model.ConvCallbackOutput(c); mo != nil && mo.Message != nil {
						chunks = append(chunks, mo.Message)
					}
				}
				if s.isTool {
					r.complete(s, func(s *step) { s.toolResult = result })
					return
				}
				if len(chunks) < 1 {
					return
				}
				msg, err := schema.ConcatMessages(chunks)
				if err != nil {
					rail.Warnf("Failed to concat model output of %v, %v", ri.Name, err)
					return
				}
				r.complete(s, func(s *step) { s.msg = msg })
			}()
			return ctx
		}).
		Build()
}

func ignored(ctx context.Context) bool {
	v, _ := ctx.Value(summarizingKey{}).(bool)
	return v
}

func toolArgs(ctx context.Context) string {
	v, _ := ctx.Value(toolArgsKey{}).(string)
	return v
}

func (r *stepRecorder) add(s *step) *step {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, s)
	return s
}

func (r *stepRecorder) complete(s *step, f func(s *step)) {
	r.mu.Lock()
	f(s)
	s.ready = true
	r.mu.Unlock()

	if r.onStep != nil {
		r.emitMu.Lock()
		defer r.emitMu.Unlock()
		r.onStep(r.Messages())
	}
}

// Wait for streamed outputs.
func (r *stepRecorder) Wait() {
	r.wg.Wait()
}

// Messages recorded so far, tool results are paired with the tool calls they answer.
func (r *stepRecorder) Messages() []*schema.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*schema.Message, 0, len(r.steps))
	var pending []schema.ToolCall
	for _, s := range r.steps {
		if !s.ready {
			continue
		}
		if !s.isTool {
			out = append(out, s.msg)
			pending = append(pending, s.msg.ToolCalls...)
			continue
		}

		tm := schema.ToolMessage(s.toolResult, "")
		tm.ToolName = s.toolName
		if i := matchToolCall(pending, s.toolName, s.toolArgs); i > -1 {
			tm.ToolCallID = pending[i].ID
			pending = append(pending[:i:i], pending[i+1:]...)
		}
		out = append(out, tm)
	}
	return out
}

func matchToolCall(pending []schema.ToolCall, name string, args string) int {
	for i, tc := range pending {
		if tc.Function.Name == name && tc.Function.Arguments == args {
			return i
		}
	}
	for i, tc := range pending {
		if tc.Function.Name == name {
			return i
		}
	}
	return -1
}
