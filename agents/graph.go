package agents

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/curtisnewbie/miso/flow"
)

func CompileGraph[T, V any](rail flow.Rail, o *GenericOps, g *compose.Graph[T, V], opts ...compose.GraphCompileOption) (compose.Runnable[T, V], error) {
	if o.VisualizeDir != "" {
		opts = append(opts, compose.WithGraphCompileCallbacks(NewMermaidGenerator(o.VisualizeDir)))
	}
	if o.MaxRunSteps > 0 {
		opts = append(opts, compose.WithMaxRunSteps(o.MaxRunSteps))
	}
	return g.Compile(rail, opts...)
}

func WithTraceCallback(name string, logInputs bool) compose.Option {
	return compose.WithCallbacks(NewTraceHandler(name, logInputs))
}

// NewTraceHandler logs the start and end of each component execution, including token usage reported by chat models
// and the tool being called.
func NewTraceHandler(name string, logInputs bool) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, ri *callbacks.RunInfo, in callbacks.CallbackInput) context.Context {
			rail := flow.NewRail(ctx)
			if logInputs {
				rail.Infof("Graph exec %v start, name: %v, type: %v, component: %v, input: %v", name, ri.Name, ri.Type, ri.Component, in)
			} else if ti := tool.ConvCallbackInput(in); ri.Component == components.ComponentOfTool && ti != nil {
				rail.Infof("Graph exec %v start, name: %v, type: %v, component: %v, arguments: %v", name, ri.Name, ri.Type, ri.Component, ti.ArgumentsInJSON)
			} else if tags := ModelTags(ctx); len(tags) > 0 {
				rail.Infof("Graph exec %v start, name: %v, type: %v, component: %v, tags: %v", name, ri.Name, ri.Type, ri.Component, tags)
			} else {
				rail.Infof("Graph exec %v start, name: %v, type: %v, component: %v", name, ri.Name, ri.Type, ri.Component)
			}
			return ctx
		}).
		OnEndFn(func(ctx context.Context, ri *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			inToken, outToken, ok := tokenUsage(output)
			if ok {
				flow.NewRail(ctx).Infof("Graph exec %v end, name: %v, type: %v, component: %v, usage: %v (input), %v (output)", name, ri.Name,
					ri.Type, ri.Component, inToken, outToken)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, ri *callbacks.RunInfo, err error) context.Context {
			flow.NewRail(ctx).Warnf("Graph exec %v failed, name: %v, type: %v, component: %v, %v", name, ri.Name, ri.Type, ri.Component, err)
			return ctx
		}).
		Build()
}

func tokenUsage(in callbacks.CallbackOutput) (_in int, _out int, ok bool) {
	switch m := in.(type) {
	case *model.CallbackOutput:
		if m.TokenUsage != nil {
			return m.TokenUsage.PromptTokens, m.TokenUsage.CompletionTokens, true
		}
	}
	return 0, 0, false
}
