package webagent

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/agents"
	"github.com/curtisnewbie/miso-webagent/memory"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
)

type stateKey struct{}

func withState(ctx context.Context, st *memory.ConversationState) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func stateFromCtx(ctx context.Context) *memory.ConversationState {
	v, _ := ctx.Value(stateKey{}).(*memory.ConversationState)
	return v
}

// Graph is the runnable web agent.
//
// Each conversation is identified by a thread id, its messages are loaded from the checkpoint store before the agent
// runs, and the new messages are saved once the agent finishes. Calls on the same thread are serialized.
type Graph struct {
	agent        *react.Agent
	checkpointer memory.CheckpointStore
	genops       *agents.GenericOps

	mu      sync.Mutex
	threads map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func newGraph(ag *react.Agent, checkpointer memory.CheckpointStore, genops *agents.GenericOps) *Graph {
	return &Graph{
		agent:        ag,
		checkpointer: checkpointer,
		genops:       genops,
		threads:      map[string]*threadLock{},
	}
}

func (g *Graph) lockThread(threadID string) (unlock func()) {
	g.mu.Lock()
	l, ok := g.threads[threadID]
	if !ok {
		l = &threadLock{}
		g.threads[threadID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs < 1 {
			delete(g.threads, threadID)
		}
		g.mu.Unlock()
	}
}

// Load state of the thread, a new state is returned if the thread has no checkpoint.
func (g *Graph) State(rail flow.Rail, threadID string) (memory.ConversationState, error) {
	st, ok, err := g.checkpointer.Load(rail, threadID)
	if err != nil {
		return memory.ConversationState{}, err
	}
	if !ok {
		return memory.NewConversationState(), nil
	}
	return st, nil
}

func (g *Graph) agentOptions(rec *stepRecorder) []agent.AgentOption {
	cops := []compose.Option{compose.WithCallbacks(rec.Handler())}
	if g.genops.LogOnStart {
		cops = append(cops, agents.WithTraceCallback("WebAgent", g.genops.LogInputs))
	}
	return []agent.AgentOption{agent.WithComposeOptions(cops...)}
}

func (g *Graph) prepare(rail flow.Rail, threadID string, msgs []*schema.Message) (*memory.ConversationState, error) {
	if len(msgs) < 1 {
		return nil, errs.NewErrf("input messages are empty")
	}
	st, err := g.State(rail, threadID)
	if err != nil {
		return nil, err
	}
	st.Messages = append(st.Messages, msgs...)
	return &st, nil
}

func (g *Graph) save(rail flow.Rail, threadID string, st *memory.ConversationState, produced []*schema.Message, fallback *schema.Message) error {
	if fallback != nil && (len(produced) < 1 || produced[len(produced)-1].Role != schema.Assistant) {
		produced = append(produced, fallback)
	}
	st.Messages = append(st.Messages, produced...)
	if err := g.checkpointer.Save(rail, threadID, *st); err != nil {
		return err
	}
	rail.Debugf("Thread %v saved, %v messages", threadID, len(st.Messages))
	return nil
}

// Invoke the agent with new messages of the thread, returns the final answer.
func (g *Graph) Invoke(rail flow.Rail, threadID string, msgs []*schema.Message) (*schema.Message, error) {
	start := time.Now()
	defer rail.TimeOp(start, "WebAgent Invoke")

	unlock := g.lockThread(threadID)
	defer unlock()

	st, err := g.prepare(rail, threadID, msgs)
	if err != nil {
		return nil, err
	}

	rec := newStepRecorder(nil)
	out, err := g.agent.Generate(withState(rail, st), st.Messages, g.agentOptions(rec)...)
	if err != nil {
		return nil, errs.Wrapf(err, "web agent failed, thread: %v", threadID)
	}
	rec.Wait()
	if err := g.save(rail, threadID, st, rec.Messages(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stream the final answer of the agent.
//
// The thread is locked until the returned stream is fully read or closed, the checkpoint is only saved when the
// stream is fully read.
func (g *Graph) Stream(rail flow.Rail, threadID string, msgs []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	unlock := g.lockThread(threadID)

	st, err := g.prepare(rail, threadID, msgs)
	if err != nil {
		unlock()
		return nil, err
	}

	rec := newStepRecorder(nil)
	sr, err := g.agent.Stream(withState(rail, st), st.Messages, g.agentOptions(rec)...)
	if err != nil {
		unlock()
		return nil, errs.Wrapf(err, "web agent failed, thread: %v", threadID)
	}

	reader, writer := schema.Pipe[*schema.Message](10)
	go func() {
		defer unlock()
		defer writer.Close()
		defer sr.Close()

		var chunks []*schema.Message
		for {
			c, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				writer.Send(nil, errs.Wrapf(err, "web agent failed, thread: %v", threadID))
				return
			}
			chunks = append(chunks, c)
			if closed := writer.Send(c, nil); closed {
				rail.Infof("Stream of thread %v closed by caller, checkpoint not saved", threadID)
				return
			}
		}

		var final *schema.Message
		if len(chunks) > 0 {
			if m, err := schema.ConcatMessages(chunks); err == nil {
				final = m
			}
		}
		rec.Wait()
		if err := g.save(rail, threadID, st, rec.Messages(), final); err != nil {
			rail.Errorf("Failed to save checkpoint of thread %v, %v", threadID, err)
		}
	}()
	return reader, nil
}

// StreamValues runs the agent and calls fn with the full state of the thread, first with the input, then after every
// model output or tool result.
//
// The first error returned by fn is returned once the agent finishes, the checkpoint is still saved.
func (g *Graph) StreamValues(rail flow.Rail, threadID string, msgs []*schema.Message, fn func(st memory.ConversationState) error) error {
	start := time.Now()
	defer rail.TimeOp(start, "WebAgent StreamValues")

	unlock := g.lockThread(threadID)
	defer unlock()

	st, err := g.prepare(rail, threadID, msgs)
	if err != nil {
		return err
	}

	var fnErr error
	emit := func(produced []*schema.Message) {
		if fnErr != nil {
			return
		}
		v := memory.ConversationState{Context: st.Context, UpdatedAt: st.UpdatedAt}
		v.Messages = make([]*schema.Message, 0, len(st.Messages)+len(produced))
		v.Messages = append(v.Messages, st.Messages...)
		v.Messages = append(v.Messages, produced...)
		fnErr = fn(v)
	}
	emit(nil)

	rec := newStepRecorder(emit)
	out, err := g.agent.Generate(withState(rail, st), st.Messages, g.agentOptions(rec)...)
	if err != nil {
		return errs.Wrapf(err, "web agent failed, thread: %v", threadID)
	}
	rec.Wait()
	if err := g.save(rail, threadID, st, rec.Messages(), out); err != nil {
		return err
	}
	return fnErr
}
