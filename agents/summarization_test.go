package agents

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/miso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// every message costs 10 tokens
func tenPerMessage() TokenCounter {
	return TokenCounterFunc(func(msgs []*schema.Message) int { return 10 * len(msgs) })
}

func newTestSummarizationNode(t *testing.T, f *fakeChatModel, maxTokens, maxSummaryTokens int) *SummarizationNode {
	t.Helper()
	ops := NewSummarizationNodeOps(NewGenericOps())
	ops.TokenCounter = tenPerMessage()
	ops.MaxTokens = maxTokens
	ops.MaxSummaryTokens = maxSummaryTokens
	n, err := NewSummarizationNode(miso.EmptyRail(), f, ops)
	require.NoError(t, err)
	return n
}

func TestNewSummarizationNodeInvalidOps(t *testing.T) {
	ops := NewSummarizationNodeOps(NewGenericOps())
	ops.MaxTokens = 100
	ops.MaxSummaryTokens = 100
	_, err := NewSummarizationNode(miso.EmptyRail(), &fakeChatModel{}, ops)
	assert.Error(t, err)
}

func TestSummarizeUnderLimit(t *testing.T) {
	f := &fakeChatModel{}
	n := newTestSummarizationNode(t, f, 100, 20)
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("who is the ceo of tavily?"),
	}
	stateCtx := map[string]any{}
	out, err := n.Summarize(miso.EmptyRail(), msgs, stateCtx)
	require.NoError(t, err)
	assert.Equal(t, msgs, out)
	assert.Equal(t, 0, f.calls())
	assert.Empty(t, stateCtx)
}

func TestSummarizeRunningSummary(t *testing.T) {
	rail := miso.EmptyRail()
	f := &fakeChatModel{replies: []string{"first summary", "<think>hmm</think>second summary"}}
	n := newTestSummarizationNode(t, f, 35, 10)

	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("u1"),
		schema.AssistantMessage("a1", nil),
		schema.UserMessage("u2"),
		schema.AssistantMessage("a2", nil),
		schema.UserMessage("u3"),
	}
	stateCtx := map[string]any{}
	out, err := n.Summarize(rail, msgs, stateCtx)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, "sys", out[0].Content)
	assert.Equal(t, schema.System, out[1].Role)
	assert.True(t, strings.HasSuffix(out[1].Content, "first summary"))
	assert.Equal(t, "a2", out[2].Content)
	assert.Equal(t, "u3", out[3].Content)

	rs, ok := LoadRunningSummary(stateCtx)
	require.True(t, ok)
	assert.Equal(t, RunningSummary{Summary: "first summary", SummarizedMessages: 3}, rs)

	prompt := f.lastInput()[1].Content
	assert.Contains(t, prompt, "User: u1")
	assert.Contains(t, prompt, "User: u2")
	assert.NotContains(t, prompt, "u3")

	// the history keeps growing, only messages not yet summarized are sent to the summarizer
	msgs = append(msgs, schema.AssistantMessage("a3", nil), schema.UserMessage("u4"))
	out, err = n.Summarize(rail, msgs, stateCtx)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.True(t, strings.HasSuffix(out[1].Content, "second summary"))
	assert.Equal(t, "a3", out[2].Content)
	assert.Equal(t, "u4", out[3].Content)

	prompt = f.lastInput()[1].Content
	assert.Contains(t, prompt, "first summary")
	assert.Contains(t, prompt, "Assistant: a2")
	assert.NotContains(t, prompt, "u1")

	rs, _ = LoadRunningSummary(stateCtx)
	assert.Equal(t, 5, rs.SummarizedMessages)
	assert.Equal(t, 2, f.calls())

	// the original history is never modified
	assert.Len(t, msgs, 8)
	assert.Equal(t, "u1", msgs[1].Content)
}

func TestSummarizeKeepsToolCallWithResult(t *testing.T) {
	f := &fakeChatModel{replies: []string{"summary"}}
	n := newTestSummarizationNode(t, f, 25, 10)

	call := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_1",
		Function: schema.FunctionCall{Name: "tavily_search", Arguments: `{"query":"tavily ceo"}`},
	}})
	msgs := []*schema.Message{
		schema.UserMessage("u1"),
		schema.AssistantMessage("a1", nil),
		schema.UserMessage("u2"),
		call,
		schema.ToolMessage("results", "call_1"),
	}
	out, err := n.Summarize(miso.EmptyRail(), msgs, map[string]any{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, schema.System, out[0].Role)
	assert.Same(t, call, out[1])
	assert.Equal(t, schema.Tool, out[2].Role)
}

func TestSummarizeDiscardsStaleRunningSummary(t *testing.T) {
	f := &fakeChatModel{}
	n := newTestSummarizationNode(t, f, 100, 20)
	stateCtx := map[string]any{RunningSummaryKey: RunningSummary{Summary: "stale", SummarizedMessages: 10}}
	msgs := []*schema.Message{schema.UserMessage("u1")}
	out, err := n.Summarize(miso.EmptyRail(), msgs, stateCtx)
	require.NoError(t, err)
	assert.Equal(t, msgs, out)
}

func TestLoadRunningSummary(t *testing.T) {
	_, ok := LoadRunningSummary(nil)
	assert.False(t, ok)

	rs, ok := LoadRunningSummary(map[string]any{RunningSummaryKey: &RunningSummary{Summary: "s", SummarizedMessages: 2}})
	assert.True(t, ok)
	assert.Equal(t, 2, rs.SummarizedMessages)

	// restored from checkpoint
	rs, ok = LoadRunningSummary(map[string]any{RunningSummaryKey: map[string]any{"summary": "s", "summarizedMessages": float64(4)}})
	assert.True(t, ok)
	assert.Equal(t, RunningSummary{Summary: "s", SummarizedMessages: 4}, rs)
}

func TestFormatConversation(t *testing.T) {
	tm := schema.ToolMessage("page content", "call_1")
	tm.ToolName = "tavily_extract"
	s := FormatConversation([]*schema.Message{
		schema.UserMessage("hello"),
		schema.AssistantMessage("", []schema.ToolCall{{Function: schema.FunctionCall{Name: "tavily_extract", Arguments: `{"urls":["https://tavily.com"]}`}}}),
		tm,
	})
	assert.Contains(t, s, "User: hello")
	assert.Contains(t, s, "Assistant called tool tavily_extract")
	assert.Contains(t, s, "Tool tavily_extract returned: page content")
}
