package agents

import (
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/json"
)

// Key of [RunningSummary] in conversation context.
const RunningSummaryKey = "running_summary"

// RunningSummary is the summary of the first SummarizedMessages messages of the conversation (system messages excluded).
//
// It's kept in the conversation context between turns, so the same messages are not summarized on every LLM call.
type RunningSummary struct {
	Summary            string `json:"summary"`
	SummarizedMessages int    `json:"summarizedMessages"`
}

// Load RunningSummary from conversation context.
//
// Context restored from checkpoint holds the decoded json value instead of the struct, both are supported.
func LoadRunningSummary(stateCtx map[string]any) (RunningSummary, bool) {
	v, ok := stateCtx[RunningSummaryKey]
	if !ok || v == nil {
		return RunningSummary{}, false
	}
	switch rs := v.(type) {
	case RunningSummary:
		return rs, true
	case *RunningSummary:
		return *rs, true
	}
	buf, err := json.WriteJson(v)
	if err != nil {
		return RunningSummary{}, false
	}
	var rs RunningSummary
	if err := json.ParseJson(buf, &rs); err != nil {
		return RunningSummary{}, false
	}
	return rs, true
}

type SummarizationNodeOps struct {
	genops *GenericOps

	TokenCounter TokenCounter

	// Summarization is triggered once the messages sent to LLM exceeds MaxTokens.
	MaxTokens int

	// Max tokens reserved for the summary, the rest of MaxTokens is used for the most recent messages.
	MaxSummaryTokens int

	// Prepended to the summary message.
	SummaryPrefix string
}

func NewSummarizationNodeOps(g *GenericOps) *SummarizationNodeOps {
	return &SummarizationNodeOps{
		genops:           g,
		TokenCounter:     ApproxTokenCounter(),
		MaxTokens:        384,
		MaxSummaryTokens: 128,
		SummaryPrefix:    "Summary of the conversation so far: ",
	}
}

// SummarizationNode summarizes earlier messages once the conversation is too long for the model input.
//
// It only rewrites the messages sent to LLM, the conversation history itself is never modified.
type SummarizationNode struct {
	ops        *SummarizationNodeOps
	summarizer *MemorySummarizer
}

func NewSummarizationNode(rail flow.Rail, chatModel model.ToolCallingChatModel, ops *SummarizationNodeOps) (*SummarizationNode, error) {
	if ops.MaxSummaryTokens >= ops.MaxTokens {
		return nil, errs.NewErrf("max summary tokens (%v) must be less than max tokens (%v)", ops.MaxSummaryTokens, ops.MaxTokens)
	}
	if ops.TokenCounter == nil {
		ops.TokenCounter = ApproxTokenCounter()
	}
	sops := NewMemorySummarizerOps(ops.genops)
	sops.MaxSummaryTokens = ops.MaxSummaryTokens
	summarizer, err := NewMemorySummarizer(rail, chatModel, sops)
	if err != nil {
		return nil, err
	}
	return &SummarizationNode{ops: ops, summarizer: summarizer}, nil
}

// Summarize returns the messages that should be sent to LLM.
//
// stateCtx is the conversation context, the updated [RunningSummary] is stored in it. On error, the original msgs are
// returned.
func (n *SummarizationNode) Summarize(rail flow.Rail, msgs []*schema.Message, stateCtx map[string]any) ([]*schema.Message, error) {
	sys, conv := splitSystemMessages(msgs)

	rs, _ := LoadRunningSummary(stateCtx)
	if rs.SummarizedMessages > len(conv) {
		rail.Warnf("Running summary covers %v messages but conversation only has %v, discarded", rs.SummarizedMessages, len(conv))
		rs = RunningSummary{}
	}

	out := n.assemble(sys, rs, conv)
	if n.ops.TokenCounter.CountMessages(out) <= n.ops.MaxTokens {
		return out, nil
	}

	// keep the most recent messages that fit, at least the last one
	budget := n.ops.MaxTokens - n.ops.MaxSummaryTokens
	keepFrom := len(conv)
	used := 0
	for i := len(conv) - 1; i >= rs.SummarizedMessages; i-- {
		t := n.ops.TokenCounter.CountMessages(conv[i : i+1])
		if keepFrom < len(conv) && used+t > budget {
			break
		}
		used += t
		keepFrom = i
	}

	// tool results must follow the assistant message that made the tool calls
	for keepFrom > rs.SummarizedMessages && keepFrom < len(conv) && conv[keepFrom].Role == schema.Tool {
		keepFrom--
	}

	if keepFrom <= rs.SummarizedMessages {
		return out, nil
	}

	res, err := n.summarizer.Execute(rail, MemorySummarizerInput{
		PreviousSummary: rs.Summary,
		Conversation:    FormatConversation(conv[rs.SummarizedMessages:keepFrom]),
	})
	if err != nil {
		return msgs, errs.Wrapf(err, "failed to summarize conversation")
	}
	rail.Infof("Summarized %v messages, %v messages kept", keepFrom, len(conv)-keepFrom)

	rs = RunningSummary{Summary: res.Summary, SummarizedMessages: keepFrom}
	if stateCtx != nil {
		stateCtx[RunningSummaryKey] = rs
	}
	return n.assemble(sys, rs, conv), nil
}

func (n *SummarizationNode) assemble(sys []*schema.Message, rs RunningSummary, conv []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(sys)+1+len(conv)-rs.SummarizedMessages)
	out = append(out, sys...)
	if rs.SummarizedMessages < 1 {
		return append(out, conv...)
	}
	out = append(out, schema.SystemMessage(n.ops.SummaryPrefix+rs.Summary))
	return append(out, conv[rs.SummarizedMessages:]...)
}

func splitSystemMessages(msgs []*schema.Message) (sys []*schema.Message, rest []*schema.Message) {
	i := 0
	for i < len(msgs) && msgs[i] != nil && msgs[i].Role == schema.System {
		i++
	}
	return msgs[:i], msgs[i:]
}
