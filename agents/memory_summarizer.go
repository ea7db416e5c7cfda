package agents

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/llm"
	"github.com/curtisnewbie/miso/util/strutil"
)

// MemorySummarizer compresses earlier messages of a conversation, together with the previous summary, into a new summary.
type MemorySummarizer struct {
	genops *GenericOps
	graph  compose.Runnable[MemorySummarizerInput, MemorySummarizerOutput]
}

type MemorySummarizerInput struct {
	PreviousSummary string `json:"previousSummary"`
	Conversation    string `json:"conversation"`
}

type MemorySummarizerOutput struct {
	Summary string `json:"summary"`
}

type MemorySummarizerOps struct {
	genops *GenericOps

	// Roughly how long the summary can be.
	MaxSummaryTokens int

	// Injected variables: ${language}, ${max_summary_tokens}
	SystemMessagePrompt string

	// Injected variables: ${conversation}, ${previous_summary}
	UserMessagePrompt string
}

func NewMemorySummarizerOps(g *GenericOps) *MemorySummarizerOps {
	return &MemorySummarizerOps{
		genops:           g,
		MaxSummaryTokens: 128,
		SystemMessagePrompt: `
Your task is to create a short but context rich summary of the conversation so far between the user and a web research assistant.

The summary replaces the given <previous_summary> and the messages in <conversation>, the assistant will only see your summary and the most recent messages.
Keep the user's explicit requests, the questions already answered, the key facts and the URLs found with web search, extract or crawl tools that are still relevant.

Requirements:
- It must be written in ${language}.
- It must be under ${max_summary_tokens} tokens.
- Output the summary only, do not include any markdown titles.
`,

		UserMessagePrompt: `
<conversation>
${conversation}
</conversation>

<previous_summary>
${previous_summary}
</previous_summary>
`,
	}
}

func NewMemorySummarizer(rail flow.Rail, chatModel model.ToolCallingChatModel, ops *MemorySummarizerOps) (*MemorySummarizer, error) {

	g := compose.NewGraph[MemorySummarizerInput, MemorySummarizerOutput]()

	_ = g.AddLambdaNode("prepare_messages", compose.InvokableLambda(func(ctx context.Context, in MemorySummarizerInput) ([]*schema.Message, error) {

		systemMessage := schema.SystemMessage(strings.TrimSpace(
			strutil.NamedSprintf(ops.SystemMessagePrompt, map[string]any{
				"language":           ops.genops.Language,
				"max_summary_tokens": ops.MaxSummaryTokens,
			})))
		userMessage := schema.UserMessage(strings.TrimSpace(
			strutil.NamedSprintf(ops.UserMessagePrompt, map[string]any{
				"conversation":     in.Conversation,
				"previous_summary": in.PreviousSummary,
			})),
		)
		rail.Debugf("System Message: %v", systemMessage.Content)
		rail.Debugf("User Message: %v", userMessage.Content)

		if ops.genops.RepeatPrompt {
			return []*schema.Message{
				systemMessage,
				userMessage,
				systemMessage,
				userMessage,
			}, nil
		}

		return []*schema.Message{
			systemMessage,
			userMessage,
		}, nil
	}), compose.WithNodeName("Prepare Messages"))

	_ = g.AddChatModelNode("compact_memory", chatModel, compose.WithNodeName("Compact Memory"))
	_ = g.AddLambdaNode("remove_think", compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (MemorySummarizerOutput, error) {
		_, s := llm.ParseThink(msg.Content)
		return MemorySummarizerOutput{Summary: strings.TrimSpace(s)}, nil
	}), compose.WithNodeName("Remove Think"))

	_ = g.AddEdge(compose.START, "prepare_messages")
	_ = g.AddEdge("prepare_messages", "compact_memory")
	_ = g.AddEdge("compact_memory", "remove_think")
	_ = g.AddEdge("remove_think", compose.END)

	runnable, err := CompileGraph(rail, ops.genops, g, compose.WithGraphName("MemorySummarizer"))
	if err != nil {
		return nil, errs.Wrap(err)
	}

	return &MemorySummarizer{graph: runnable, genops: ops.genops}, nil
}

func (w *MemorySummarizer) Execute(rail flow.Rail, input MemorySummarizerInput) (MemorySummarizerOutput, error) {
	start := time.Now()
	defer rail.TimeOp(start, "MemorySummarizer")

	cops := []compose.Option{}
	if w.genops.LogOnStart {
		cops = append(cops, WithTraceCallback("MemorySummarizer", w.genops.LogInputs))
	}
	return w.graph.Invoke(rail, input, cops...)
}

// Format messages as plain text for summarization.
func FormatConversation(msgs []*schema.Message) string {
	b := strutil.NewBuilder()
	for _, m := range msgs {
		if m == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteRune('\n')
		}
		switch m.Role {
		case schema.User:
			b.Printlnf("User: %v", m.Content)
		case schema.Assistant:
			if m.Content != "" {
				b.Printlnf("Assistant: %v", m.Content)
			}
			for _, tc := range m.ToolCalls {
				b.Printlnf("Assistant called tool %v: %v", tc.Function.Name, tc.Function.Arguments)
			}
		case schema.Tool:
			b.Printlnf("Tool %v returned: %v", m.ToolName, m.Content)
		default:
			b.Printlnf("%v: %v", m.Role, m.Content)
		}
	}
	return b.String()
}
