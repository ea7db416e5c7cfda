package webagent

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/agents"
	"github.com/curtisnewbie/miso-webagent/config"
	"github.com/curtisnewbie/miso-webagent/memory"
	"github.com/curtisnewbie/miso-webagent/tavily"
	"github.com/curtisnewbie/miso-webagent/tools"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/strutil"
)

const (
	ModelO3Mini    = "o3-mini-2025-01-31"
	ModelGPT41     = "gpt-4.1"
	ModelGPT41Nano = "gpt-4.1-nano"

	StreamingTag = "streaming"

	SummarizationMaxOutputTokens = 500
	SummarizationMaxTokens       = 384
	SummarizationMaxSummaryToken = 128
)

// WebAgent assembles the models, the web tools and the checkpoint store of a ReAct agent that answers questions with
// Tavily web search, extract and crawl.
type WebAgent struct {
	config config.Config
	genops *agents.GenericOps

	O3Mini    model.ToolCallingChatModel
	GPT41     model.ToolCallingChatModel
	GPT41Nano model.ToolCallingChatModel

	// GPT41Nano tagged with [StreamingTag], the model the agent runs with.
	StreamingLLM model.ToolCallingChatModel

	SummarizationModel model.ToolCallingChatModel
	SummarizationNode  *agents.SummarizationNode

	Search   tool.InvokableTool
	Extract  tool.InvokableTool
	Crawl    tool.InvokableTool
	Research tool.InvokableTool // nil unless config.EnableResearch

	Checkpointer memory.CheckpointStore
	Prompt       string
}

type webAgentConfig struct {
	genops       *agents.GenericOps
	checkpointer memory.CheckpointStore
	research     tools.ResearchFunc
	tavilyOps    []tavily.ClientOpFunc
}

type WebAgentOpFunc func(c *webAgentConfig)

// Use s instead of the in-memory checkpoint store, e.g., [memory.NewRedisCheckpointStore].
func WithCheckpointStore(s memory.CheckpointStore) WebAgentOpFunc {
	return func(c *webAgentConfig) {
		c.checkpointer = s
	}
}

func WithGenericOps(g *agents.GenericOps) WebAgentOpFunc {
	return func(c *webAgentConfig) {
		c.genops = g
	}
}

func WithResearchFunc(f tools.ResearchFunc) WebAgentOpFunc {
	return func(c *webAgentConfig) {
		c.research = f
	}
}

func WithTavilyOps(ops ...tavily.ClientOpFunc) WebAgentOpFunc {
	return func(c *webAgentConfig) {
		c.tavilyOps = append(c.tavilyOps, ops...)
	}
}

// Create WebAgent.
//
// Nothing is sent over the network here, missing credentials fail the construction of the corresponding client.
func NewWebAgent(rail flow.Rail, cfg config.Config, ops ...WebAgentOpFunc) (*WebAgent, error) {
	c := &webAgentConfig{}
	for _, op := range ops {
		op(c)
	}
	if c.genops == nil {
		c.genops = agents.NewGenericOps()
		c.genops.VisualizeDir = cfg.VisualizeDir
	}
	if cfg.MaxSteps < 1 {
		cfg.MaxSteps = config.DefaultMaxSteps
	}
	if cfg.Prompt == "" {
		cfg.Prompt = config.DefaultPrompt
	}

	a := &WebAgent{config: cfg, genops: c.genops, Prompt: cfg.Prompt}

	modelOps := func(extra ...agents.OpenAIModelOpFunc) []agents.OpenAIModelOpFunc {
		return append([]agents.OpenAIModelOpFunc{
			agents.WithProviderDefaults(),
			agents.WithBaseURL(cfg.OpenAIBaseURL),
			agents.WithHTTPClient(cfg.HTTPClient),
		}, extra...)
	}

	var err error
	if a.O3Mini, err = agents.NewOpenAIChatModel(ModelO3Mini, cfg.OpenAIAPIKey, modelOps(agents.WithReasoning())...); err != nil {
		return nil, err
	}
	if a.GPT41, err = agents.NewOpenAIChatModel(ModelGPT41, cfg.OpenAIAPIKey, modelOps()...); err != nil {
		return nil, err
	}
	if a.GPT41Nano, err = agents.NewOpenAIChatModel(ModelGPT41Nano, cfg.OpenAIAPIKey, modelOps()...); err != nil {
		return nil, err
	}
	a.StreamingLLM = agents.TagChatModel(a.GPT41Nano, StreamingTag)

	a.SummarizationModel, err = agents.NewOpenAIChatModel(ModelGPT41Nano, cfg.OpenAIAPIKey,
		modelOps(agents.WithMaxToken(SummarizationMaxOutputTokens))...)
	if err != nil {
		return nil, err
	}

	tc, err := tavily.NewClient(cfg.TavilyAPIKey, append([]tavily.ClientOpFunc{tavily.WithHTTPClient(cfg.HTTPClient)}, c.tavilyOps...)...)
	if err != nil {
		return nil, err
	}
	a.Search = tools.NewSearchTool(tc, tools.NewSearchToolOps())
	a.Extract = tools.NewExtractTool(tc, tools.NewExtractToolOps())
	a.Crawl = tools.NewCrawlTool(tc, tools.NewCrawlToolOps())
	if cfg.EnableResearch {
		a.Research = tools.NewResearchTool(cfg.TavilyAPIKey, c.research)
	}

	a.Checkpointer = c.checkpointer
	if a.Checkpointer == nil {
		if a.Checkpointer, err = memory.NewInMemoryCheckpointStore(memory.WithCapacity(cfg.CheckpointCapacity)); err != nil {
			return nil, err
		}
	}

	sops := agents.NewSummarizationNodeOps(c.genops)
	sops.MaxTokens = SummarizationMaxTokens
	sops.MaxSummaryTokens = SummarizationMaxSummaryToken
	if cfg.UseTiktoken {
		sops.TokenCounter = agents.NewTiktokenCounter(ModelGPT41Nano)
	}
	if a.SummarizationNode, err = agents.NewSummarizationNode(rail, a.SummarizationModel, sops); err != nil {
		return nil, err
	}

	rail.Infof("WebAgent initialized, models: %v, %v, %v, summarization: %v, research: %v", ModelO3Mini, ModelGPT41, ModelGPT41Nano,
		cfg.EnableSummarization, cfg.EnableResearch)
	return a, nil
}

// Tools available to the agent.
func (a *WebAgent) Tools() []tool.BaseTool {
	t := []tool.BaseTool{a.Search, a.Extract, a.Crawl}
	if a.Research != nil {
		t = append(t, a.Research)
	}
	return t
}

// Build the agent graph.
//
// The ReAct loop, i.e., tool selection, loop termination and message history management, is built by eino's react
// agent, the returned graph only adds checkpoints on top of it.
func (a *WebAgent) BuildGraph(rail flow.Rail) (*Graph, error) {
	ag, err := react.NewAgent(rail, &react.AgentConfig{
		ToolCallingModel: a.StreamingLLM,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: a.Tools(),
		},
		MessageModifier: a.modifyMessages,
		MaxStep:         a.config.MaxSteps,
	})
	if err != nil {
		return nil, errs.Wrapf(err, "failed to build web agent graph")
	}
	if a.genops.VisualizeDir != "" {
		if err := a.visualize(rail, ag); err != nil {
			rail.Warnf("Failed to visualize web agent graph, %v", err)
		}
	}
	return newGraph(ag, a.Checkpointer, a.genops), nil
}

// Compile the exported react graph as a sub-graph, the compile callback writes its topology to VisualizeDir.
func (a *WebAgent) visualize(rail flow.Rail, ag *react.Agent) error {
	sub, subOpts := ag.ExportGraph()
	g := compose.NewGraph[[]*schema.Message, *schema.Message]()
	_ = g.AddGraphNode("react_agent", sub, compose.WithGraphCompileOptions(subOpts...), compose.WithNodeName("ReAct Agent"))
	_ = g.AddEdge(compose.START, "react_agent")
	_ = g.AddEdge("react_agent", compose.END)
	_, err := agents.CompileGraph(rail, a.genops, g, compose.WithGraphName("WebAgent"))
	return err
}

// Messages sent to LLM on each step: system prompt, then the conversation, summarized when it's enabled.
func (a *WebAgent) modifyMessages(ctx context.Context, input []*schema.Message) []*schema.Message {
	msgs := input
	if a.config.EnableSummarization {
		sctx := context.WithValue(ctx, summarizingKey{}, true)
		var stateCtx map[string]any
		if st := stateFromCtx(ctx); st != nil {
			stateCtx = st.Context
		}
		rail := flow.NewRail(sctx)
		summarized, err := a.SummarizationNode.Summarize(rail, input, stateCtx)
		if err != nil {
			rail.Warnf("Summarization failed, sending the full conversation, %v", err)
		} else {
			msgs = summarized
		}
	}

	out := make([]*schema.Message, 0, len(msgs)+1)
	out = append(out, schema.SystemMessage(a.systemPrompt()))
	return append(out, msgs...)
}

func (a *WebAgent) systemPrompt() string {
	return strings.TrimSpace(strutil.NamedSprintf(a.Prompt, map[string]any{
		"today": time.Now().Format("2006-01-02"),
	}))
}
