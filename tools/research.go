package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/agentapi"
	"github.com/curtisnewbie/miso/flow"
)

const ResearchToolName = "tavily_research"

type ResearchToolInput struct {
	Topic   string `json:"topic"`
	Context string `json:"context"`
}

// Research function, [agentapi.TavilyResearch] by default.
type ResearchFunc func(rail flow.Rail, apiKey string, req agentapi.ResearchReq) (agentapi.ResearchRes, error)

func NewResearchTool(apiKey string, research ResearchFunc) tool.InvokableTool {
	if research == nil {
		research = func(rail flow.Rail, apiKey string, req agentapi.ResearchReq) (agentapi.ResearchRes, error) {
			return agentapi.TavilyResearch(rail, apiKey, req)
		}
	}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ResearchToolName,
			Desc: "Conducts a multi-step research on a topic and writes a report with citations. " +
				"It's slow and expensive, only use it when the user explicitly asks for an in-depth research, " +
				"for anything else use " + SearchToolName + ".",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"topic": {
					Type:     schema.String,
					Desc:     "The research question",
					Required: true,
				},
				"context": {
					Type: schema.String,
					Desc: "What is already known from the conversation",
				},
			}),
		},
		func(ctx context.Context, in ResearchToolInput) (agentapi.ResearchRes, error) {
			return research(flow.NewRail(ctx), apiKey, agentapi.ResearchReq{
				Topic:   in.Topic,
				Context: in.Context,
			})
		})
}
