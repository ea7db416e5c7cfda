package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/tavily"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
)

const ExtractToolName = "tavily_extract"

type ExtractToolOps struct {
	ExtractDepth string
	Format       string
}

func NewExtractToolOps() *ExtractToolOps {
	return &ExtractToolOps{
		ExtractDepth: tavily.DepthAdvanced,
		Format:       "markdown",
	}
}

type ExtractToolInput struct {
	URLs          []string `json:"urls"`
	IncludeImages bool     `json:"include_images"`
}

func NewExtractTool(client *tavily.Client, ops *ExtractToolOps) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ExtractToolName,
			Desc: "Extracts comprehensive content from web pages based on provided URLs. " +
				"Use it when you need the full content of pages found with search, or URLs given by the user.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"urls": {
					Type:     schema.Array,
					Desc:     "List of URLs to extract content from",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Required: true,
				},
				"include_images": {
					Type: schema.Boolean,
					Desc: "Whether to include the images found on the pages",
				},
			}),
		},
		func(ctx context.Context, in ExtractToolInput) (tavily.ExtractRes, error) {
			if len(in.URLs) < 1 {
				return tavily.ExtractRes{}, errs.NewErrf("at least one url is required")
			}
			return client.Extract(flow.NewRail(ctx), tavily.ExtractReq{
				URLs:          in.URLs,
				ExtractDepth:  ops.ExtractDepth,
				IncludeImages: in.IncludeImages,
				Format:        ops.Format,
			})
		})
}
