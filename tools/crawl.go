package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/tavily"
	"github.com/curtisnewbie/miso/flow"
)

const CrawlToolName = "tavily_crawl"

type CrawlToolOps struct {
	MaxDepth     int
	MaxBreadth   int
	Limit        int
	ExtractDepth string
	Format       string
}

func NewCrawlToolOps() *CrawlToolOps {
	return &CrawlToolOps{
		MaxDepth:     1,
		MaxBreadth:   20,
		Limit:        50,
		ExtractDepth: tavily.DepthBasic,
		Format:       "markdown",
	}
}

type CrawlToolInput struct {
	URL            string   `json:"url"`
	Instructions   string   `json:"instructions"`
	SelectPaths    []string `json:"select_paths"`
	SelectDomains  []string `json:"select_domains"`
	ExcludePaths   []string `json:"exclude_paths"`
	ExcludeDomains []string `json:"exclude_domains"`
	AllowExternal  bool     `json:"allow_external"`
}

func NewCrawlTool(client *tavily.Client, ops *CrawlToolOps) tool.InvokableTool {
	strArr := func(desc string) *schema.ParameterInfo {
		return &schema.ParameterInfo{Type: schema.Array, Desc: desc, ElemInfo: &schema.ParameterInfo{Type: schema.String}}
	}
	return utils.NewTool(
		&schema.ToolInfo{
			Name: CrawlToolName,
			Desc: "A website crawler that starts from a base URL and follows the links it finds, " +
				"returning the content of the pages visited. Use it to explore documentation sites, blogs or company websites.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"url": {
					Type:     schema.String,
					Desc:     "The root URL to begin the crawl",
					Required: true,
				},
				"instructions": {
					Type: schema.String,
					Desc: "Natural language instructions for the crawler, e.g., 'Python SDK'",
				},
				"select_paths":    strArr("Regex patterns to select only URLs with specific path patterns, e.g., /docs/.*"),
				"select_domains":  strArr("Regex patterns to select crawling to specific domains or subdomains"),
				"exclude_paths":   strArr("Regex patterns to exclude URLs with specific path patterns"),
				"exclude_domains": strArr("Regex patterns to exclude specific domains or subdomains from crawling"),
				"allow_external": {
					Type: schema.Boolean,
					Desc: "Whether to follow links that go to external domains",
				},
			}),
		},
		func(ctx context.Context, in CrawlToolInput) (tavily.CrawlRes, error) {
			return client.Crawl(flow.NewRail(ctx), tavily.CrawlReq{
				URL:            in.URL,
				MaxDepth:       ops.MaxDepth,
				MaxBreadth:     ops.MaxBreadth,
				Limit:          ops.Limit,
				Instructions:   in.Instructions,
				SelectPaths:    in.SelectPaths,
				SelectDomains:  in.SelectDomains,
				ExcludePaths:   in.ExcludePaths,
				ExcludeDomains: in.ExcludeDomains,
				AllowExternal:  in.AllowExternal,
				ExtractDepth:   ops.ExtractDepth,
				Format:         ops.Format,
			})
		})
}
