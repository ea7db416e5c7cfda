package tools

import (
	"context"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso-webagent/tavily"
	"github.com/curtisnewbie/miso/flow"
)

const SearchToolName = "tavily_search"

type SearchToolOps struct {
	MaxResults  int
	Topic       string
	SearchDepth string
}

func NewSearchToolOps() *SearchToolOps {
	return &SearchToolOps{
		MaxResults:  10,
		Topic:       tavily.TopicGeneral,
		SearchDepth: tavily.DepthBasic,
	}
}

type SearchToolInput struct {
	Query          string   `json:"query"`
	IncludeDomains []string `json:"include_domains"`
	ExcludeDomains []string `json:"exclude_domains"`
	SearchDepth    string   `json:"search_depth"`
	TimeRange      string   `json:"time_range"`
	Topic          string   `json:"topic"`
}

func NewSearchTool(client *tavily.Client, ops *SearchToolOps) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: SearchToolName,
			Desc: "A search engine optimized for comprehensive, accurate, and trusted results. " +
				"Useful for when you need to answer questions about current events. " +
				"It not only retrieves URLs and snippets, but offers advanced search depths, domain management and time range filters. " +
				"Input should be a search query.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Search query to look up",
					Required: true,
				},
				"include_domains": {
					Type:     schema.Array,
					Desc:     "A list of domains to restrict search results to, use it only when the user explicitly asks for specific sites",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
				"exclude_domains": {
					Type:     schema.Array,
					Desc:     "A list of domains to exclude from search results",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
				"search_depth": {
					Type: schema.String,
					Desc: "Depth of the search, 'basic' for quick answers, 'advanced' for in-depth results",
					Enum: []string{tavily.DepthBasic, tavily.DepthAdvanced},
				},
				"time_range": {
					Type: schema.String,
					Desc: "Time range of the results, only use it when the user asks for recent information",
					Enum: []string{"day", "week", "month", "year"},
				},
				"topic": {
					Type: schema.String,
					Desc: "Category of the search, 'news' for current events, 'finance' for financial data, otherwise 'general'",
					Enum: []string{tavily.TopicGeneral, tavily.TopicNews, tavily.TopicFinance},
				},
			}),
		},
		func(ctx context.Context, in SearchToolInput) (tavily.SearchRes, error) {
			return client.Search(flow.NewRail(ctx), buildSearchReq(ops, in))
		})
}

func buildSearchReq(ops *SearchToolOps, in SearchToolInput) tavily.SearchReq {
	req := tavily.SearchReq{
		Query:          in.Query,
		Topic:          ops.Topic,
		SearchDepth:    ops.SearchDepth,
		MaxResults:     ops.MaxResults,
		TimeRange:      in.TimeRange,
		IncludeDomains: in.IncludeDomains,
		ExcludeDomains: in.ExcludeDomains,
	}
	if in.Topic != "" {
		req.Topic = in.Topic
	}
	if in.SearchDepth != "" {
		req.SearchDepth = in.SearchDepth
	}
	return req
}
