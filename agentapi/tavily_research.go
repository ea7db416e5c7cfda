package agentapi

import (
	"fmt"
	"strings"

	"github.com/curtisnewbie/miso-tavily/tavily"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/slutil"
	"github.com/curtisnewbie/miso/util/strutil"
)

type ResearchReq struct {
	Topic          string `json:"topic"`
	Context        string `json:"context"`         // what has been found so far in the conversation
	CitationFormat string `json:"citation_format"` // numbered, mla, apa, chicago
	Model          string `json:"model"`           // mini, pro, auto
}

type Source struct {
	Favicon string `json:"favicon"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

type ResearchRes struct {
	Report  string   `json:"report"`
	Sources []Source `json:"sources"`
}

// Run Tavily Research for a question raised in the middle of a conversation.
//
// The research runs on Tavily's side, it may take a few minutes.
func TavilyResearch(rail flow.Rail, apiKey string, req ResearchReq, ops ...tavily.StreamResearchOpFunc) (ResearchRes, error) {
	if req.Model == "" {
		req.Model = "auto"
	}
	if req.CitationFormat == "" {
		req.CitationFormat = "numbered"
	}

	var context string
	if strings.TrimSpace(req.Context) != "" {
		context = fmt.Sprintf(`
# Known Context
<context>
%s
</context>`, req.Context)
	}

	sources := make([]tavily.Source, 0, 10)
	query := strutil.NamedSprintfkv(`
# Research Question
${topic}

# Requirements
- Answer the question directly first, then provide the supporting evidence.
- Prefer recent and primary sources (official websites, filings, reputable news).
- Clearly distinguish confirmed facts from claims.
- If the information is not publicly available, say so in one sentence.
- Keep the report concise, avoid LaTeX syntax and complex tables.
${context}
`, "topic", req.Topic, "context", context)

	rail.Infof("TavilyResearch Prompt: %v", query)
	report, err := tavily.StreamResearch(rail, apiKey,
		tavily.InitResearchReq{
			CitationFormat: req.CitationFormat,
			Input:          query,
			Model:          req.Model,
			Stream:         true,
		},
		append(ops, tavily.WithSourceHook(func(s []tavily.Source) error {
			sources = append(sources, s...)
			return nil
		}))...)

	if err != nil {
		return ResearchRes{}, err
	}
	return ResearchRes{
		Report:  report,
		Sources: slutil.MapTo(sources, func(s tavily.Source) Source { return Source(s) }),
	}, nil
}
