package tavily

import "fmt"

const (
	TopicGeneral = "general"
	TopicNews    = "news"
	TopicFinance = "finance"

	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

type ApiError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("tavily %v failed, status: %v, body: %v", e.Path, e.StatusCode, e.Body)
}

type SearchReq struct {
	Query             string   `json:"query"`
	Topic             string   `json:"topic,omitempty"`        // general, news, finance
	SearchDepth       string   `json:"search_depth,omitempty"` // basic, advanced
	MaxResults        int      `json:"max_results,omitempty"`
	TimeRange         string   `json:"time_range,omitempty"` // day, week, month, year
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
	IncludeImages     bool     `json:"include_images,omitempty"`
}

type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	RawContent    string  `json:"raw_content,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
}

type SearchRes struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer,omitempty"`
	Images       []any          `json:"images,omitempty"`
	Results      []SearchResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

type ExtractReq struct {
	URLs          []string `json:"urls"`
	ExtractDepth  string   `json:"extract_depth,omitempty"` // basic, advanced
	IncludeImages bool     `json:"include_images,omitempty"`
	Format        string   `json:"format,omitempty"` // markdown, text
}

type ExtractResult struct {
	URL        string   `json:"url"`
	RawContent string   `json:"raw_content"`
	Images     []string `json:"images,omitempty"`
}

type FailedResult struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type ExtractRes struct {
	Results       []ExtractResult `json:"results"`
	FailedResults []FailedResult  `json:"failed_results,omitempty"`
	ResponseTime  float64         `json:"response_time"`
}

type CrawlReq struct {
	URL            string   `json:"url"`
	MaxDepth       int      `json:"max_depth,omitempty"`
	MaxBreadth     int      `json:"max_breadth,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
	SelectPaths    []string `json:"select_paths,omitempty"`
	SelectDomains  []string `json:"select_domains,omitempty"`
	ExcludePaths   []string `json:"exclude_paths,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
	AllowExternal  bool     `json:"allow_external,omitempty"`
	ExtractDepth   string   `json:"extract_depth,omitempty"`
	Format         string   `json:"format,omitempty"`
}

type CrawlResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

type CrawlRes struct {
	BaseURL      string        `json:"base_url"`
	Results      []CrawlResult `json:"results"`
	ResponseTime float64       `json:"response_time"`
}
