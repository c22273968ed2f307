package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
)

const defaultResultCount = 5

// SearchTool 把一个 search.Searcher 包装成 agent 工具
type SearchTool struct {
	name     string
	desc     string
	searcher search.Searcher
	throttle *Throttle
	// withCount 为 true 时暴露 no_of_search_results 参数（tavily）
	withCount bool
	fixed     search.Request
}

var _ tool.InvokableTool = (*SearchTool)(nil)

// NewTavilySearch tavily_search(query, no_of_search_results)
func NewTavilySearch(s search.Searcher, th *Throttle) *SearchTool {
	return &SearchTool{
		name: "tavily_search",
		desc: "Performs a web search with the Tavily Search API to retrieve current information. " +
			"Returns a JSON list of results with title, url, content and a relevancy score.",
		searcher:  s,
		throttle:  th,
		withCount: true,
		fixed:     search.Request{IncludeAnswer: true, IncludeRawContent: true},
	}
}

// NewGoogleSearch google_search(query)
func NewGoogleSearch(s search.Searcher, th *Throttle) *SearchTool {
	return &SearchTool{
		name: "google_search",
		desc: "Performs a Google search using the Custom Search API and returns up to 10 results. " +
			"Supports boolean operators, quotes, site: and exclusions. Returns a JSON list of results with title, url, content and score.",
		searcher: s,
		throttle: th,
	}
}

// NewSearXNGSearch searxng_search(query)
func NewSearXNGSearch(s search.Searcher, th *Throttle) *SearchTool {
	return &SearchTool{
		name: "searxng_search",
		desc: "Performs a web search through a SearXNG metasearch instance. " +
			"Returns a JSON list of results with title, url, content and score.",
		searcher: s,
		throttle: th,
	}
}

// Name 工具名
func (t *SearchTool) Name() string { return t.name }

// Info 实现 tool.BaseTool
func (t *SearchTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"query": {
			Type:     schema.String,
			Desc:     "The search query. Should be specific and well-formed, boolean operators are allowed.",
			Required: true,
		},
	}
	if t.withCount {
		params["no_of_search_results"] = &schema.ParameterInfo{
			Type:     schema.Integer,
			Desc:     "Number of search results to return (default: 5)",
			Required: true,
		}
	}
	return &schema.ToolInfo{
		Name:        t.name,
		Desc:        t.desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

type searchArgs struct {
	Query             string `json:"query"`
	NoOfSearchResults int    `json:"no_of_search_results"`
}

// InvokableRun 实现 tool.InvokableTool，失败时返回 [{"error": "..."}] 而不是 error
func (t *SearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args searchArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return searchFailure(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	results, err := t.Run(ctx, args.Query, args.NoOfSearchResults)
	if err != nil {
		logger.Log.Errorf("%s 搜索失败 [%s]: %v", t.name, args.Query, err)
		return searchFailure(err), nil
	}

	b, err := json.Marshal(results)
	if err != nil {
		return searchFailure(err), nil
	}
	logger.Log.Debugf("%s 返回 %d 条结果", t.name, len(results))
	return string(b), nil
}

// Run 执行搜索并把结果归一化为 title/url/content/score
func (t *SearchTool) Run(ctx context.Context, query string, count int) ([]model.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	logger.Log.Infof("%s 查询: %s", t.name, query)

	if err := t.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	req := t.fixed
	req.Query = query
	if t.withCount {
		if count <= 0 {
			count = defaultResultCount
		}
		req.MaxResults = count
	}

	resp, err := t.searcher.Search(ctx, &req)
	if err != nil {
		return nil, err
	}

	out := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, model.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}

func searchFailure(err error) string {
	b, _ := json.Marshal([]map[string]string{{"error": "Search failed: " + err.Error()}})
	return string(b)
}
