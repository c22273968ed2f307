package search

import "context"

// Searcher 搜索 provider 的统一抽象，tavily、google、searxng 各自实现
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 一次搜索调用的参数，provider 不支持的字段会被忽略
type Request struct {
	Query      string
	MaxResults int
	// IncludeAnswer 让 provider 附带一段摘要回答（仅 tavily）
	IncludeAnswer bool
	// IncludeRawContent 让 provider 附带页面原文（仅 tavily）
	IncludeRawContent bool
	ExcludeDomains    []string
}

// Response 搜索结果，Results 按 provider 给出的相关度排序
type Response struct {
	Answer  string
	Results []Result
}

// Result 单条结果。Score 越大越相关，google 没有分数时按排名折算
type Result struct {
	Title      string
	URL        string
	Content    string
	RawContent string
	Score      float64
}
