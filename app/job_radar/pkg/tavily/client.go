package tavily

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
)

const (
	defaultBaseURL    = "https://api.tavily.com"
	defaultMaxResults = 5
	defaultTimeout    = 30 * time.Second
)

// Client Tavily API 客户端
type Client struct {
	apiKey string
	rc     *resty.Client
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 覆盖 API 地址（测试或代理使用）
func WithBaseURL(u string) Option {
	return func(c *Client) { c.rc.SetBaseURL(u) }
}

// WithTimeout 覆盖单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.rc.SetTimeout(d)
		}
	}
}

// NewClient 创建 Tavily 客户端
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		rc: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ search.Searcher = (*Client)(nil)

// requestBody /search 接口的请求体。招聘检索固定走 general topic，不要图片
type requestBody struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	Topic             string   `json:"topic"`
	MaxResults        int      `json:"max_results"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeImages     bool     `json:"include_images"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
}

type responseBody struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent string  `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// Search 调用 Tavily 搜索，MaxResults 未设置时取 5
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	body := requestBody{
		Query:             req.Query,
		SearchDepth:       "basic",
		Topic:             "general",
		MaxResults:        req.MaxResults,
		IncludeAnswer:     req.IncludeAnswer,
		IncludeRawContent: req.IncludeRawContent,
		ExcludeDomains:    req.ExcludeDomains,
	}
	if body.MaxResults <= 0 {
		body.MaxResults = defaultMaxResults
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(body).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	raw := resp.Body()
	if resp.IsError() {
		msg := gjson.GetBytes(raw, "detail.error").String()
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("tavily api error (status %d): %s", resp.StatusCode(), msg)
	}

	var out responseBody
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}

	results := make([]search.Result, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, search.Result{
			Title:      r.Title,
			URL:        r.URL,
			Content:    r.Content,
			RawContent: r.RawContent,
			Score:      r.Score,
		})
	}
	return &search.Response{Answer: out.Answer, Results: results}, nil
}
