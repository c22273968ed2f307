package searxng

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
)

// browserUA 部分实例会拦截默认 UA
const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client 自建 SearXNG 实例的客户端，需开启 json 输出格式
type Client struct {
	rc *resty.Client
}

// NewClient 创建 SearXNG 客户端，timeout 单位为秒，0 表示 30 秒
func NewClient(baseURL string, timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t <= 0 {
		t = 30 * time.Second
	}
	return &Client{
		rc: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(t).
			SetHeader("User-Agent", browserUA),
	}
}

var _ search.Searcher = (*Client)(nil)

type responseBody struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search 在 general 分类下检索，排除域名通过 -site: 语法追加到查询
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	q := req.Query
	for _, d := range req.ExcludeDomains {
		q += " -site:" + d
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":          q,
			"format":     "json",
			"categories": "general",
		}).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("searxng api error (status %d): %s", resp.StatusCode(), resp.String())
	}

	var out responseBody
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	results := make([]search.Result, 0, len(out.Results))
	for _, r := range out.Results {
		if req.MaxResults > 0 && len(results) >= req.MaxResults {
			break
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return &search.Response{Results: results}, nil
}
