package google

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
)

const defaultBaseURL = "https://www.googleapis.com"

// maxNum Custom Search API 单次最多返回 10 条
const maxNum = 10

// Client Google Custom Search JSON API 客户端
type Client struct {
	apiKey string
	cseID  string
	num    int
	rc     *resty.Client
}

// NewClient 创建 Google 搜索客户端，num 为每次返回条数（1-10）
func NewClient(apiKey, cseID string, num int) *Client {
	if num <= 0 || num > maxNum {
		num = maxNum
	}
	return &Client{
		apiKey: apiKey,
		cseID:  cseID,
		num:    num,
		rc:     resty.New().SetBaseURL(defaultBaseURL),
	}
}

// SetBaseURL 覆盖 API 地址（测试使用）
func (c *Client) SetBaseURL(u string) *Client {
	c.rc.SetBaseURL(u)
	return c
}

// Ensure Client implements search.Searcher
var _ search.Searcher = (*Client)(nil)

// Search 执行搜索。Google 不返回相关度，按排名折算：第 i 条为 1 - i/n
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	num := c.num
	if req.MaxResults > 0 && req.MaxResults < num {
		num = req.MaxResults
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": c.apiKey,
			"cx":  c.cseID,
			"q":   req.Query,
			"num": strconv.Itoa(num),
		}).
		Get("/customsearch/v1")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body := resp.Body()
	if resp.IsError() {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("google api error (status %d): %s", resp.StatusCode(), msg)
	}

	items := gjson.GetBytes(body, "items").Array()
	results := make([]search.Result, 0, len(items))
	for i, item := range items {
		results = append(results, search.Result{
			Title:   item.Get("title").String(),
			URL:     item.Get("link").String(),
			Content: item.Get("snippet").String(),
			Score:   1 - float64(i)/float64(len(items)),
		})
	}

	return &search.Response{Results: results}, nil
}
