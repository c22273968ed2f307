package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// 返回给 agent 的错误文案
const (
	MsgInvalidURL = "Invalid URL format"
	MsgFetch      = "Failed to fetch page"
	MsgNoContent  = "Failed to extract content"
)

var (
	ErrInvalidURL = errors.New("invalid url format")
	ErrFetch      = errors.New("failed to fetch page")
	ErrNoContent  = errors.New("failed to extract content")
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 10 << 20

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Strategy 从 HTML 中抽取纯文本，抽不到内容时返回空串
type Strategy func(body []byte, pageURL *url.URL) (string, error)

// Extractor 网页正文抽取器：先用 readability，失败再用标签剥离兜底
type Extractor struct {
	client   *http.Client
	primary  Strategy
	fallback Strategy
}

// Option 抽取器选项
type Option func(*Extractor)

// WithStrategies 替换抽取策略
func WithStrategies(primary, fallback Strategy) Option {
	return func(e *Extractor) {
		e.primary = primary
		e.fallback = fallback
	}
}

// WithHTTPClient 替换 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(e *Extractor) { e.client = hc }
}

// New 创建抽取器，timeout <= 0 时使用 10 秒
func New(timeout time.Duration, opts ...Option) *Extractor {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	e := &Extractor{
		client:   &http.Client{Timeout: timeout},
		primary:  Readability,
		fallback: StripTags,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract 抓取 URL 并返回正文纯文本
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, ok := validateURL(rawURL)
	if !ok {
		return "", ErrInvalidURL
	}

	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		logger.Log.Errorf("抓取页面失败 [%s]: %v", rawURL, err)
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	text := e.run("primary", e.primary, body, pageURL)
	if text == "" {
		text = e.run("fallback", e.fallback, body, pageURL)
	}
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

// ExtractResult 与 Extract 相同，但把结果折叠成 agent 可读的 ExtractionResult
func (e *Extractor) ExtractResult(ctx context.Context, rawURL string) model.ExtractionResult {
	return Result(e.Extract(ctx, rawURL))
}

// Result 把 (text, err) 转成 ExtractionResult
func Result(text string, err error) model.ExtractionResult {
	if err == nil {
		return model.ExtractionResult{Status: model.StatusSuccess, Content: &text}
	}

	msg := MsgNoContent
	switch {
	case errors.Is(err, ErrInvalidURL):
		msg = MsgInvalidURL
	case errors.Is(err, ErrFetch):
		msg = MsgFetch
	}
	return model.ExtractionResult{Status: model.StatusError, Error: &msg}
}

func (e *Extractor) run(name string, s Strategy, body []byte, pageURL *url.URL) string {
	if s == nil {
		return ""
	}
	text, err := s(body, pageURL)
	if err != nil {
		logger.Log.Debugf("%s 抽取失败 [%s]: %v", name, pageURL, err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *Extractor) fetch(ctx context.Context, pageURL *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return io.ReadAll(io.LimitReader(res.Body, maxBodySize))
}

func validateURL(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

// Readability 主策略：readability 正文抽取
func Readability(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

// StripTags 兜底策略：去掉 script/style/header/footer/nav 后取 body 中的文本节点，逐行拼接
func StripTags(body []byte, _ *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, header, footer, nav").Remove()

	bodySel := doc.Find("body")
	if bodySel.Length() == 0 {
		return "", nil
	}

	var parts []string
	collectText(bodySel, &parts)
	return strings.Join(parts, "\n"), nil
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				*parts = append(*parts, t)
			}
		case html.ElementNode:
			collectText(s, parts)
		}
	})
}
