package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/extract"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// ExtractTool extract_content(url)
type ExtractTool struct {
	extractor *extract.Extractor
	throttle  *Throttle
}

var _ tool.InvokableTool = (*ExtractTool)(nil)

// NewExtractContent 创建正文抽取工具
func NewExtractContent(e *extract.Extractor, th *Throttle) *ExtractTool {
	return &ExtractTool{extractor: e, throttle: th}
}

// Info 实现 tool.BaseTool
func (t *ExtractTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "extract_content",
		Desc: "Extracts the main text content from a web page URL. " +
			"Returns a JSON object with status (success or error), content and error.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"url": {
				Type:     schema.String,
				Desc:     "The URL of the web page to extract content from",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun 返回 ExtractionResult 的 JSON
func (t *ExtractTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return encodeExtraction(extract.Result("", extract.ErrInvalidURL)), nil
	}
	return encodeExtraction(t.Run(ctx, args.URL)), nil
}

// Run 节流后抽取
func (t *ExtractTool) Run(ctx context.Context, rawURL string) model.ExtractionResult {
	logger.Log.Infof("抽取网页正文: %s", rawURL)
	if err := t.throttle.Wait(ctx); err != nil {
		return extract.Result("", extract.ErrFetch)
	}
	return t.extractor.ExtractResult(ctx, rawURL)
}

func encodeExtraction(r model.ExtractionResult) string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"status":"error","content":null,"error":"Failed to extract content"}`
	}
	return string(b)
}
