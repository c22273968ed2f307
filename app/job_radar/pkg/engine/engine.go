package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/gg/gson"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/csvstore"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/export"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/extract"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/jobs"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
	dm "github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search/factory"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/tools"
)

// ErrEmptyResume 简历文本为空
var ErrEmptyResume = errors.New("resume text is empty")

// 进度阶段
const (
	StageAnalyzing = "analyzing resume"
	StageSaving    = "saving results"
	StageCompleted = "completed"
)

// Engine 职位搜索引擎：一次 Run 对应一个 agent 会话
type Engine struct {
	cfg       *config.Config
	chatModel model.ToolCallingChatModel
	searchers *factory.Searchers
	extractor *extract.Extractor
	uploader  export.Uploader

	tavilyThrottle  *tools.Throttle
	googleThrottle  *tools.Throttle
	searxngThrottle *tools.Throttle
	extractThrottle *tools.Throttle
}

// Option 引擎选项
type Option func(*Engine)

// WithChatModel 替换 LLM，仍会包一层限流重试
func WithChatModel(m model.ToolCallingChatModel) Option {
	return func(e *Engine) { e.chatModel = m }
}

// WithSearchers 替换搜索 provider
func WithSearchers(s *factory.Searchers) Option {
	return func(e *Engine) { e.searchers = s }
}

// WithExtractor 替换正文抽取器
func WithExtractor(x *extract.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithUploader 替换 CSV 上传器
func WithUploader(u export.Uploader) Option {
	return func(e *Engine) { e.uploader = u }
}

// NewEngine 创建引擎实例
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	ctx := context.Background()
	e := &Engine{cfg: cfg}
	for _, o := range opts {
		o(e)
	}

	// 初始化 LLM
	if e.chatModel == nil {
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("LLM 初始化失败: %w", err)
		}
		e.chatModel = cm
	}
	e.chatModel = newRetryModel(e.chatModel, newLimiter(cfg.Concurrency))

	// 初始化搜索客户端
	if e.searchers == nil {
		s, err := factory.NewSearchers(cfg)
		if err != nil {
			return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
		}
		e.searchers = s
	}

	if e.extractor == nil {
		e.extractor = extract.New(time.Duration(cfg.Tools.FetchTimeout) * time.Second)
	}

	if e.uploader == nil {
		up, err := export.NewS3Uploader(ctx, cfg.Export.S3)
		if err != nil {
			return nil, fmt.Errorf("导出初始化失败: %w", err)
		}
		if up != nil {
			e.uploader = up
		}
	}

	e.tavilyThrottle = tools.NewThrottle(tools.Millis(cfg.Tools.TavilyIntervalMS))
	e.googleThrottle = tools.NewThrottle(tools.Millis(cfg.Tools.GoogleIntervalMS))
	e.searxngThrottle = tools.NewThrottle(tools.Millis(cfg.Tools.SearXNGIntervalMS))
	e.extractThrottle = tools.NewThrottle(tools.Millis(cfg.Tools.ExtractIntervalMS))
	return e, nil
}

func newLimiter(c config.ConcurrencyConfig) *rate.Limiter {
	if c.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := c.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(c.RPM)/60.0), burst)
}

// RunOptions 运行选项
type RunOptions struct {
	SessionID        string
	Resume           string
	Instructions     string
	ProgressCallback func(stage string, jobsFound int)
}

// Result 一次会话的结果
type Result struct {
	SessionID string
	Jobs      []dm.JobRecord
	CSVPath   string
	ObjectKey string
	Summary   string
}

// Run 执行一次职位搜索会话。agent 出错时仍返回已保存的职位
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if strings.TrimSpace(opts.Resume) == "" {
		return nil, ErrEmptyResume
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	progress := opts.ProgressCallback
	if progress == nil {
		progress = func(string, int) {}
	}

	logger.Log.Infof("开始会话 [%s]", opts.SessionID)
	list := jobs.NewList()
	toolset, searchNames := e.buildTools(list, progress)

	agent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: e.chatModel,
		// 同一条回复里的多个工具调用按顺序执行，职位列表保持调用顺序
		ToolsConfig: compose.ToolsNodeConfig{Tools: toolset, ExecuteSequentially: true},
		MaxStep:          e.cfg.Agent.MaxStep,
	})
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	progress(StageAnalyzing, 0)
	msg, runErr := agent.Generate(ctx, []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(searchNames, e.cfg.Output.IncrementalFile != "")),
		schema.UserMessage(buildUserPrompt(opts.Resume, opts.Instructions)),
	})

	res := &Result{SessionID: opts.SessionID, Jobs: list.Snapshot()}
	if msg != nil {
		res.Summary = msg.Content
		logger.Log.Debugf("agent 最终回复: %s", gson.ToString(msg))
	}

	if len(res.Jobs) > 0 {
		progress(StageSaving, len(res.Jobs))
		e.persist(ctx, res)
	}

	if runErr != nil {
		logger.Log.Errorf("会话 [%s] 失败: %v", opts.SessionID, runErr)
		return res, fmt.Errorf("agent run: %w", runErr)
	}

	progress(StageCompleted, len(res.Jobs))
	logger.Log.Infof("会话 [%s] 完成，找到 %d 个职位", opts.SessionID, len(res.Jobs))
	return res, nil
}

// persist 写批量 CSV 并按需上传，失败只记录日志
func (e *Engine) persist(ctx context.Context, res *Result) {
	path, err := csvstore.SaveJobs(res.Jobs, e.cfg.Output.Dir)
	if err != nil {
		logger.Log.Errorf("保存 CSV 失败: %v", err)
		return
	}
	res.CSVPath = path
	logger.Log.Infof("职位已保存到 %s", path)

	if e.uploader == nil {
		return
	}
	key, err := e.uploader.Upload(ctx, res.SessionID, path)
	if err != nil {
		logger.Log.Errorf("上传 CSV 失败: %v", err)
		return
	}
	res.ObjectKey = key
}

// buildTools 为本次会话组装工具，返回工具列表与搜索工具名
func (e *Engine) buildTools(list *jobs.List, progress func(string, int)) ([]tool.BaseTool, []string) {
	var (
		invokables  []tool.InvokableTool
		searchNames []string
	)
	addSearch := func(t *tools.SearchTool) {
		invokables = append(invokables, t)
		searchNames = append(searchNames, t.Name())
	}
	if e.searchers.Tavily != nil {
		addSearch(tools.NewTavilySearch(e.searchers.Tavily, e.tavilyThrottle))
	}
	if e.searchers.Google != nil {
		addSearch(tools.NewGoogleSearch(e.searchers.Google, e.googleThrottle))
	}
	if e.searchers.SearXNG != nil {
		addSearch(tools.NewSearXNGSearch(e.searchers.SearXNG, e.searxngThrottle))
	}

	invokables = append(invokables,
		tools.NewExtractContent(e.extractor, e.extractThrottle),
		tools.NewSaveFoundJobs(list),
	)
	if f := e.cfg.Output.IncrementalFile; f != "" {
		invokables = append(invokables, tools.NewSaveToCSV(f))
	}

	out := make([]tool.BaseTool, 0, len(invokables))
	for _, t := range invokables {
		out = append(out, &observedTool{InvokableTool: t, list: list, progress: progress})
	}
	return out, searchNames
}

// observedTool 在每次工具调用前后上报进度
type observedTool struct {
	tool.InvokableTool
	list     *jobs.List
	progress func(string, int)
}

func (t *observedTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	stage := "calling tool"
	if info, err := t.Info(ctx); err == nil {
		stage = "calling " + info.Name
	}
	t.progress(stage, t.list.Len())
	out, err := t.InvokableTool.InvokableRun(ctx, argumentsInJSON, opts...)
	t.progress(stage, t.list.Len())
	return out, err
}
