package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search/factory"
)

// scriptedModel 按顺序返回预设回复
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	errs    []error
	calls   int
}

func (m *scriptedModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return schema.AssistantMessage("done", nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type mockSearcher struct{}

func (mockSearcher) Search(_ context.Context, _ *search.Request) (*search.Response, error) {
	return &search.Response{Results: []search.Result{{Title: "Go Dev", URL: "https://jobs.example/1", Content: "Remote", Score: 0.8}}}, nil
}

// mockUploader 记录上传
type mockUploader struct {
	session string
	path    string
}

func (u *mockUploader) Upload(_ context.Context, sessionID, localPath string) (string, error) {
	u.session, u.path = sessionID, localPath
	return "exports/" + sessionID, nil
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Agent:       config.AgentConfig{MaxStep: 12},
		Output:      config.OutputConfig{Dir: t.TempDir()},
		Concurrency: config.ConcurrencyConfig{QPS: 10, RPM: 60000},
	}
}

func TestEngine_Run(t *testing.T) {
	cm := &scriptedModel{replies: []*schema.Message{
		toolCall("1", "tavily_search", `{"query":"\"go developer\" remote","no_of_search_results":3}`),
		toolCall("2", "save_found_jobs", `{"title":"Senior Java Developer","description":"Remote position...","url":"https://example.com/jobs/123"}`),
		schema.AssistantMessage("Saved 1 job.", nil),
	}}
	up := &mockUploader{}
	e, err := NewEngine(testConfig(t),
		WithChatModel(cm),
		WithSearchers(&factory.Searchers{Tavily: mockSearcher{}}),
		WithUploader(up),
	)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	var stages []string
	res, err := e.Run(context.Background(), RunOptions{
		SessionID:    "s-1",
		Resume:       "Java engineer, 8 years",
		Instructions: "remote jobs in Europe",
		ProgressCallback: func(stage string, _ int) {
			stages = append(stages, stage)
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Jobs) != 1 || res.Jobs[0].Title != "Senior Java Developer" {
		t.Fatalf("Jobs = %+v", res.Jobs)
	}
	if res.Summary != "Saved 1 job." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if _, err := os.Stat(res.CSVPath); err != nil {
		t.Errorf("csv not written: %v", err)
	}
	if up.session != "s-1" || up.path != res.CSVPath || res.ObjectKey != "exports/s-1" {
		t.Errorf("upload = %+v, key = %s", up, res.ObjectKey)
	}

	joined := strings.Join(stages, "|")
	for _, want := range []string{StageAnalyzing, "calling tavily_search", "calling save_found_jobs", StageCompleted} {
		if !strings.Contains(joined, want) {
			t.Errorf("stages %v missing %q", stages, want)
		}
	}
}

func TestEngine_RunKeepsCallOrder(t *testing.T) {
	const n = 30
	calls := make([]schema.ToolCall, 0, n)
	for i := 0; i < n; i++ {
		calls = append(calls, schema.ToolCall{
			ID: fmt.Sprintf("c%d", i),
			Function: schema.FunctionCall{
				Name:      "save_found_jobs",
				Arguments: fmt.Sprintf(`{"title":"job-%02d","description":"d","url":"https://jobs.example/%d"}`, i, i),
			},
		})
	}
	cm := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("", calls),
		schema.AssistantMessage("Saved all.", nil),
	}}
	e, err := NewEngine(testConfig(t),
		WithChatModel(cm),
		WithSearchers(&factory.Searchers{Tavily: mockSearcher{}}),
	)
	if err != nil {
		t.Fatal(err)
	}

	// 回调内不加锁：工具并发执行时 -race 会报错
	var counts []int
	res, err := e.Run(context.Background(), RunOptions{
		Resume: "r",
		ProgressCallback: func(stage string, jobsFound int) {
			if stage == "calling save_found_jobs" {
				counts = append(counts, jobsFound)
			}
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Jobs) != n {
		t.Fatalf("got %d jobs, want %d", len(res.Jobs), n)
	}
	for i, j := range res.Jobs {
		if want := fmt.Sprintf("job-%02d", i); j.Title != want {
			t.Fatalf("position %d holds %s, want %s", i, j.Title, want)
		}
	}
	// 每次调用前后各上报一次：0,1,1,2,...,n-1,n
	if len(counts) != 2*n {
		t.Fatalf("saw %d save stages, want %d", len(counts), 2*n)
	}
	for i := 0; i < n; i++ {
		if counts[2*i] != i || counts[2*i+1] != i+1 {
			t.Errorf("call %d reported %d then %d", i, counts[2*i], counts[2*i+1])
		}
	}
}

func TestEngine_RunNoJobs(t *testing.T) {
	e, err := NewEngine(testConfig(t),
		WithChatModel(&scriptedModel{}),
		WithSearchers(&factory.Searchers{Google: mockSearcher{}}),
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(context.Background(), RunOptions{Resume: "r", Instructions: "i"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Jobs) != 0 || res.CSVPath != "" || res.SessionID == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestEngine_RunEmptyResume(t *testing.T) {
	e, err := NewEngine(testConfig(t),
		WithChatModel(&scriptedModel{}),
		WithSearchers(&factory.Searchers{Tavily: mockSearcher{}}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(context.Background(), RunOptions{Resume: "  "}); !errors.Is(err, ErrEmptyResume) {
		t.Errorf("Run() error = %v, want ErrEmptyResume", err)
	}
}

func TestRetryModel_RetriesOn429(t *testing.T) {
	inner := &scriptedModel{
		errs:    []error{errors.New("error, status code: 429, Too Many Requests"), errors.New("429")},
		replies: []*schema.Message{nil, nil, schema.AssistantMessage("ok", nil)},
	}
	m := newRetryModel(inner, rate.NewLimiter(rate.Inf, 1))
	m.baseDelay = time.Millisecond

	msg, err := m.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if msg.Content != "ok" || inner.calls != 3 {
		t.Errorf("content = %q, calls = %d", msg.Content, inner.calls)
	}
}

func TestRetryModel_OtherErrorNotRetried(t *testing.T) {
	inner := &scriptedModel{errs: []error{errors.New("invalid api key")}}
	m := newRetryModel(inner, rate.NewLimiter(rate.Inf, 1))
	m.baseDelay = time.Millisecond

	if _, err := m.Generate(context.Background(), nil); err == nil {
		t.Fatal("Generate() expected error")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	p := buildSystemPrompt([]string{"tavily_search", "google_search"}, true)
	if !strings.Contains(p, "(tavily_search or google_search)") || !strings.Contains(p, "save_to_csv") {
		t.Errorf("prompt missing tool names:\n%s", p)
	}
	if strings.Contains(buildSystemPrompt([]string{"searxng_search"}, false), "save_to_csv") {
		t.Error("save_to_csv mentioned without incremental file")
	}
}
