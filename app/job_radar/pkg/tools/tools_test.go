package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/extract"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/jobs"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
)

// mockSearcher 记录请求并返回固定结果
type mockSearcher struct {
	resp *search.Response
	err  error
	last *search.Request
}

func (m *mockSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func TestSearchTool_Success(t *testing.T) {
	s := &mockSearcher{resp: &search.Response{Results: []search.Result{
		{Title: "Go Developer", URL: "https://jobs.example/1", Content: "Remote", RawContent: "ignored", Score: 0.9},
	}}}
	tl := NewTavilySearch(s, NewThrottle(0))

	out, err := tl.InvokableRun(context.Background(), `{"query":"golang jobs berlin","no_of_search_results":3}`)
	if err != nil {
		t.Fatalf("InvokableRun() error = %v", err)
	}
	if s.last.MaxResults != 3 || !s.last.IncludeRawContent || !s.last.IncludeAnswer {
		t.Errorf("request = %+v", s.last)
	}
	if out != `[{"title":"Go Developer","url":"https://jobs.example/1","content":"Remote","score":0.9}]` {
		t.Errorf("output = %s", out)
	}
}

func TestSearchTool_DefaultCount(t *testing.T) {
	s := &mockSearcher{resp: &search.Response{}}
	tl := NewTavilySearch(s, nil)
	if _, err := tl.InvokableRun(context.Background(), `{"query":"x"}`); err != nil {
		t.Fatal(err)
	}
	if s.last.MaxResults != defaultResultCount {
		t.Errorf("MaxResults = %d, want %d", s.last.MaxResults, defaultResultCount)
	}
}

func TestSearchTool_FailureIsData(t *testing.T) {
	s := &mockSearcher{err: errors.New("quota exceeded")}
	tl := NewGoogleSearch(s, NewThrottle(0))

	out, err := tl.InvokableRun(context.Background(), `{"query":"site:example.com go"}`)
	if err != nil {
		t.Fatalf("InvokableRun() error = %v, want nil", err)
	}
	var payload []map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not JSON: %s", out)
	}
	if len(payload) != 1 || payload[0]["error"] != "Search failed: quota exceeded" {
		t.Errorf("payload = %v", payload)
	}
}

func TestSearchTool_Info(t *testing.T) {
	info, err := NewSearXNGSearch(&mockSearcher{}, nil).Info(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "searxng_search" {
		t.Errorf("Name = %s", info.Name)
	}
}

func TestThrottle_SpacesCalls(t *testing.T) {
	th := NewThrottle(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	_ = th.Wait(ctx)
	if time.Since(start) > 20*time.Millisecond {
		t.Errorf("first call was delayed")
	}
	_ = th.Wait(ctx)
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second call after %v, want >= 50ms", elapsed)
	}
}

func TestExtractTool_InvalidURL(t *testing.T) {
	tl := NewExtractContent(extract.New(time.Second), NewThrottle(0))
	out, err := tl.InvokableRun(context.Background(), `{"url":"not a url"}`)
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"status":"error","content":null,"error":"Invalid URL format"}` {
		t.Errorf("output = %s", out)
	}
}

func TestExtractTool_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><nav>menu</nav><p>Hiring Go engineers</p></body></html>"))
	}))
	defer srv.Close()

	tl := NewExtractContent(extract.New(time.Second, extract.WithStrategies(nil, extract.StripTags)), nil)
	res := tl.Run(context.Background(), srv.URL)
	if res.Status != "success" || res.Content == nil || *res.Content != "Hiring Go engineers" {
		t.Errorf("result = %+v", res)
	}
}

func TestSaveJobTool_Add(t *testing.T) {
	list := jobs.NewList()
	tl := NewSaveFoundJobs(list)

	out, err := tl.InvokableRun(context.Background(),
		`{"title":"Senior Java Developer","description":"Remote position...","url":"https://example.com/jobs/123"}`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "added successfully") || !strings.Contains(out, "Senior Java Developer") {
		t.Errorf("output = %s", out)
	}
	if list.Len() != 1 {
		t.Fatalf("Len = %d, want 1", list.Len())
	}
	got := list.Snapshot()[0]
	if got.URL != "https://example.com/jobs/123" || got.Description != "Remote position..." {
		t.Errorf("record = %+v", got)
	}
}

func TestSaveJobTool_Rejects(t *testing.T) {
	list := jobs.NewList()
	tl := NewSaveFoundJobs(list)

	for _, args := range []string{
		`{"title":"No URL","description":"d"}`,
		`{"title":"","description":"d","url":"https://example.com"}`,
		`{"title":42,"description":"d","url":"https://example.com"}`,
		`not json`,
	} {
		out, err := tl.InvokableRun(context.Background(), args)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(out, "Error in save_found_jobs:") {
			t.Errorf("args %s: output = %s", args, out)
		}
	}
	if list.Len() != 0 {
		t.Errorf("Len = %d, want 0", list.Len())
	}
}

func TestSaveCSVTool(t *testing.T) {
	dir := t.TempDir()
	tl := NewSaveToCSV(filepath.Join(dir, "data.csv"))

	out, err := tl.InvokableRun(context.Background(), `{"title":"T","description":"D","url":"https://u.example"}`)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Success" {
		t.Fatalf("output = %s", out)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "data*.csv"))
	if len(matches) != 1 {
		t.Fatalf("files = %v", matches)
	}
	b, _ := os.ReadFile(matches[0])
	if !strings.HasPrefix(string(b), "title,description,url\n") {
		t.Errorf("content = %q", b)
	}

	out, _ = tl.InvokableRun(context.Background(), `{"title":"T"}`)
	if !strings.HasPrefix(out, "failed to Save:") {
		t.Errorf("output = %s", out)
	}
}
