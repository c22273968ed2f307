package service_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/job_radar/app/display/internal/conf"
	"github.com/iWorld-y/job_radar/app/display/internal/data"
	"github.com/iWorld-y/job_radar/app/display/internal/server"
	"github.com/iWorld-y/job_radar/app/display/internal/service"
	"github.com/iWorld-y/job_radar/app/display/internal/usecase"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/engine"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// mockRunner 返回固定结果，并记录收到的简历
type mockRunner struct {
	resume string
	jobs   []model.JobRecord
	err    error
}

func (r *mockRunner) Run(_ context.Context, opts engine.RunOptions) (*engine.Result, error) {
	r.resume = opts.Resume
	if r.err != nil {
		return nil, r.err
	}
	return &engine.Result{SessionID: opts.SessionID, Jobs: r.jobs}, nil
}

func newService(t *testing.T, runner usecase.Runner) (*service.DisplayService, *usecase.SessionUseCase) {
	t.Helper()
	d, cleanup, err := data.NewData(&config.Config{DB: config.DBConfig{Driver: "none"}}, log.DefaultLogger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cleanup)

	uc := usecase.NewSessionUseCase(data.NewSessionRepo(d, log.DefaultLogger), runner, time.Minute, log.DefaultLogger)
	tmpl, err := server.NewTemplates()
	if err != nil {
		t.Fatalf("NewTemplates() error = %v", err)
	}
	svc := service.NewDisplayService(uc, tmpl, &conf.Server{Http: &conf.HTTP{}}, &conf.Radar{}, log.DefaultLogger)
	return svc, uc
}

func startSearch(t *testing.T, svc *service.DisplayService, form url.Values) string {
	t.Helper()
	req := httptest.NewRequest(nethttp.MethodPost, "/search", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.Search(rec, req)
	if rec.Code != nethttp.StatusSeeOther {
		t.Fatalf("Search() status = %d, body = %s", rec.Code, rec.Body.String())
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	return loc.Query().Get("id")
}

func get(svc func(nethttp.ResponseWriter, *nethttp.Request), target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	svc(rec, httptest.NewRequest(nethttp.MethodGet, target, nil))
	return rec
}

func TestDisplayService_SearchFlow(t *testing.T) {
	runner := &mockRunner{jobs: []model.JobRecord{
		{Title: "Senior Java Developer", Description: "Remote position...", URL: "https://example.com/jobs/123"},
	}}
	svc, uc := newService(t, runner)

	id := startSearch(t, svc, url.Values{"resume_text": {"Java, 8 years"}, "instructions": {"remote"}})
	uc.Close()

	if runner.resume != "Java, 8 years" {
		t.Errorf("resume = %q", runner.resume)
	}

	rec := get(svc.Session, "/session?id="+id)
	body := rec.Body.String()
	if !strings.Contains(body, "Found 1 jobs matching your criteria") || !strings.Contains(body, "https://example.com/jobs/123") {
		t.Errorf("session page = %s", body)
	}

	rec = get(svc.Export, "/session/export?id="+id)
	if rec.Header().Get("Content-Type") != "text/csv" || !strings.Contains(rec.Header().Get("Content-Disposition"), "jobs_data.csv") {
		t.Errorf("headers = %v", rec.Header())
	}
	if rec.Body.String() != "title,description,url\nSenior Java Developer,Remote position...,https://example.com/jobs/123\n" {
		t.Errorf("csv = %q", rec.Body.String())
	}

	if rec := get(svc.Index, "/"); !strings.Contains(rec.Body.String(), "/session?id="+id) {
		t.Error("index does not list the recent session")
	}
}

func TestDisplayService_EmptyAndFailed(t *testing.T) {
	svc, uc := newService(t, &mockRunner{})
	id := startSearch(t, svc, url.Values{"resume_text": {"r"}})
	uc.Close()
	if body := get(svc.Session, "/session?id="+id).Body.String(); !strings.Contains(body, "No jobs were saved by the agent") {
		t.Errorf("empty page = %s", body)
	}

	svc, uc = newService(t, &mockRunner{err: errors.New("agent run: 401 invalid api key")})
	id = startSearch(t, svc, url.Values{"resume_text": {"r"}})
	uc.Close()
	body := get(svc.Session, "/session?id="+id).Body.String()
	if !strings.Contains(body, "<details") || !strings.Contains(body, "401 invalid api key") || !strings.Contains(body, "Possible solutions") {
		t.Errorf("failed page = %s", body)
	}
}

func TestDisplayService_MissingResume(t *testing.T) {
	svc, _ := newService(t, &mockRunner{})
	req := httptest.NewRequest(nethttp.MethodPost, "/search", strings.NewReader("instructions=remote"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.Search(rec, req)

	if rec.Code != nethttp.StatusBadRequest || !strings.Contains(rec.Body.String(), usecase.ErrResumeRequired.Error()) {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDisplayService_ParseResume(t *testing.T) {
	svc, _ := newService(t, &mockRunner{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("resume_file", "cv.txt")
	_, _ = fw.Write([]byte("Go engineer"))
	_ = mw.Close()

	req := httptest.NewRequest(nethttp.MethodPost, "/api/resume/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	svc.ParseResume(rec, req)

	if rec.Code != nethttp.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"text":"Go engineer"}` {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDisplayService_NotFound(t *testing.T) {
	svc, _ := newService(t, &mockRunner{})
	if rec := get(svc.Session, "/session?id=missing"); rec.Code != nethttp.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if rec := get(svc.Health, "/health"); rec.Code != nethttp.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
