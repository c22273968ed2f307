package service

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	nethttp "net/http"
	"path/filepath"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/job_radar/app/display/internal/conf"
	"github.com/iWorld-y/job_radar/app/display/internal/domain"
	"github.com/iWorld-y/job_radar/app/display/internal/usecase"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/resume"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/storage"
)

// 表单字段
const (
	fieldResumeFile   = "resume_file"
	fieldResumeText   = "resume_text"
	fieldInstructions = "instructions"
)

// DisplayService 页面与接口处理
type DisplayService struct {
	uc        *usecase.SessionUseCase
	tmpl      *template.Template
	maxUpload int64
	recent    int
	log       *log.Helper
}

func NewDisplayService(uc *usecase.SessionUseCase, tmpl *template.Template, c *conf.Server, rc *conf.Radar, logger log.Logger) *DisplayService {
	var maxUploadMB, recent int
	if c != nil && c.Http != nil {
		maxUploadMB = int(c.Http.MaxUploadMB)
	}
	if rc != nil {
		recent = int(rc.RecentSessions)
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	if recent <= 0 {
		recent = 10
	}
	return &DisplayService{
		uc:        uc,
		tmpl:      tmpl,
		maxUpload: int64(maxUploadMB) << 20,
		recent:    recent,
		log:       log.NewHelper(logger),
	}
}

type indexPage struct {
	Error        string
	ResumeText   string
	Instructions string
	Sessions     []*domain.SessionSummary
}

type sessionPage struct {
	Session *domain.Session
}

// Index GET /
func (s *DisplayService) Index(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}
	s.renderIndex(w, r, indexPage{}, nethttp.StatusOK)
}

func (s *DisplayService) renderIndex(w nethttp.ResponseWriter, r *nethttp.Request, page indexPage, status int) {
	sessions, err := s.uc.Recent(r.Context(), s.recent)
	if err != nil {
		s.log.Errorf("list sessions: %v", err)
	}
	page.Sessions = sessions
	s.render(w, "index.html", page, status)
}

// ParseResume POST /api/resume/parse，返回 {"text": "..."} 供预览
func (s *DisplayService) ParseResume(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	text, ok, err := s.readUpload(w, r)
	if err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": "no file uploaded"})
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"text": text})
}

// Search POST /search，启动会话后跳转到会话页
func (s *DisplayService) Search(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
		return
	}

	uploaded, _, err := s.readUpload(w, r)
	if err != nil {
		s.renderIndex(w, r, indexPage{Error: err.Error()}, nethttp.StatusBadRequest)
		return
	}
	pasted := r.FormValue(fieldResumeText)
	instructions := r.FormValue(fieldInstructions)

	// 手动粘贴的文本非空时优先
	text := uploaded
	if strings.TrimSpace(pasted) != "" {
		text = pasted
	}

	id, err := s.uc.Start(r.Context(), text, instructions)
	if err != nil {
		status := nethttp.StatusInternalServerError
		if errors.Is(err, usecase.ErrResumeRequired) {
			status = nethttp.StatusBadRequest
		}
		s.renderIndex(w, r, indexPage{Error: err.Error(), ResumeText: pasted, Instructions: instructions}, status)
		return
	}
	nethttp.Redirect(w, r, "/session?id="+id, nethttp.StatusSeeOther)
}

// Session GET /session?id=
func (s *DisplayService) Session(w nethttp.ResponseWriter, r *nethttp.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.render(w, "session.html", sessionPage{Session: sess}, nethttp.StatusOK)
}

// Export GET /session/export?id=，下载 jobs_data.csv
func (s *DisplayService) Export(w nethttp.ResponseWriter, r *nethttp.Request) {
	id := r.URL.Query().Get("id")
	if _, ok := s.lookup(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs_data.csv"`)
	if err := s.uc.ExportCSV(r.Context(), id, w); err != nil {
		s.log.Errorf("export session %s: %v", id, err)
	}
}

// Health GET /health
func (s *DisplayService) Health(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
}

func (s *DisplayService) lookup(w nethttp.ResponseWriter, r *nethttp.Request) (*domain.Session, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		nethttp.Error(w, "missing session id", nethttp.StatusBadRequest)
		return nil, false
	}
	sess, err := s.uc.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		nethttp.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		s.log.Errorf("get session %s: %v", id, err)
		nethttp.Error(w, "internal error", nethttp.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

// readUpload 读取上传的简历文件并提取文本，未上传时 ok 为 false
func (s *DisplayService) readUpload(w nethttp.ResponseWriter, r *nethttp.Request) (text string, ok bool, err error) {
	r.Body = nethttp.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, nethttp.ErrNotMultipart) {
		return "", false, err
	}

	f, header, err := r.FormFile(fieldResumeFile)
	if errors.Is(err, nethttp.ErrMissingFile) || errors.Is(err, nethttp.ErrNotMultipart) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", false, err
	}
	s.log.Infof("parsing uploaded resume %s (%d bytes)", header.Filename, len(data))
	return resume.Parse(filepath.Base(header.Filename), data), true, nil
}

func (s *DisplayService) render(w nethttp.ResponseWriter, name string, data any, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Errorf("render %s: %v", name, err)
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
