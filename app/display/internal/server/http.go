package server

import (
	"embed"
	"html/template"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/job_radar/app/display/internal/conf"
	"github.com/iWorld-y/job_radar/app/display/internal/service"
)

//go:embed assets/*
var assets embed.FS

// NewTemplates 解析内嵌的页面模板
func NewTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"truncate": func(s string, n int) string {
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			return string(r[:n]) + "…"
		},
	}).ParseFS(assets, "assets/*.html")
}

func NewHTTPServer(c *conf.Server, s *service.DisplayService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != "" {
		if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
			opts = append(opts, http.Timeout(d))
		}
	}

	srv := http.NewServer(opts...)

	srv.HandleFunc("/", s.Index)
	srv.HandleFunc("/search", s.Search)
	srv.HandleFunc("/session", s.Session)
	srv.HandleFunc("/session/export", s.Export)
	srv.HandleFunc("/api/resume/parse", s.ParseResume)
	srv.HandleFunc("/health", s.Health)

	log.NewHelper(logger).Infof("display routes registered, addr=%s", c.Http.Addr)
	return srv
}
