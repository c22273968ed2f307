package factory

import (
	"fmt"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/google"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/searxng"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/tavily"
)

// Searchers 已配置的搜索 provider，未配置的为 nil
type Searchers struct {
	Tavily  search.Searcher
	Google  search.Searcher
	SearXNG search.Searcher
}

// NewSearchers 根据配置创建所有可用的搜索实例
func NewSearchers(cfg *config.Config) (*Searchers, error) {
	s := &Searchers{}

	if key := cfg.Search.Tavily.APIKey; key != "" {
		s.Tavily = tavily.NewClient(key)
	}

	g := cfg.Search.Google
	if g.APIKey != "" {
		if g.CSEID == "" {
			return nil, fmt.Errorf("google cse id is missing")
		}
		s.Google = google.NewClient(g.APIKey, g.CSEID, g.Num)
	}

	if baseURL := cfg.Search.SearXNG.BaseURL; baseURL != "" {
		s.SearXNG = searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout)
	}

	if s.Tavily == nil && s.Google == nil && s.SearXNG == nil {
		return nil, fmt.Errorf("search provider not configured")
	}
	return s, nil
}
