package domain

import (
	"time"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// Session 搜索会话领域对象
type Session struct {
	ID           string
	Instructions string
	Status       string
	Stage        string
	Error        string
	Jobs         []model.JobRecord
	CSVPath      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Running 会话是否仍在执行
func (s *Session) Running() bool { return s.Status == model.SessionRunning }

// Failed 会话是否失败
func (s *Session) Failed() bool { return s.Status == model.SessionFailed }

// SessionSummary 首页最近会话列表项
type SessionSummary struct {
	ID           string
	Instructions string
	Status       string
	JobCount     int
	CreatedAt    string
}
