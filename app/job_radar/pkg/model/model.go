package model

import "time"

// JobRecord 一条职位记录，Title 和 URL 不能为空
type JobRecord struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	URL             string   `json:"url"`
	Country         string   `json:"country,omitempty"`
	City            string   `json:"city,omitempty"`
	RelevancyScore  *float64 `json:"relevancy_score,omitempty"`
	RecruiterEmails string   `json:"recruiter_emails,omitempty"`
}

// SearchResult 搜索工具返回给 agent 的单条结果
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// 抽取结果状态
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ExtractionResult 网页正文抽取结果，Content 与 Error 有且只有一个非空
type ExtractionResult struct {
	Status  string  `json:"status"`
	Content *string `json:"content"`
	Error   *string `json:"error"`
}

// 会话状态
const (
	SessionRunning = "running"
	SessionDone    = "done"
	SessionFailed  = "failed"
)

// Session 一次搜索会话
type Session struct {
	ID           string
	Instructions string
	Status       string
	Stage        string
	Error        string
	Jobs         []JobRecord
	CSVPath      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
