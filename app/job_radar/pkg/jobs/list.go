// Package jobs 保存一次搜索会话中 agent 找到的职位。
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// ErrMissingField 必填字段为空
var ErrMissingField = errors.New("missing required field")

// List 会话拥有的职位列表，按添加顺序保存
type List struct {
	mu   sync.Mutex
	jobs []model.JobRecord
}

// NewList 创建空列表
func NewList() *List {
	return &List{jobs: []model.JobRecord{}}
}

// Validate 检查 JobRecord 的不变量：title 和 url 非空
func Validate(rec model.JobRecord) error {
	if strings.TrimSpace(rec.Title) == "" {
		return fmt.Errorf("%w: title", ErrMissingField)
	}
	if strings.TrimSpace(rec.URL) == "" {
		return fmt.Errorf("%w: url", ErrMissingField)
	}
	return nil
}

// Add 校验后追加一条记录，失败时列表不变
func (l *List) Add(rec model.JobRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}
	l.mu.Lock()
	l.jobs = append(l.jobs, rec)
	l.mu.Unlock()
	return nil
}

// Len 当前记录数
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.jobs)
}

// Snapshot 返回当前记录的拷贝
func (l *List) Snapshot() []model.JobRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.JobRecord, len(l.jobs))
	copy(out, l.jobs)
	return out
}

// String 以 JSON 数组形式输出列表，用于回显给 agent
func (l *List) String() string {
	b, err := json.Marshal(l.Snapshot())
	if err != nil {
		return "[]"
	}
	return string(b)
}
