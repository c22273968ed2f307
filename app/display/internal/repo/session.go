package repo

import (
	"context"

	"github.com/iWorld-y/job_radar/app/display/internal/domain"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// SessionRepo 会话仓库接口
type SessionRepo interface {
	// Create 新建 running 状态的会话
	Create(ctx context.Context, id, instructions string) error
	UpdateStage(ctx context.Context, id, stage string) error
	// Finish 保存结果并标记完成
	Finish(ctx context.Context, id string, jobs []model.JobRecord, csvPath string) error
	// Fail 标记失败，jobs 与 csvPath 是失败前已保存的部分结果
	Fail(ctx context.Context, id, errMsg string, jobs []model.JobRecord, csvPath string) error
	// Get 不存在时返回 storage.ErrNotFound
	Get(ctx context.Context, id string) (*domain.Session, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.SessionSummary, error)
}
