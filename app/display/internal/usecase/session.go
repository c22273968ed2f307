package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"github.com/iWorld-y/job_radar/app/display/internal/domain"
	"github.com/iWorld-y/job_radar/app/display/internal/repo"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/csvstore"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/engine"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// ErrResumeRequired 没有上传简历也没有粘贴文本
var ErrResumeRequired = errors.New("please upload a resume or paste its text")

// Runner 执行一次职位搜索，由 engine.Engine 实现
type Runner interface {
	Run(ctx context.Context, opts engine.RunOptions) (*engine.Result, error)
}

// SessionUseCase 搜索会话业务逻辑：每个会话在独立 goroutine 中运行，不自动重试
type SessionUseCase struct {
	repo    repo.SessionRepo
	runner  Runner
	timeout time.Duration
	log     *log.Helper

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionUseCase 创建会话业务逻辑实例，timeout <= 0 时不限制会话时长
func NewSessionUseCase(repo repo.SessionRepo, runner Runner, timeout time.Duration, logger log.Logger) *SessionUseCase {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionUseCase{
		repo:    repo,
		runner:  runner,
		timeout: timeout,
		log:     log.NewHelper(logger),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 创建会话并异步运行 agent，返回会话 id
func (uc *SessionUseCase) Start(ctx context.Context, resume, instructions string) (string, error) {
	if strings.TrimSpace(resume) == "" {
		return "", ErrResumeRequired
	}

	id := uuid.NewString()
	if err := uc.repo.Create(ctx, id, instructions); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		uc.run(id, resume, instructions)
	}()
	return id, nil
}

func (uc *SessionUseCase) run(id, resume, instructions string) {
	ctx := uc.ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	uc.log.Infof("session %s started", id)
	res, err := uc.runner.Run(ctx, engine.RunOptions{
		SessionID:    id,
		Resume:       resume,
		Instructions: instructions,
		ProgressCallback: func(stage string, jobsFound int) {
			msg := stage
			if jobsFound > 0 {
				msg = fmt.Sprintf("%s (%d jobs saved)", stage, jobsFound)
			}
			if err := uc.repo.UpdateStage(context.Background(), id, msg); err != nil {
				uc.log.Warnf("session %s: update stage: %v", id, err)
			}
		},
	})

	// 会话 ctx 可能已超时，结果用独立的 ctx 落库
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err != nil {
		var (
			jobs    []model.JobRecord
			csvPath string
		)
		if res != nil {
			jobs, csvPath = res.Jobs, res.CSVPath
		}
		uc.log.Errorf("session %s failed with %d jobs saved: %v", id, len(jobs), err)
		if ferr := uc.repo.Fail(saveCtx, id, err.Error(), jobs, csvPath); ferr != nil {
			uc.log.Errorf("session %s: save failure: %v", id, ferr)
		}
		return
	}
	if ferr := uc.repo.Finish(saveCtx, id, res.Jobs, res.CSVPath); ferr != nil {
		uc.log.Errorf("session %s: save result: %v", id, ferr)
		return
	}
	uc.log.Infof("session %s done with %d jobs", id, len(res.Jobs))
}

// Get 查询会话
func (uc *SessionUseCase) Get(ctx context.Context, id string) (*domain.Session, error) {
	return uc.repo.Get(ctx, id)
}

// Recent 最近的会话
func (uc *SessionUseCase) Recent(ctx context.Context, limit int) ([]*domain.SessionSummary, error) {
	return uc.repo.ListRecent(ctx, limit)
}

// ExportCSV 以 title,description,url 格式写出会话的职位
func (uc *SessionUseCase) ExportCSV(ctx context.Context, id string, w io.Writer) error {
	s, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	return csvstore.WritePlain(w, s.Jobs)
}

// Close 取消运行中的会话并等待其退出
func (uc *SessionUseCase) Close() {
	uc.cancel()
	uc.wg.Wait()
}
