package server

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/job_radar/app/display/internal/repo"
	"github.com/iWorld-y/job_radar/app/display/internal/usecase"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/engine"
)

// NewRadarEngine 初始化 job_radar 引擎
func NewRadarEngine(cfg *config.Config, logger log.Logger) (*engine.Engine, error) {
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		log.NewHelper(logger).Errorf("Failed to init engine: %v", err)
		return nil, err
	}
	return eng, nil
}

// NewSessionUseCase 创建会话用例，cleanup 时取消并等待运行中的会话
func NewSessionUseCase(r repo.SessionRepo, eng *engine.Engine, cfg *config.Config, logger log.Logger) (*usecase.SessionUseCase, func()) {
	uc := usecase.NewSessionUseCase(r, eng, cfg.SessionTimeout(), logger)
	cleanup := func() {
		log.NewHelper(logger).Info("waiting for running search sessions")
		uc.Close()
	}
	return uc, cleanup
}
