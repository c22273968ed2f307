package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/job_radar/app/display/internal/data"
	"github.com/iWorld-y/job_radar/app/display/internal/service"
)

// ProviderSet 是展示服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewTemplates,
	NewRadarEngine,

	// Data providers
	data.NewData,
	data.NewSessionRepo,

	// UseCase providers
	NewSessionUseCase,

	// Service providers
	service.NewDisplayService,
)
