package data

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/storage"
)

// Data 数据层资源，db.driver 为 none 时 store 为空，会话只保存在内存
type Data struct {
	store *storage.Storage
}

func NewData(c *config.Config, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	if c.DB.Driver == "none" {
		helper.Info("db.driver is none, sessions are kept in memory")
		return &Data{}, func() {}, nil
	}

	store, err := storage.NewStorage(c.DB)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		_ = store.Close()
	}
	return &Data{store: store}, cleanup, nil
}
