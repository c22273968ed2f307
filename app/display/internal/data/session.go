package data

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/job_radar/app/display/internal/domain"
	"github.com/iWorld-y/job_radar/app/display/internal/repo"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/storage"
)

type sessionRepo struct {
	data *Data
	log  *log.Helper

	// store 为空时使用
	mu  sync.RWMutex
	mem map[string]*model.Session
}

func NewSessionRepo(data *Data, logger log.Logger) repo.SessionRepo {
	return &sessionRepo{
		data: data,
		log:  log.NewHelper(logger),
		mem:  make(map[string]*model.Session),
	}
}

func (r *sessionRepo) Create(ctx context.Context, id, instructions string) error {
	if r.data.store != nil {
		return r.data.store.CreateSession(ctx, id, instructions)
	}
	now := time.Now()
	r.mu.Lock()
	r.mem[id] = &model.Session{
		ID:           id,
		Instructions: instructions,
		Status:       model.SessionRunning,
		Stage:        "queued",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.mu.Unlock()
	return nil
}

func (r *sessionRepo) UpdateStage(ctx context.Context, id, stage string) error {
	if r.data.store != nil {
		return r.data.store.UpdateStage(ctx, id, stage)
	}
	return r.update(id, func(s *model.Session) { s.Stage = stage })
}

func (r *sessionRepo) Finish(ctx context.Context, id string, jobs []model.JobRecord, csvPath string) error {
	if r.data.store != nil {
		return r.data.store.FinishSession(ctx, id, jobs, csvPath)
	}
	return r.update(id, func(s *model.Session) {
		s.Status = model.SessionDone
		s.Stage = "completed"
		s.Jobs = jobs
		s.CSVPath = csvPath
	})
}

func (r *sessionRepo) Fail(ctx context.Context, id, errMsg string, jobs []model.JobRecord, csvPath string) error {
	if r.data.store != nil {
		return r.data.store.FailSession(ctx, id, errMsg, jobs, csvPath)
	}
	return r.update(id, func(s *model.Session) {
		s.Status = model.SessionFailed
		s.Error = errMsg
		s.Jobs = jobs
		s.CSVPath = csvPath
	})
}

func (r *sessionRepo) update(id string, fn func(*model.Session)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.mem[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(s)
	s.UpdatedAt = time.Now()
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	if r.data.store != nil {
		s, err := r.data.store.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		return toDomain(s), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.mem[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return toDomain(s), nil
}

func (r *sessionRepo) ListRecent(ctx context.Context, limit int) ([]*domain.SessionSummary, error) {
	var sessions []*model.Session
	if r.data.store != nil {
		list, err := r.data.store.ListSessions(ctx, limit)
		if err != nil {
			return nil, err
		}
		sessions = list
	} else {
		r.mu.RLock()
		for _, s := range r.mem {
			cp := *s
			sessions = append(sessions, &cp)
		}
		r.mu.RUnlock()
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		})
		if limit > 0 && len(sessions) > limit {
			sessions = sessions[:limit]
		}
	}

	out := make([]*domain.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, &domain.SessionSummary{
			ID:           s.ID,
			Instructions: s.Instructions,
			Status:       s.Status,
			JobCount:     len(s.Jobs),
			CreatedAt:    s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return out, nil
}

func toDomain(s *model.Session) *domain.Session {
	jobs := make([]model.JobRecord, len(s.Jobs))
	copy(jobs, s.Jobs)
	return &domain.Session{
		ID:           s.ID,
		Instructions: s.Instructions,
		Status:       s.Status,
		Stage:        s.Stage,
		Error:        s.Error,
		Jobs:         jobs,
		CSVPath:      s.CSVPath,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
