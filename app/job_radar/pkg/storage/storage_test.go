package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "tmp", "data.db")})
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_SessionLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, "s1", "remote go jobs"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := s.UpdateStage(ctx, "s1", "calling tavily_search"); err != nil {
		t.Fatalf("UpdateStage() error = %v", err)
	}

	sess, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if sess.Status != model.SessionRunning || sess.Stage != "calling tavily_search" || sess.Instructions != "remote go jobs" {
		t.Errorf("session = %+v", sess)
	}
	if len(sess.Jobs) != 0 {
		t.Errorf("Jobs = %v, want empty", sess.Jobs)
	}

	jobs := []model.JobRecord{{Title: "Senior Java Developer", Description: "Remote position...", URL: "https://example.com/jobs/123"}}
	if err := s.FinishSession(ctx, "s1", jobs, "output/a.csv"); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}
	sess, _ = s.GetSession(ctx, "s1")
	if sess.Status != model.SessionDone || sess.CSVPath != "output/a.csv" || len(sess.Jobs) != 1 || sess.Jobs[0].URL != jobs[0].URL {
		t.Errorf("session = %+v", sess)
	}
	if sess.CreatedAt.IsZero() || sess.UpdatedAt.Before(sess.CreatedAt) {
		t.Errorf("timestamps = %v / %v", sess.CreatedAt, sess.UpdatedAt)
	}
}

func TestStorage_FailAndNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession() error = %v, want ErrNotFound", err)
	}
	if err := s.UpdateStage(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStage() error = %v, want ErrNotFound", err)
	}

	_ = s.CreateSession(ctx, "s2", "i")
	saved := []model.JobRecord{{Title: "Go Dev", Description: "d", URL: "https://jobs.example/1"}}
	if err := s.FailSession(ctx, "s2", "agent run: 401 invalid key\x00", saved, "output/partial.csv"); err != nil {
		t.Fatal(err)
	}
	sess, _ := s.GetSession(ctx, "s2")
	if sess.Status != model.SessionFailed || sess.Error != "agent run: 401 invalid key" {
		t.Errorf("session = %+v", sess)
	}
	if len(sess.Jobs) != 1 || sess.Jobs[0].Title != "Go Dev" || sess.CSVPath != "output/partial.csv" {
		t.Errorf("partial result = %+v, %q", sess.Jobs, sess.CSVPath)
	}

	if err := s.FailSession(ctx, "missing", "x", nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("FailSession() error = %v, want ErrNotFound", err)
	}
}

func TestStorage_ListSessions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = s.CreateSession(ctx, id, id)
		time.Sleep(2 * time.Millisecond)
	}

	list, err := s.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		ids := make([]string, 0, len(list))
		for _, l := range list {
			ids = append(ids, l.ID)
		}
		t.Errorf("ids = %v, want [c b]", ids)
	}
}

func TestRebind(t *testing.T) {
	s := &Storage{driver: "postgres"}
	if got := s.rebind("UPDATE t SET a = ?, b = ? WHERE id = ?"); got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Errorf("rebind() = %s", got)
	}
	s.driver = "sqlite"
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Errorf("rebind() sqlite = %s", got)
	}
}
