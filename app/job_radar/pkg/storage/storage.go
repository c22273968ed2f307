// Package storage 持久化搜索会话，支持 SQLite（默认）与 PostgreSQL。
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// ErrNotFound 会话不存在
var ErrNotFound = errors.New("session not found")

// 定宽 UTC 时间，保证按字符串排序即按时间排序
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Storage struct {
	db     *sql.DB
	driver string
}

// NewStorage 打开数据库并建表
func NewStorage(cfg config.DBConfig) (*Storage, error) {
	driver, dsn := cfg.DSN()
	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db, driver: driver}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS search_sessions (
			id TEXT PRIMARY KEY,
			instructions TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			stage TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			jobs TEXT NOT NULL DEFAULT '[]',
			csv_path TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_sessions_created_at ON search_sessions (created_at)`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// rebind 把 ? 占位符转换为 postgres 的 $n
func (s *Storage) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *Storage) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// CreateSession 新建一个 running 状态的会话
func (s *Storage) CreateSession(ctx context.Context, id, instructions string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO search_sessions (id, instructions, status, stage, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		id, removeNullBytes(instructions), model.SessionRunning, "queued", ts, ts)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateStage 更新运行中的阶段描述
func (s *Storage) UpdateStage(ctx context.Context, id, stage string) error {
	return s.exec(ctx, `UPDATE search_sessions SET stage = ?, updated_at = ? WHERE id = ?`, stage, now(), id)
}

// FinishSession 标记完成并保存职位与 CSV 路径
func (s *Storage) FinishSession(ctx context.Context, id string, jobs []model.JobRecord, csvPath string) error {
	b, err := marshalJobs(jobs)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		`UPDATE search_sessions SET status = ?, stage = ?, jobs = ?, csv_path = ?, updated_at = ? WHERE id = ?`,
		model.SessionDone, "completed", b, csvPath, now(), id)
}

// FailSession 标记失败并保存错误详情，失败前已保存的职位和 CSV 一并落库
func (s *Storage) FailSession(ctx context.Context, id, errMsg string, jobs []model.JobRecord, csvPath string) error {
	b, err := marshalJobs(jobs)
	if err != nil {
		return err
	}
	return s.exec(ctx,
		`UPDATE search_sessions SET status = ?, error = ?, jobs = ?, csv_path = ?, updated_at = ? WHERE id = ?`,
		model.SessionFailed, removeNullBytes(errMsg), b, csvPath, now(), id)
}

func marshalJobs(jobs []model.JobRecord) (string, error) {
	if jobs == nil {
		jobs = []model.JobRecord{}
	}
	b, err := json.Marshal(jobs)
	if err != nil {
		return "", fmt.Errorf("marshal jobs: %w", err)
	}
	return string(b), nil
}

const selectSession = `SELECT id, instructions, status, stage, error, jobs, csv_path, created_at, updated_at FROM search_sessions`

// GetSession 按 id 查询，不存在返回 ErrNotFound
func (s *Storage) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectSession+` WHERE id = ?`), id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// ListSessions 最近的会话，按创建时间倒序
func (s *Storage) ListSessions(ctx context.Context, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(selectSession+` ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*model.Session, error) {
	var (
		sess                 model.Session
		jobs                 string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&sess.ID, &sess.Instructions, &sess.Status, &sess.Stage, &sess.Error,
		&jobs, &sess.CSVPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(jobs), &sess.Jobs); err != nil {
		return nil, fmt.Errorf("decode jobs of %s: %w", sess.ID, err)
	}
	sess.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &sess, nil
}

// removeNullBytes PostgreSQL 文本字段不支持 NULL 字节
func removeNullBytes(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
