// Package csvstore 把职位列表写成 CSV 文件。
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

// ErrEmptyJobs 批量写入时列表为空
var ErrEmptyJobs = errors.New("jobs list cannot be empty")

var (
	// BatchHeader 批量文件表头
	BatchHeader = []string{"job_title", "job_url", "country", "city", "relevancy_score", "recruiter_emails"}
	// PlainHeader 增量文件与界面下载的表头
	PlainHeader = []string{"title", "description", "url"}
)

// now 测试中替换
var now = time.Now

// SaveJobs 把完整列表写入 outputDir 下新的 job_listings_YYYYMMDD_HHMMSS.csv，返回文件路径。
// 同一秒已有同名文件时追加 _1、_2 后缀，不覆盖其他会话的结果。
func SaveJobs(jobs []model.JobRecord, outputDir string) (string, error) {
	if len(jobs) == 0 {
		return "", ErrEmptyJobs
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path, f, err := createUnique(outputDir, "job_listings_"+now().Format("20060102_150405"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(BatchHeader); err != nil {
		return "", err
	}
	for _, j := range jobs {
		if err := w.Write(batchRow(j)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}

// maxSuffix 同一秒内最多的并发会话数
const maxSuffix = 1000

// createUnique 独占创建 <base>.csv，已存在时依次尝试 <base>_1.csv、<base>_2.csv ...
func createUnique(dir, base string) (string, *os.File, error) {
	for i := 0; i < maxSuffix; i++ {
		name := base + ".csv"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.csv", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, fmt.Errorf("create csv: %w", err)
		}
	}
	return "", nil, fmt.Errorf("create csv: too many files named %s", base)
}

func batchRow(j model.JobRecord) []string {
	score := ""
	if j.RelevancyScore != nil {
		score = strconv.FormatFloat(*j.RelevancyScore, 'f', -1, 64)
	}
	return []string{j.Title, j.URL, j.Country, j.City, score, j.RecruiterEmails}
}

// IncrementalName 增量文件名：去掉扩展名 + YYYY-MM-DD + _<unix 秒> + .csv
func IncrementalName(filename string, t time.Time) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return fmt.Sprintf("%s%s_%d.csv", base, t.Format("2006-01-02"), t.Unix())
}

// AppendJob 追加一行 title,description,url。文件新建时先写表头，返回实际写入的路径。
// 同一秒内的多次调用落在同一个文件，文件锁保证表头只写一次。
func AppendJob(rec model.JobRecord, filename string) (string, error) {
	path := IncrementalName(filename, now())
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(PlainHeader); err != nil {
			return "", err
		}
	}
	if err := w.Write(plainRow(rec)); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}

// WritePlain 写出带表头的 title,description,url CSV（界面下载）
func WritePlain(out io.Writer, jobs []model.JobRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write(PlainHeader); err != nil {
		return err
	}
	for _, j := range jobs {
		if err := w.Write(plainRow(j)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func plainRow(j model.JobRecord) []string {
	return []string{j.Title, j.Description, j.URL}
}
