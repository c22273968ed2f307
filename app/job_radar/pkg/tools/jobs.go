package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/csvstore"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/jobs"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
)

var errNotString = errors.New("must be a string")

// jobArgs 三个字段都必须出现且为字符串
type jobArgs struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
}

func (a jobArgs) record() (model.JobRecord, error) {
	for _, f := range []struct {
		name string
		v    *string
	}{{"title", a.Title}, {"description", a.Description}, {"url", a.URL}} {
		if f.v == nil {
			return model.JobRecord{}, fmt.Errorf("%w: %s", jobs.ErrMissingField, f.name)
		}
	}
	return model.JobRecord{Title: *a.Title, Description: *a.Description, URL: *a.URL}, nil
}

func decodeJob(argumentsInJSON string) (model.JobRecord, error) {
	var args jobArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return model.JobRecord{}, fmt.Errorf("%s %w", typeErr.Field, errNotString)
		}
		return model.JobRecord{}, err
	}
	return args.record()
}

func jobParams() *schema.ParamsOneOf {
	return schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"title": {
			Type:     schema.String,
			Desc:     "The job title",
			Required: true,
		},
		"description": {
			Type:     schema.String,
			Desc:     "A short description of the job",
			Required: true,
		},
		"url": {
			Type:     schema.String,
			Desc:     "The URL of the job posting",
			Required: true,
		},
	})
}

// SaveJobTool save_found_jobs，把职位追加到会话的列表
type SaveJobTool struct {
	list *jobs.List
}

var _ tool.InvokableTool = (*SaveJobTool)(nil)

// NewSaveFoundJobs 绑定到一个会话列表
func NewSaveFoundJobs(list *jobs.List) *SaveJobTool {
	return &SaveJobTool{list: list}
}

// Info 实现 tool.BaseTool
func (t *SaveJobTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "save_found_jobs",
		Desc: "Saves a found job (title, description, url) to the job list of the current search. " +
			"Call it once for every relevant job posting.",
		ParamsOneOf: jobParams(),
	}, nil
}

// InvokableRun 成功返回确认与当前列表，失败返回错误文案，列表不变
func (t *SaveJobTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	rec, err := decodeJob(argumentsInJSON)
	if err == nil {
		err = t.list.Add(rec)
	}
	if err != nil {
		logger.Log.Warnf("保存职位失败: %v", err)
		return fmt.Sprintf("Error in save_found_jobs: %v", err), nil
	}
	logger.Log.Infof("已保存职位: %s (%s)", rec.Title, rec.URL)
	return fmt.Sprintf("Job '%s' added successfully. The job list now is %s", rec.Title, t.list.String()), nil
}

// SaveCSVTool save_to_csv，每次调用追加一行到增量 CSV
type SaveCSVTool struct {
	filename string
}

var _ tool.InvokableTool = (*SaveCSVTool)(nil)

// NewSaveToCSV filename 为增量文件的基础名
func NewSaveToCSV(filename string) *SaveCSVTool {
	return &SaveCSVTool{filename: filename}
}

// Info 实现 tool.BaseTool
func (t *SaveCSVTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        "save_to_csv",
		Desc:        "Appends a job (title, description, url) as one row to the CSV output file.",
		ParamsOneOf: jobParams(),
	}, nil
}

// InvokableRun 成功返回 Success
func (t *SaveCSVTool) InvokableRun(_ context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	rec, err := decodeJob(argumentsInJSON)
	if err == nil {
		err = jobs.Validate(rec)
	}
	var path string
	if err == nil {
		path, err = csvstore.AppendJob(rec, t.filename)
	}
	if err != nil {
		logger.Log.Errorf("写入 CSV 失败: %v", err)
		return fmt.Sprintf("failed to Save: %v", err), nil
	}
	logger.Log.Debugf("已追加到 %s", path)
	return "Success", nil
}
