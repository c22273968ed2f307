package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/config"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/engine"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/extract"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/logger"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/model"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/resume"
	"github.com/iWorld-y/job_radar/app/job_radar/pkg/storage"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "job_radar",
		Short:         "根据简历和求职要求搜索匹配的职位",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "app/job_radar/configs/config.yaml", "配置文件路径")
	root.AddCommand(newSearchCmd(), newParseCmd(), newExtractCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("无法加载配置文件: %w", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("无法初始化日志: %w", err)
	}
	return cfg, nil
}

func newSearchCmd() *cobra.Command {
	var resumePath, resumeText, instructions string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "运行一次职位搜索会话",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			text := resumeText
			if text == "" {
				if resumePath == "" {
					return fmt.Errorf("--resume or --resume-text is required")
				}
				data, err := os.ReadFile(resumePath)
				if err != nil {
					return err
				}
				text = resume.Parse(filepath.Base(resumePath), data)
			}

			eng, err := engine.NewEngine(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cfg.SessionTimeout())
			defer cancel()

			store := openStore(cfg)
			defer store.Close()

			var sessionID string
			res, runErr := eng.Run(ctx, engine.RunOptions{
				Resume:       text,
				Instructions: instructions,
				ProgressCallback: func(stage string, jobsFound int) {
					logger.Log.Infof("进度: %s (已保存 %d 个职位)", stage, jobsFound)
				},
			})
			if res != nil {
				sessionID = res.SessionID
			}
			recordSession(store, sessionID, instructions, res, runErr)
			if runErr != nil {
				return runErr
			}

			if len(res.Jobs) == 0 {
				fmt.Println("No jobs were saved by the agent.")
				return nil
			}
			fmt.Printf("Found %d jobs matching your criteria\n", len(res.Jobs))
			renderJobs(res.Jobs)
			fmt.Println("CSV:", res.CSVPath)
			if res.ObjectKey != "" {
				fmt.Println("Uploaded:", res.ObjectKey)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&resumePath, "resume", "", "简历文件 (pdf/docx/txt)")
	cmd.Flags().StringVar(&resumeText, "resume-text", "", "直接提供的简历文本，优先于 --resume")
	cmd.Flags().StringVar(&instructions, "instructions", "", "求职要求")
	_ = cmd.MarkFlagRequired("instructions")
	return cmd
}

// openStore 打开会话存储，失败或未配置时返回 nil
func openStore(cfg *config.Config) *storage.Storage {
	if cfg.DB.Driver == "none" {
		return nil
	}
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		logger.Log.Errorf("无法打开数据库: %v，会话不会被记录", err)
		return nil
	}
	return store
}

func recordSession(store *storage.Storage, id, instructions string, res *engine.Result, runErr error) {
	if store == nil || id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.CreateSession(ctx, id, instructions); err != nil {
		logger.Log.Errorf("记录会话失败: %v", err)
		return
	}
	if runErr != nil {
		var saved []model.JobRecord
		csvPath := ""
		if res != nil {
			saved, csvPath = res.Jobs, res.CSVPath
		}
		_ = store.FailSession(ctx, id, runErr.Error(), saved, csvPath)
		return
	}
	_ = store.FinishSession(ctx, id, res.Jobs, res.CSVPath)
}

func renderJobs(jobs []model.JobRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Job Title", "Description", "Apply Link"})
	table.SetAutoWrapText(true)
	table.SetColWidth(60)
	for i, j := range jobs {
		table.Append([]string{fmt.Sprint(i + 1), j.Title, j.Description, j.URL})
	}
	table.Render()
}

func newParseCmd() *cobra.Command {
	var resumePath string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "提取简历文本",
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := os.ReadFile(resumePath)
			if err != nil {
				return err
			}
			fmt.Print(resume.Parse(filepath.Base(resumePath), data))
			return nil
		},
	}
	cmd.Flags().StringVar(&resumePath, "resume", "", "简历文件 (pdf/docx/txt)")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var rawURL string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "抽取网页正文",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			x := extract.New(time.Duration(cfg.Tools.FetchTimeout) * time.Second)
			b, err := json.MarshalIndent(x.ExtractResult(cmd.Context(), rawURL), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&rawURL, "url", "", "网页地址")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
