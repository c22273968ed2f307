package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Tools       ToolsConfig       `yaml:"tools"`
	Agent       AgentConfig       `yaml:"agent"`
	Output      OutputConfig      `yaml:"output"`
	Export      ExportConfig      `yaml:"export"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
	Session     SessionConfig     `yaml:"session"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// SearchConfig 搜索相关配置，配置了凭据的 provider 都会作为工具注册给 agent
type SearchConfig struct {
	Tavily  TavilyConfig  `yaml:"tavily"`
	Google  GoogleConfig  `yaml:"google"`
	SearXNG SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// GoogleConfig Google Custom Search 配置
type GoogleConfig struct {
	APIKey string `yaml:"api_key"`
	CSEID  string `yaml:"cse_id"`
	Num    int    `yaml:"num"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// ToolsConfig 工具调用节流配置（毫秒）
type ToolsConfig struct {
	TavilyIntervalMS  int `yaml:"tavily_interval_ms"`
	GoogleIntervalMS  int `yaml:"google_interval_ms"`
	SearXNGIntervalMS int `yaml:"searxng_interval_ms"`
	ExtractIntervalMS int `yaml:"extract_interval_ms"`
	FetchTimeout      int `yaml:"fetch_timeout"` // 秒
}

// AgentConfig agent 运行配置
type AgentConfig struct {
	MaxStep int `yaml:"max_step"`
}

// OutputConfig CSV 输出配置
type OutputConfig struct {
	Dir string `yaml:"dir"`
	// IncrementalFile 非空时注册 save_to_csv 工具
	IncrementalFile string `yaml:"incremental_file"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config S3 兼容存储（如 Cloudflare R2）配置，Bucket 为空时不上传
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// DBConfig 数据库相关配置，Driver 为 sqlite 或 postgres
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SessionConfig 单次搜索会话配置
type SessionConfig struct {
	Timeout int `yaml:"timeout"` // 秒
}

// LoadConfig 从指定路径加载配置，path 为空时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// .env 不存在时忽略
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

// applyEnv 环境变量覆盖 YAML 中的凭据
func (c *Config) applyEnv() {
	override(&c.LLM.APIKey, "OPENAI_API_KEY")
	override(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	override(&c.LLM.Model, "OPENAI_MODEL")
	override(&c.Search.Tavily.APIKey, "TAVILY_API_KEY")
	override(&c.Search.Google.APIKey, "GOOGLE_API_KEY")
	override(&c.Search.Google.CSEID, "GOOGLE_CSE_ID")
	override(&c.Search.SearXNG.BaseURL, "SEARXNG_BASE_URL")
	override(&c.Export.S3.AccessKey, "S3_ACCESS_KEY")
	override(&c.Export.S3.SecretKey, "S3_SECRET_KEY")
	override(&c.Export.S3.Endpoint, "S3_ENDPOINT")
	override(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("AGENT_MAX_STEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Agent.MaxStep = n
		}
	}
}

func (c *Config) setDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.Search.Google.Num <= 0 || c.Search.Google.Num > 10 {
		c.Search.Google.Num = 10
	}
	if c.Tools.TavilyIntervalMS == 0 {
		c.Tools.TavilyIntervalMS = 1000
	}
	if c.Tools.GoogleIntervalMS == 0 {
		c.Tools.GoogleIntervalMS = 2000
	}
	if c.Tools.SearXNGIntervalMS == 0 {
		c.Tools.SearXNGIntervalMS = 2000
	}
	if c.Tools.ExtractIntervalMS == 0 {
		c.Tools.ExtractIntervalMS = 2000
	}
	if c.Tools.FetchTimeout <= 0 {
		c.Tools.FetchTimeout = 10
	}
	if c.Agent.MaxStep <= 0 {
		c.Agent.MaxStep = 40
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 60
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "tmp/data.db"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.Session.Timeout <= 0 {
		c.Session.Timeout = 900
	}
}

// Validate 检查运行 agent 所需的配置
func (c *Config) Validate() error {
	var errs []string
	if c.LLM.APIKey == "" {
		errs = append(errs, "llm.api_key (or OPENAI_API_KEY) is required")
	}
	if !c.HasSearchProvider() {
		errs = append(errs, "at least one search provider must be configured (tavily, google or searxng)")
	}
	if c.Search.Google.APIKey != "" && c.Search.Google.CSEID == "" {
		errs = append(errs, "search.google.cse_id (or GOOGLE_CSE_ID) is required with a google api key")
	}
	switch c.DB.Driver {
	case "sqlite", "postgres", "none":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q must be sqlite, postgres or none", c.DB.Driver))
	}
	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// HasSearchProvider 是否至少配置了一个搜索 provider
func (c *Config) HasSearchProvider() bool {
	return c.Search.Tavily.APIKey != "" ||
		(c.Search.Google.APIKey != "" && c.Search.Google.CSEID != "") ||
		c.Search.SearXNG.BaseURL != ""
}

// SessionTimeout 会话整体超时
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Session.Timeout) * time.Second
}

// DSN 返回 database/sql 的驱动名和连接串
func (d DBConfig) DSN() (driver, dsn string) {
	if d.Driver == "postgres" {
		return "postgres", fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			d.Host, d.Port, d.User, d.Password, d.Name)
	}
	return "sqlite", d.Path
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
