package conf

type Bootstrap struct {
	Server *Server `json:"server"`
	Radar  *Radar  `json:"radar"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
	// MaxUploadMB 简历上传大小上限
	MaxUploadMB int32 `json:"max_upload_mb"`
}

// Radar job_radar 引擎相关配置
type Radar struct {
	// ConfigPath 引擎 YAML 配置（LLM、搜索、存储等）
	ConfigPath     string `json:"config_path"`
	RecentSessions int32  `json:"recent_sessions"`
}
