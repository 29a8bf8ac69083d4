package config

import (
	"strconv"
	"strings"
	"time"
)

// 失败策略
const (
	FailurePolicyContinue = "continue"  // 失败只影响其下游，其他分支继续
	FailurePolicyFailFast = "fail_fast" // 任意失败后不再派发新的Task
)

// EngineConfig 引擎框架配置（对外导出）
type EngineConfig struct {
	DagEngine struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
		} `yaml:"general"`
		Execution struct {
			// MaxConcurrency 同时执行的Task上限，0表示不限制
			MaxConcurrency     int           `yaml:"max_concurrency"`
			FailurePolicy      string        `yaml:"failure_policy"`
			DefaultTaskTimeout time.Duration `yaml:"default_task_timeout"`
		} `yaml:"execution"`
		Storage struct {
			// Database 为空表示不记录运行历史
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
			} `yaml:"database"`
			Cache struct {
				Enabled       bool          `yaml:"enabled"`
				ResultTTL     time.Duration `yaml:"result_ttl"`
				CleanInterval time.Duration `yaml:"clean_interval"`
			} `yaml:"cache"`
		} `yaml:"storage"`
		Events struct {
			Enabled    bool `yaml:"enabled"`
			BufferSize int  `yaml:"buffer_size"`
		} `yaml:"events"`
		Notifications struct {
			Email EmailNotification `yaml:"email"`
		} `yaml:"notifications"`
		Server struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"server"`
	} `yaml:"dag-engine"`
}

// EmailNotification 邮件通知配置
type EmailNotification struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	// Events 触发通知的事件类型，为空时只通知 run.finished
	Events       []string `yaml:"events"`
	OnlyFailures bool     `yaml:"only_failures"`
}

// Params 转换为邮件插件的初始化参数
func (n EmailNotification) Params() map[string]string {
	params := map[string]string{
		"smtp_host": n.SMTPHost,
		"username":  n.Username,
		"password":  n.Password,
		"from":      n.From,
		"to":        strings.Join(n.To, ","),
	}
	if n.SMTPPort > 0 {
		params["smtp_port"] = strconv.Itoa(n.SMTPPort)
	}
	return params
}

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.DagEngine.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.DagEngine.Storage.Database.DSN
}

// HistoryEnabled 是否配置了运行历史数据库
func (c *EngineConfig) HistoryEnabled() bool {
	return c.DagEngine.Storage.Database.Type != ""
}

// GetMaxConcurrency 获取并发上限，0表示不限制
func (c *EngineConfig) GetMaxConcurrency() int {
	if c.DagEngine.Execution.MaxConcurrency < 0 {
		return 0
	}
	return c.DagEngine.Execution.MaxConcurrency
}

// IsFailFast 失败策略是否为 fail_fast
func (c *EngineConfig) IsFailFast() bool {
	return c.DagEngine.Execution.FailurePolicy == FailurePolicyFailFast
}

// IsDebug 是否开启debug日志
func (c *EngineConfig) IsDebug() bool {
	return c.DagEngine.General.LogLevel == "debug"
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	// General默认值
	if c.DagEngine.General.InstanceName == "" {
		c.DagEngine.General.InstanceName = "dag-engine"
	}
	if c.DagEngine.General.LogLevel == "" {
		c.DagEngine.General.LogLevel = "info"
	}

	// Execution默认值
	if c.DagEngine.Execution.FailurePolicy == "" {
		c.DagEngine.Execution.FailurePolicy = FailurePolicyContinue
	}

	// Database默认值
	if c.DagEngine.Storage.Database.MaxOpenConns <= 0 {
		c.DagEngine.Storage.Database.MaxOpenConns = 10
	}
	if c.DagEngine.Storage.Database.MaxIdleConns <= 0 {
		c.DagEngine.Storage.Database.MaxIdleConns = 5
	}
	if c.DagEngine.Storage.Database.ConnMaxLifetime <= 0 {
		c.DagEngine.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}

	// Cache默认值
	if c.DagEngine.Storage.Cache.ResultTTL <= 0 {
		c.DagEngine.Storage.Cache.ResultTTL = 1 * time.Hour
	}
	if c.DagEngine.Storage.Cache.CleanInterval <= 0 {
		c.DagEngine.Storage.Cache.CleanInterval = 10 * time.Minute
	}

	// Events默认值
	if c.DagEngine.Events.BufferSize <= 0 {
		c.DagEngine.Events.BufferSize = 256
	}

	// Notifications默认值
	if len(c.DagEngine.Notifications.Email.Events) == 0 {
		c.DagEngine.Notifications.Email.Events = []string{"run.finished"}
	}

	// Server默认值
	if c.DagEngine.Server.Host == "" {
		c.DagEngine.Server.Host = "0.0.0.0"
	}
	if c.DagEngine.Server.Port <= 0 {
		c.DagEngine.Server.Port = 8080
	}
	if c.DagEngine.Server.ReadTimeout <= 0 {
		c.DagEngine.Server.ReadTimeout = 30 * time.Second
	}
	if c.DagEngine.Server.WriteTimeout <= 0 {
		c.DagEngine.Server.WriteTimeout = 5 * time.Minute
	}
}
