package config

import (
	"fmt"
)

// validEventTypes 可用于通知的事件类型
var validEventTypes = map[string]bool{
	"run.started":    true,
	"run.finished":   true,
	"task.started":   true,
	"task.succeeded": true,
	"task.failed":    true,
	"task.skipped":   true,
}

// ValidateEngineConfig 校验框架配置合法性
func ValidateEngineConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}

	// 校验General
	if cfg.DagEngine.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	if cfg.DagEngine.General.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[cfg.DagEngine.General.LogLevel] {
			return fmt.Errorf("log_level必须是debug/info/warn/error之一")
		}
	}

	// 校验Execution
	if cfg.DagEngine.Execution.MaxConcurrency < 0 {
		return fmt.Errorf("execution.max_concurrency不能为负数")
	}
	switch cfg.DagEngine.Execution.FailurePolicy {
	case "", FailurePolicyContinue, FailurePolicyFailFast:
	default:
		return fmt.Errorf("execution.failure_policy必须是continue/fail_fast之一")
	}
	if cfg.DagEngine.Execution.DefaultTaskTimeout < 0 {
		return fmt.Errorf("execution.default_task_timeout不能为负数")
	}

	// 校验Storage.Database（可选）
	db := cfg.DagEngine.Storage.Database
	if db.Type != "" {
		validDBTypes := map[string]bool{
			"sqlite":     true,
			"postgres":   true,
			"postgresql": true,
			"mysql":      true,
		}
		if !validDBTypes[db.Type] {
			return fmt.Errorf("database.type必须是sqlite/postgres/mysql之一")
		}
		if db.DSN == "" {
			return fmt.Errorf("database.dsn不能为空")
		}
		if db.MaxIdleConns < 0 {
			return fmt.Errorf("database.max_idle_conns不能为负数")
		}
	}

	// 校验Notifications（可选）
	if email := cfg.DagEngine.Notifications.Email; email.Enabled {
		if email.SMTPHost == "" {
			return fmt.Errorf("notifications.email.smtp_host不能为空")
		}
		if email.From == "" {
			return fmt.Errorf("notifications.email.from不能为空")
		}
		if len(email.To) == 0 {
			return fmt.Errorf("notifications.email.to不能为空")
		}
		if email.SMTPPort < 0 || email.SMTPPort > 65535 {
			return fmt.Errorf("notifications.email.smtp_port必须在0-65535之间")
		}
		for _, ev := range email.Events {
			if !validEventTypes[ev] {
				return fmt.Errorf("notifications.email.events包含未知事件: %s", ev)
			}
		}
	}

	// 校验Server
	if port := cfg.DagEngine.Server.Port; port < 0 || port > 65535 {
		return fmt.Errorf("server.port必须在0-65535之间")
	}

	return nil
}
