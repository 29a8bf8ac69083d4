package dto

import "time"

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// DagSummary 已注册DAG的摘要信息
type DagSummary struct {
	Name      string `json:"name"`
	TaskCount int    `json:"task_count"`
	CronExpr  string `json:"cron_expr,omitempty"`
}

// DagDetail DAG详细信息
type DagDetail struct {
	DagSummary
	Tasks  []TaskSummary `json:"tasks"`
	Levels [][]uint64    `json:"levels"` // 拓扑层级，同层Task可并发执行
}

// TaskSummary Task摘要信息
type TaskSummary struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	Dependencies []uint64 `json:"dependencies,omitempty"`
	Dependents   []uint64 `json:"dependents,omitempty"`
}

// RunResult 一次运行的结果
type RunResult struct {
	RunID      string       `json:"run_id"`
	DagName    string       `json:"dag_name,omitempty"`
	Status     string       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Duration   string       `json:"duration"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Tasks      []TaskResult `json:"tasks"`
}

// TaskResult 单个Task的结果
type TaskResult struct {
	TaskID       uint64     `json:"task_id"`
	TaskName     string     `json:"task_name"`
	Status       string     `json:"status"`
	Output       string     `json:"output,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Duration     string     `json:"duration,omitempty"`
}

// RunSummary 运行历史摘要
type RunSummary struct {
	RunID        string    `json:"run_id"`
	DagName      string    `json:"dag_name,omitempty"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	Duration     string    `json:"duration"`
	TaskTotal    int       `json:"task_total"`
	TaskFailed   int       `json:"task_failed"`
	TaskSkipped  int       `json:"task_skipped"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}
