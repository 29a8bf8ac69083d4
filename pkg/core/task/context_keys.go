package task

import "context"

// context key类型，用于类型安全的context.Value访问
type contextKey string

const (
	// TaskIDKey Task ID在context中的key
	TaskIDKey contextKey = "task.id"
	// TaskNameKey Task名称在context中的key
	TaskNameKey contextKey = "task.name"
	// RunIDKey 本次运行ID在context中的key
	RunIDKey contextKey = "run.id"
	// DagNameKey DAG名称在context中的key
	DagNameKey contextKey = "dag.name"
)

// WithTaskID 将Task ID添加到context中（对外导出）
func WithTaskID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, TaskIDKey, id)
}

// GetTaskID 从context中获取Task ID（对外导出）
func GetTaskID(ctx context.Context) ID {
	if id, ok := ctx.Value(TaskIDKey).(ID); ok {
		return id
	}
	return 0
}

// WithTaskName 将Task名称添加到context中（对外导出）
func WithTaskName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, TaskNameKey, name)
}

// GetTaskName 从context中获取Task名称（对外导出）
func GetTaskName(ctx context.Context) string {
	if name, ok := ctx.Value(TaskNameKey).(string); ok {
		return name
	}
	return ""
}

// WithRunID 将运行ID添加到context中（对外导出）
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID 从context中获取运行ID（对外导出）
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// WithDagName 将DAG名称添加到context中（对外导出）
func WithDagName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, DagNameKey, name)
}

// GetDagName 从context中获取DAG名称（对外导出）
func GetDagName(ctx context.Context) string {
	if name, ok := ctx.Value(DagNameKey).(string); ok {
		return name
	}
	return ""
}
