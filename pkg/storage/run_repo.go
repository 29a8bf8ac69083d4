package storage

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run record not found")

// 运行状态
const (
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// RunRecord 一次DAG运行的结果记录（对外导出）
// 只记录运行结果，不保存图结构
type RunRecord struct {
	ID           string        // 运行ID（UUID）
	DagName      string        // DAG名称，未注册的DAG为空
	Status       string        // SUCCESS / FAILED
	StartedAt    time.Time     // 开始时间
	FinishedAt   time.Time     // 结束时间
	TaskTotal    int           // Task总数
	TaskFailed   int           // 失败数
	TaskSkipped  int           // 跳过数
	ErrorMessage string        // 第一个失败Task的错误信息
	Tasks        []*TaskRecord // Task结果，GetRun时填充
}

// Duration 运行耗时
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// TaskRecord 单个Task的结果记录（对外导出）
type TaskRecord struct {
	RunID      string
	TaskID     uint64
	TaskName   string
	Status     string // succeeded / failed / skipped
	Output     string // 输出的字符串形式
	ErrorMsg   string
	StartedAt  time.Time // 跳过的Task为零值
	FinishedAt time.Time
}

// RunRepository 运行历史存储接口（对外导出）
type RunRepository interface {
	// SaveRun 保存运行记录及其Task记录（存在则覆盖）
	SaveRun(ctx context.Context, run *RunRecord) error
	// GetRun 按ID查询运行记录，包含Task记录；不存在返回 ErrRunNotFound
	GetRun(ctx context.Context, id string) (*RunRecord, error)
	// ListRuns 按开始时间倒序列出运行记录（不含Task记录），dagName为空表示全部
	ListRuns(ctx context.Context, dagName string, limit int) ([]*RunRecord, error)
	// Close 关闭底层连接
	Close() error
}
