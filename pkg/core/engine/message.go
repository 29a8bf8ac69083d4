package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/LENAX/dag-engine/pkg/core/task"
)

// Status Task在一次运行中的最终状态
type Status string

const (
	StatusSucceeded Status = "succeeded" // 执行成功
	StatusFailed    Status = "failed"    // 执行失败（返回错误或panic）
	StatusSkipped   Status = "skipped"   // 上游失败，从未派发
)

// OutputMessage 单个Task的运行结果（对外导出）
type OutputMessage struct {
	TaskID   task.ID
	TaskName string
	Status   Status
	Output   *task.Output // 仅成功时有值
	Err      error        // 失败或跳过的原因
	// Cause 导致跳过的上游失败Task，非跳过为0
	Cause      task.ID
	StartedAt  time.Time // 跳过的Task为零值
	FinishedAt time.Time
}

// Duration 执行耗时，跳过的Task为0
func (m *OutputMessage) Duration() time.Duration {
	if m.StartedAt.IsZero() || m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// IsSuccess 是否成功
func (m *OutputMessage) IsSuccess() bool {
	return m.Status == StatusSucceeded
}

// ToErrorMessage 返回面向用户的错误信息，成功时为空
func (m *OutputMessage) ToErrorMessage() string {
	return task.ErrorMessage(m.Err)
}

func (m *OutputMessage) String() string {
	switch m.Status {
	case StatusSucceeded:
		return fmt.Sprintf("[%s] %s: %s", m.Status, m.TaskName, m.Output.String())
	default:
		return fmt.Sprintf("[%s] %s: %s", m.Status, m.TaskName, m.ToErrorMessage())
	}
}

// UpstreamFailedError 因上游失败而跳过（对外导出）
type UpstreamFailedError struct {
	Upstream     task.ID
	UpstreamName string
}

func (e *UpstreamFailedError) Error() string {
	return fmt.Sprintf("skipped: upstream task %d (%s) failed", e.Upstream, e.UpstreamName)
}

// AbortedError fail_fast 或 context 取消导致未派发（对外导出）
type AbortedError struct {
	Reason error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("skipped: run aborted: %v", e.Reason)
}

func (e *AbortedError) Unwrap() error { return e.Reason }

// Result 一次运行的完整结果（对外导出）
// 运行开始时注册的每个Task恰好对应一条消息，按Task ID升序
type Result struct {
	RunID      string
	DagName    string
	StartedAt  time.Time
	FinishedAt time.Time
	Messages   []*OutputMessage

	index map[task.ID]*OutputMessage
}

func newResult(runID, dagName string, messages map[task.ID]*OutputMessage) *Result {
	r := &Result{
		RunID:    runID,
		DagName:  dagName,
		Messages: make([]*OutputMessage, 0, len(messages)),
		index:    make(map[task.ID]*OutputMessage, len(messages)),
	}
	for id, m := range messages {
		r.Messages = append(r.Messages, m)
		r.index[id] = m
	}
	slices.SortFunc(r.Messages, func(a, b *OutputMessage) int {
		switch {
		case a.TaskID < b.TaskID:
			return -1
		case a.TaskID > b.TaskID:
			return 1
		}
		return 0
	})
	return r
}

// Len 消息数量
func (r *Result) Len() int {
	return len(r.Messages)
}

// Message 按Task ID获取消息
func (r *Result) Message(id task.ID) (*OutputMessage, bool) {
	m, ok := r.index[id]
	return m, ok
}

// Output 获取成功Task的输出
func (r *Result) Output(id task.ID) (*task.Output, bool) {
	m, ok := r.index[id]
	if !ok || m.Status != StatusSucceeded {
		return nil, false
	}
	return m.Output, true
}

func (r *Result) filter(status Status) []*OutputMessage {
	out := make([]*OutputMessage, 0)
	for _, m := range r.Messages {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}

// Succeeded 成功的消息
func (r *Result) Succeeded() []*OutputMessage { return r.filter(StatusSucceeded) }

// Failed 失败的消息
func (r *Result) Failed() []*OutputMessage { return r.filter(StatusFailed) }

// Skipped 被跳过的消息
func (r *Result) Skipped() []*OutputMessage { return r.filter(StatusSkipped) }

// OK 所有Task都成功
func (r *Result) OK() bool {
	for _, m := range r.Messages {
		if m.Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Duration 运行总耗时
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FirstError 第一个失败Task（按ID）的错误信息
func (r *Result) FirstError() string {
	for _, m := range r.Messages {
		if m.Status == StatusFailed {
			return m.ToErrorMessage()
		}
	}
	return ""
}
