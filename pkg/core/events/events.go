// Package events 提供DAG运行生命周期事件的发布与订阅
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// 运行级事件
	EventRunStarted  EventType = "run.started"  // 运行开始
	EventRunFinished EventType = "run.finished" // 运行结束

	// Task级事件
	EventTaskStarted   EventType = "task.started"   // Task开始执行
	EventTaskSucceeded EventType = "task.succeeded" // Task执行成功
	EventTaskFailed    EventType = "task.failed"    // Task执行失败
	EventTaskSkipped   EventType = "task.skipped"   // 上游失败，Task被跳过
)

// AllEventTypes 所有事件类型
var AllEventTypes = []EventType{
	EventRunStarted,
	EventRunFinished,
	EventTaskStarted,
	EventTaskSucceeded,
	EventTaskFailed,
	EventTaskSkipped,
}

// Event 生命周期事件
type Event struct {
	ID        string            `json:"id"`                  // 事件ID（UUID）
	Type      EventType         `json:"type"`                // 事件类型
	RunID     string            `json:"run_id"`              // 运行ID
	DagName   string            `json:"dag_name,omitempty"`  // DAG名称（注册的DAG才有）
	TaskID    uint64            `json:"task_id,omitempty"`   // Task ID，运行级事件为0
	TaskName  string            `json:"task_name,omitempty"` // Task名称
	Timestamp time.Time         `json:"timestamp"`           // 事件时间
	Error     string            `json:"error,omitempty"`     // 错误信息（失败/跳过）
	Metadata  map[string]string `json:"metadata,omitempty"`  // 元数据
}

// NewEvent 创建运行级事件
func NewEvent(eventType EventType, runID, dagName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RunID:     runID,
		DagName:   dagName,
		Timestamp: time.Now(),
	}
}

// NewTaskEvent 创建Task级事件
func NewTaskEvent(eventType EventType, runID, dagName string, taskID uint64, taskName string) *Event {
	e := NewEvent(eventType, runID, dagName)
	e.TaskID = taskID
	e.TaskName = taskName
	return e
}

// WithError 设置错误信息
func (e *Event) WithError(msg string) *Event {
	e.Error = msg
	return e
}

// WithMetadata 添加元数据
func (e *Event) WithMetadata(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsTerminal 是否是Task的终态事件
func (e *Event) IsTerminal() bool {
	switch e.Type {
	case EventTaskSucceeded, EventTaskFailed, EventTaskSkipped:
		return true
	}
	return false
}
