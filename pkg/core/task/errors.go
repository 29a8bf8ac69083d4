package task

import (
	"errors"
	"fmt"
)

// ToErrorMessage 可转换为面向用户错误信息的错误（对外导出）
type ToErrorMessage interface {
	ToErrorMessage() string
}

// ErrorMessage 提取错误信息，优先使用 ToErrorMessage（对外导出）
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var tm ToErrorMessage
	if errors.As(err, &tm) {
		return tm.ToErrorMessage()
	}
	return err.Error()
}

// ErrNoSteps Complex Task没有任何步骤
var ErrNoSteps = errors.New("complex task requires at least one step")

// PanicError Action执行时发生panic（对外导出）
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panic: %v", e.Value)
}
