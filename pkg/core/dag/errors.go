package dag

import (
	"errors"
	"fmt"
)

// DagError 的错误类型（对外导出），可用 errors.Is 判断
var (
	ErrDuplicateID = errors.New("duplicate task id")
	ErrUnknownTask = errors.New("unknown task")
	ErrCycle       = errors.New("cycle detected")
	ErrInvalidTask = errors.New("invalid task")
	ErrScheduling  = errors.New("scheduling fault")
)

// DagError 图结构错误（对外导出）
// 只要返回了DagError，对应的操作就没有产生任何效果
type DagError struct {
	Kind error
	Msg  string
}

func (e *DagError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *DagError) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &DagError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsDagError 判断err链中是否有DagError（对外导出）
func IsDagError(err error) bool {
	var de *DagError
	return errors.As(err, &de)
}
