package utils

import "fmt"

// ParseError 配置解析错误（对外导出）
// 在任务定义加载阶段产生，早于DAG构建
type ParseError struct {
	Msg string
	Err error
}

// NewParseError 创建ParseError
func NewParseError(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// WrapParseError 用ParseError包装底层错误
func WrapParseError(err error, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("解析错误: %s: %v", e.Msg, e.Err)
	}
	return "解析错误: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }
