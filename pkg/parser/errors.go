package parser

import "fmt"

// FileNotFound 任务定义文件不存在（对外导出）
type FileNotFound struct {
	Path string
	Err  error
}

func (e *FileNotFound) Error() string {
	return fmt.Sprintf("任务定义文件不存在: %s", e.Path)
}

func (e *FileNotFound) Unwrap() error { return e.Err }

// FileContentError 文件无法读取、不是合法YAML或没有任何任务（对外导出）
type FileContentError struct {
	Path string
	Msg  string
	Err  error
}

func (e *FileContentError) Error() string {
	where := e.Path
	if where == "" {
		where = "<inline>"
	}
	if e.Err != nil {
		return fmt.Sprintf("任务定义内容错误 %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("任务定义内容错误 %s: %s", where, e.Msg)
}

func (e *FileContentError) Unwrap() error { return e.Err }

// YamlTaskError 单个任务定义不合法（对外导出）
type YamlTaskError struct {
	TaskKey string
	Msg     string
}

func (e *YamlTaskError) Error() string {
	return fmt.Sprintf("任务 %s 定义错误: %s", e.TaskKey, e.Msg)
}
