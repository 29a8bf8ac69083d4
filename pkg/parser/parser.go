// Package parser 从任务定义文件构建Task
package parser

import (
	"github.com/LENAX/dag-engine/pkg/core/task"
	"github.com/LENAX/dag-engine/pkg/utils"
)

// Parser 任务定义解析器（对外导出）
// 返回的Task已分配ID，输入引用已转换为上游Task的ID
type Parser interface {
	ParseTasks(path string, env *utils.EnvVar) ([]task.Task, error)
}
