package task

import (
	"context"
	"fmt"

	"github.com/LENAX/dag-engine/pkg/utils"
)

// Task 可被DAG调度的工作单元（对外导出）
// 任何实现了 ID/Inputs/Run 的类型都可以作为Task注册到DAG
type Task interface {
	// ID 返回Task的唯一标识
	ID() ID
	// Inputs 返回声明的输入引用（上游Task ID），顺序即Run收到的输入顺序
	Inputs() []ID
	// Run 在所有依赖完成后由Engine调用
	Run(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error)
}

// Named 可选接口，提供便于阅读的Task名称（对外导出）
type Named interface {
	Name() string
}

// NameOf 返回Task名称，未实现Named或名称为空时返回 task-<id>（对外导出）
func NameOf(t Task) string {
	if t == nil {
		return ""
	}
	if n, ok := t.(Named); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("task-%d", t.ID())
}
