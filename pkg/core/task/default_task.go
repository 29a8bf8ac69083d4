package task

import (
	"context"
	"sync"

	"github.com/LENAX/dag-engine/pkg/utils"
)

// DefaultTask Action与输入连接的通用组合（对外导出）
// 构建阶段可调整输入，交给Engine执行后不应再修改
type DefaultTask struct {
	mu     sync.RWMutex
	id     ID
	name   string
	inputs []ID
	action Action
}

// NewDefaultTask 创建DefaultTask并分配ID（对外导出）
func NewDefaultTask(name string, action Action) *DefaultTask {
	return &DefaultTask{id: AllocID(), name: name, action: action}
}

// NewDefaultTaskWithFunc 使用函数创建DefaultTask（对外导出）
func NewDefaultTaskWithFunc(name string, fn ActionFunc) *DefaultTask {
	return NewDefaultTask(name, fn)
}

func (t *DefaultTask) ID() ID       { return t.id }
func (t *DefaultTask) Name() string { return t.name }

// Inputs 返回输入引用的副本
func (t *DefaultTask) Inputs() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]ID(nil), t.inputs...)
}

// SetPredecessors 以上游Task设置输入，顺序即输入顺序（对外导出）
func (t *DefaultTask) SetPredecessors(tasks ...Task) *DefaultTask {
	ids := make([]ID, 0, len(tasks))
	for _, p := range tasks {
		if p != nil {
			ids = append(ids, p.ID())
		}
	}
	return t.SetInputs(ids...)
}

// SetInputs 直接以ID设置输入（对外导出）
func (t *DefaultTask) SetInputs(ids ...ID) *DefaultTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputs = append([]ID(nil), ids...)
	return t
}

// SetAction 替换Action
func (t *DefaultTask) SetAction(action Action) *DefaultTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.action = action
	return t
}

// Action 返回当前Action
func (t *DefaultTask) Action() Action {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.action
}

// Run 执行Action
func (t *DefaultTask) Run(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
	action := t.Action()
	if action == nil {
		return EmptyOutput(), nil
	}
	return action.Run(ctx, in, env)
}
