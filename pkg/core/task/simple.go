package task

import (
	"context"

	"github.com/LENAX/dag-engine/pkg/utils"
)

// Simple 没有任何输入依赖的Task（对外导出）
type Simple struct {
	id     ID
	name   string
	action Action
}

// NewSimple 创建Simple Task并分配ID（对外导出）
func NewSimple(name string, action Action) *Simple {
	return &Simple{id: AllocID(), name: name, action: action}
}

// NewSimpleFunc 使用函数创建Simple Task
func NewSimpleFunc(name string, fn ActionFunc) *Simple {
	return NewSimple(name, fn)
}

func (s *Simple) ID() ID         { return s.id }
func (s *Simple) Name() string   { return s.name }
func (s *Simple) Inputs() []ID   { return nil }
func (s *Simple) Action() Action { return s.action }

// Run 执行Action，输入总是为空
func (s *Simple) Run(ctx context.Context, _ *Input, env *utils.EnvVar) (*Output, error) {
	if s.action == nil {
		return EmptyOutput(), nil
	}
	return s.action.Run(ctx, EmptyInput(), env)
}
