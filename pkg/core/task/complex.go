package task

import (
	"context"
	"fmt"

	"github.com/LENAX/dag-engine/pkg/utils"
)

// Complex 显式声明依赖、由多个步骤组成的Task（对外导出）
// 第一步接收上游输入，之后每一步只接收前一步的输出
type Complex struct {
	id    ID
	name  string
	deps  []ID
	steps []Action
}

// NewComplex 创建Complex Task（对外导出）
// 至少需要一个步骤
func NewComplex(name string, deps []ID, steps ...Action) (*Complex, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoSteps)
	}
	for i, step := range steps {
		if step == nil {
			return nil, fmt.Errorf("%s: step %d is nil", name, i)
		}
	}
	return &Complex{
		id:    AllocID(),
		name:  name,
		deps:  append([]ID(nil), deps...),
		steps: append([]Action(nil), steps...),
	}, nil
}

func (c *Complex) ID() ID       { return c.id }
func (c *Complex) Name() string { return c.name }

// Inputs 返回依赖副本，调用方修改不影响Task
func (c *Complex) Inputs() []ID { return append([]ID(nil), c.deps...) }

// Steps 返回步骤数量
func (c *Complex) Steps() int { return len(c.steps) }

// Run 依次执行所有步骤，任意一步失败即返回
func (c *Complex) Run(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
	current := in
	var out *Output
	for i, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		out, err = step.Run(ctx, current, env)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		current = NewInput(InputItem{From: c.id, Content: out.Content()})
	}
	if out == nil {
		out = EmptyOutput()
	}
	return out, nil
}
