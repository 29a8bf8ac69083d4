package task

import (
	"context"

	"github.com/LENAX/dag-engine/pkg/utils"
)

// Action Task的实际执行逻辑（对外导出）
type Action interface {
	Run(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error)
}

// ActionFunc 函数适配器，使普通函数满足Action接口（对外导出）
type ActionFunc func(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error)

// Run 调用函数本身
func (f ActionFunc) Run(ctx context.Context, in *Input, env *utils.EnvVar) (*Output, error) {
	return f(ctx, in, env)
}
