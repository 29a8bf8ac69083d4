package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/LENAX/dag-engine/pkg/core/dag"
)

// AppendDag 以名称注册Dag（对外导出）
func (e *Engine) AppendDag(name string, d *dag.Dag) error {
	if name == "" {
		return fmt.Errorf("DAG名称不能为空")
	}
	if d == nil {
		return fmt.Errorf("DAG %s 不能为nil", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.dags[name]; exists {
		return fmt.Errorf("DAG %s 已注册", name)
	}
	e.dags[name] = d
	e.names = append(e.names, name)
	return nil
}

// RemoveDag 取消注册
func (e *Engine) RemoveDag(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.dags[name]; !exists {
		return false
	}
	delete(e.dags, name)
	e.names = slices.DeleteFunc(e.names, func(n string) bool { return n == name })
	if e.results != nil {
		_ = e.results.Delete(name)
	}
	return true
}

// Dag 按名称获取已注册的Dag
func (e *Engine) Dag(name string) (*dag.Dag, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.dags[name]
	return d, ok
}

// DagNames 按注册顺序返回所有名称
func (e *Engine) DagNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.names)
}

// RunDag 执行已注册的Dag（对外导出）
func (e *Engine) RunDag(ctx context.Context, name string) (*Result, error) {
	d, ok := e.Dag(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDagNotFound, name)
	}
	return e.run(ctx, name, d)
}

// RunSequential 按注册顺序依次执行所有Dag（对外导出）
// 遇到结构错误即停止，返回已完成的结果和该错误
func (e *Engine) RunSequential(ctx context.Context) ([]*Result, error) {
	names := e.DagNames()
	results := make([]*Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := e.RunDag(ctx, name)
		if err != nil {
			return results, fmt.Errorf("DAG %s: %w", name, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// LastResult 获取已注册Dag最近一次的运行结果（需要配置结果缓存）
func (e *Engine) LastResult(name string) (*Result, bool) {
	if e.results == nil {
		return nil, false
	}
	v, ok := e.results.Get(name)
	if !ok {
		return nil, false
	}
	r, ok := v.(*Result)
	return r, ok
}
