package engine

import (
	"time"

	"github.com/LENAX/dag-engine/pkg/core/cache"
	"github.com/LENAX/dag-engine/pkg/core/events"
	"github.com/LENAX/dag-engine/pkg/storage"
	"github.com/LENAX/dag-engine/pkg/utils"
)

// FailurePolicy 失败处理策略
type FailurePolicy int

const (
	// ContinueIndependent 失败只跳过其传递下游，无关分支继续执行（默认）
	ContinueIndependent FailurePolicy = iota
	// FailFast 任意失败后不再派发新的Task，已在执行的Task正常结束
	FailFast
)

func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "continue"
}

// Option Engine选项
type Option func(*Engine)

// WithConcurrency 设置同时执行的Task上限，0表示不限制
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.concurrency = n
	}
}

// WithEnv 设置传递给每个Task的环境变量
func WithEnv(env *utils.EnvVar) Option {
	return func(e *Engine) {
		e.env = env
	}
}

// WithFailurePolicy 设置失败策略
func WithFailurePolicy(p FailurePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithEventBus 运行时向事件总线发布生命周期事件
func WithEventBus(bus *events.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithResultCache 缓存每个注册DAG最近一次的运行结果，ttl<=0表示不过期
func WithResultCache(c cache.ResultCache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.results = c
		e.resultTTL = ttl
	}
}

// WithRunRepository 运行结束后保存运行记录
func WithRunRepository(repo storage.RunRepository) Option {
	return func(e *Engine) {
		e.history = repo
	}
}

// WithVerbose 打印每个Task的派发和完成日志
func WithVerbose(verbose bool) Option {
	return func(e *Engine) {
		e.verbose = verbose
	}
}
