package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	istorage "github.com/LENAX/dag-engine/internal/storage"
	"github.com/LENAX/dag-engine/pkg/config"
	"github.com/LENAX/dag-engine/pkg/core/cache"
	"github.com/LENAX/dag-engine/pkg/core/dag"
	"github.com/LENAX/dag-engine/pkg/core/events"
	"github.com/LENAX/dag-engine/pkg/storage"
	"github.com/LENAX/dag-engine/pkg/utils"
)

// ErrDagNotFound 指定名称的DAG未注册
var ErrDagNotFound = errors.New("dag not found")

// Engine DAG执行引擎（对外导出）
// Engine本身无运行状态，同一个Engine可并发执行多个Dag，同一个Dag也可重复执行
type Engine struct {
	concurrency int
	policy      FailurePolicy
	env         *utils.EnvVar
	verbose     bool

	bus       *events.Bus
	results   cache.ResultCache
	resultTTL time.Duration
	history   storage.RunRepository

	mu    sync.RWMutex
	dags  map[string]*dag.Dag
	names []string // 注册顺序

	// closers 由 NewFromConfig 创建、需要随 Engine 关闭的资源
	closers []io.Closer
}

// New 创建Engine（对外导出）
func New(opts ...Option) *Engine {
	e := &Engine{
		policy: ContinueIndependent,
		dags:   make(map[string]*dag.Dag),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.env == nil {
		e.env = utils.NewEnvVar()
	}
	return e
}

// NewFromConfig 根据框架配置创建Engine（对外导出）
// 按配置打开运行历史数据库、结果缓存和事件总线，Close时一并释放
func NewFromConfig(cfg *config.EngineConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.ValidateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}

	base := []Option{
		WithConcurrency(cfg.GetMaxConcurrency()),
		WithVerbose(cfg.IsDebug()),
	}
	if cfg.IsFailFast() {
		base = append(base, WithFailurePolicy(FailFast))
	}

	var closers []io.Closer
	if cfg.HistoryEnabled() {
		db := cfg.DagEngine.Storage.Database
		repo, err := istorage.NewRunRepository(db.Type, db.DSN, istorage.PoolOptions{
			MaxOpenConns:    db.MaxOpenConns,
			MaxIdleConns:    db.MaxIdleConns,
			ConnMaxLifetime: db.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("创建运行历史存储失败: %w", err)
		}
		base = append(base, WithRunRepository(repo))
		closers = append(closers, repo)
	}
	if cfg.DagEngine.Storage.Cache.Enabled {
		c := cache.NewMemoryResultCacheWithInterval(cfg.DagEngine.Storage.Cache.CleanInterval)
		base = append(base, WithResultCache(c, cfg.DagEngine.Storage.Cache.ResultTTL))
		closers = append(closers, c)
	}
	email := cfg.DagEngine.Notifications.Email
	if cfg.DagEngine.Events.Enabled || email.Enabled {
		bus := events.NewBus(events.BusOptions{
			BufferSize: cfg.DagEngine.Events.BufferSize,
			Debug:      cfg.IsDebug(),
		})
		base = append(base, WithEventBus(bus))
		closers = append(closers, bus)

		if email.Enabled {
			stop, err := attachNotifications(bus, email)
			if err != nil {
				closeAll(closers)
				return nil, err
			}
			// 先于总线关闭
			closers = append(closers, stop)
		}
	}

	e := New(append(base, opts...)...)
	e.closers = closers
	log.Printf("✅ [Engine] 已创建: Instance=%s, 并发上限=%d, 失败策略=%s",
		cfg.DagEngine.General.InstanceName, e.concurrency, e.policy)
	return e, nil
}

// Close 释放 NewFromConfig 创建的资源
func (e *Engine) Close() error {
	e.mu.Lock()
	closers := e.closers
	e.closers = nil
	e.mu.Unlock()

	return closeAll(closers)
}

// closeAll 逆序关闭资源
func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Concurrency 并发上限，0表示不限制
func (e *Engine) Concurrency() int { return e.concurrency }

// Policy 失败策略
func (e *Engine) Policy() FailurePolicy { return e.policy }

// EventBus 事件总线，可能为nil
func (e *Engine) EventBus() *events.Bus { return e.bus }

// History 运行历史存储，可能为nil
func (e *Engine) History() storage.RunRepository { return e.history }

// Run 执行Dag直到所有Task都有结果（对外导出）
// 结构错误返回 *dag.DagError 且不执行任何Task；否则返回覆盖全部Task的Result
func (e *Engine) Run(ctx context.Context, d *dag.Dag) (*Result, error) {
	return e.run(ctx, "", d)
}

func (e *Engine) run(ctx context.Context, name string, d *dag.Dag) (*Result, error) {
	if d == nil {
		return nil, &dag.DagError{Kind: dag.ErrInvalidTask, Msg: "nil dag"}
	}
	if err := d.Validate(); err != nil {
		log.Printf("❌ [Engine] DAG校验失败: Dag=%s, Error=%v", name, err)
		return nil, err
	}

	plan, err := newRunPlan(d)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	e.publish(ctx, events.NewEvent(events.EventRunStarted, runID, name).
		WithMetadata("tasks", fmt.Sprint(len(plan.ids))))
	if e.verbose {
		log.Printf("🚀 [Engine] 开始运行: RunID=%s, Dag=%s, Task数=%d", runID, name, len(plan.ids))
	}

	st := newRunState(e, ctx, runID, name, plan)
	messages, err := st.execute()
	if err != nil {
		log.Printf("❌ [Engine] 运行中断: RunID=%s, Error=%v", runID, err)
		return nil, err
	}

	result := newResult(runID, name, messages)
	result.StartedAt = started
	result.FinishedAt = time.Now()

	finished := events.NewEvent(events.EventRunFinished, runID, name).
		WithMetadata("succeeded", fmt.Sprint(len(result.Succeeded()))).
		WithMetadata("failed", fmt.Sprint(len(result.Failed()))).
		WithMetadata("skipped", fmt.Sprint(len(result.Skipped())))
	if !result.OK() {
		finished.WithError(result.FirstError())
	}
	e.publish(ctx, finished)
	e.record(ctx, result)

	if result.OK() {
		log.Printf("✅ [Engine] 运行完成: RunID=%s, Dag=%s, Task数=%d, 耗时=%s",
			runID, name, result.Len(), result.Duration())
	} else {
		log.Printf("⚠️ [Engine] 运行完成但存在失败: RunID=%s, Dag=%s, 失败=%d, 跳过=%d",
			runID, name, len(result.Failed()), len(result.Skipped()))
	}
	return result, nil
}

// publish 发布事件，失败只记录日志
func (e *Engine) publish(ctx context.Context, event *events.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, event); err != nil {
		log.Printf("⚠️ [Engine] 发布事件失败: Type=%s, Error=%v", event.Type, err)
	}
}

// record 写入运行历史和结果缓存，失败只记录日志
func (e *Engine) record(ctx context.Context, result *Result) {
	if e.history != nil {
		// 运行本身的ctx可能已取消，历史记录仍需写入
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := e.history.SaveRun(saveCtx, ToRunRecord(result)); err != nil {
			log.Printf("⚠️ [Engine] 保存运行记录失败: RunID=%s, Error=%v", result.RunID, err)
		}
	}
	if e.results != nil && result.DagName != "" {
		if err := e.results.Set(result.DagName, result, e.resultTTL); err != nil {
			log.Printf("⚠️ [Engine] 缓存运行结果失败: Dag=%s, Error=%v", result.DagName, err)
		}
	}
}
