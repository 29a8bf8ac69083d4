package engine

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser 支持秒级精度和 @every/@daily 等描述符
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronExpr 校验Cron表达式（对外导出）
func ValidateCronExpr(expr string) error {
	if expr == "" {
		return fmt.Errorf("Cron表达式不能为空")
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("Cron表达式无效 %q: %w", expr, err)
	}
	return nil
}

// CronEntry 已注册的定时项
type CronEntry struct {
	DagName  string
	CronExpr string
	Next     time.Time // 调度器未启动时为零值
	Prev     time.Time
}

// CronScheduler 定时调度器（对外导出）
// 按Cron表达式周期性执行Engine中已注册的DAG
type CronScheduler struct {
	cron    *cron.Cron
	engine  *Engine
	exprs   map[string]string       // DAG名称 -> Cron表达式
	entries map[string]cron.EntryID // DAG名称 -> cron.EntryID
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc

	// onResult 每次触发完成后的回调，可为nil
	onResult func(name string, r *Result, err error)
}

// NewCronScheduler 创建定时调度器（对外导出）
func NewCronScheduler(eng *Engine) *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron: cron.New(
			cron.WithParser(cronParser),
			// 同一DAG上一次触发尚未结束时跳过本次
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		engine:  eng,
		exprs:   make(map[string]string),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnResult 设置触发完成回调
func (cs *CronScheduler) OnResult(fn func(name string, r *Result, err error)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.onResult = fn
}

// Register 为已注册的DAG添加定时调度（对外导出）
func (cs *CronScheduler) Register(name, cronExpr string) error {
	if _, ok := cs.engine.Dag(name); !ok {
		return fmt.Errorf("%w: %s", ErrDagNotFound, name)
	}
	if err := ValidateCronExpr(cronExpr); err != nil {
		return fmt.Errorf("DAG %s: %w", name, err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.entries[name]; exists {
		return fmt.Errorf("DAG %s 已注册到定时调度器", name)
	}

	entryID, err := cs.cron.AddFunc(cronExpr, func() {
		cs.trigger(name)
	})
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}

	cs.exprs[name] = cronExpr
	cs.entries[name] = entryID

	log.Printf("✅ [Cron调度器] 已注册DAG: Name=%s, CronExpr=%s", name, cronExpr)
	return nil
}

// Unregister 取消DAG的定时调度（对外导出）
func (cs *CronScheduler) Unregister(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entryID, exists := cs.entries[name]
	if !exists {
		return fmt.Errorf("DAG %s 未注册到定时调度器", name)
	}

	cs.cron.Remove(entryID)
	delete(cs.exprs, name)
	delete(cs.entries, name)

	log.Printf("✅ [Cron调度器] 已取消注册DAG: Name=%s", name)
	return nil
}

// trigger 执行一次DAG
func (cs *CronScheduler) trigger(name string) {
	log.Printf("🕐 [Cron调度器] 触发DAG执行: Name=%s", name)

	r, err := cs.engine.RunDag(cs.ctx, name)
	if err != nil {
		log.Printf("❌ [Cron调度器] DAG执行失败: Name=%s, Error=%v", name, err)
	} else {
		log.Printf("✅ [Cron调度器] DAG执行结束: Name=%s, RunID=%s, 成功=%t", name, r.RunID, r.OK())
	}

	cs.mu.RLock()
	fn := cs.onResult
	cs.mu.RUnlock()
	if fn != nil {
		fn(name, r, err)
	}
}

// Start 启动定时调度器（对外导出）
func (cs *CronScheduler) Start() {
	cs.cron.Start()
	log.Println("✅ [Cron调度器] 已启动")
}

// Stop 停止定时调度器并等待正在执行的触发结束（对外导出）
func (cs *CronScheduler) Stop() {
	cs.cancel()
	<-cs.cron.Stop().Done()
	log.Println("✅ [Cron调度器] 已停止")
}

// Entries 按名称返回所有定时项（对外导出）
func (cs *CronScheduler) Entries() []CronEntry {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make([]CronEntry, 0, len(cs.entries))
	for name, id := range cs.entries {
		e := cs.cron.Entry(id)
		out = append(out, CronEntry{
			DagName:  name,
			CronExpr: cs.exprs[name],
			Next:     e.Next,
			Prev:     e.Prev,
		})
	}
	slices.SortFunc(out, func(a, b CronEntry) int {
		switch {
		case a.DagName < b.DagName:
			return -1
		case a.DagName > b.DagName:
			return 1
		}
		return 0
	})
	return out
}
