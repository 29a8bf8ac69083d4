package engine

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"slices"
	"time"

	"github.com/LENAX/dag-engine/pkg/core/dag"
	"github.com/LENAX/dag-engine/pkg/core/events"
	"github.com/LENAX/dag-engine/pkg/core/task"
)

// runPlan 运行开始时从Dag复制的只读拓扑，所有worker共享
type runPlan struct {
	ids      []task.ID
	tasks    map[task.ID]task.Task
	names    map[task.ID]string
	children map[task.ID][]task.ID
	// inputs 每个Task的输入来源：先是声明的输入，再是其余直接依赖（升序）
	inputs map[task.ID][]task.ID
}

func newRunPlan(d *dag.Dag) (*runPlan, error) {
	snap := d.Snapshot()
	p := &runPlan{
		ids:      snap.IDs,
		tasks:    make(map[task.ID]task.Task, len(snap.IDs)),
		names:    make(map[task.ID]string, len(snap.IDs)),
		children: snap.Children,
		inputs:   make(map[task.ID][]task.ID, len(snap.IDs)),
	}
	for _, id := range snap.IDs {
		t, ok := d.Task(id)
		if !ok {
			return nil, &dag.DagError{Kind: dag.ErrScheduling, Msg: fmt.Sprintf("task %d vanished during planning", id)}
		}
		p.tasks[id] = t
		p.names[id] = task.NameOf(t)
		p.inputs[id] = orderInputs(t.Inputs(), snap.Parents[id])
	}
	return p, nil
}

func orderInputs(declared, parents []task.ID) []task.ID {
	out := make([]task.ID, 0, len(parents))
	seen := make(map[task.ID]struct{}, len(parents))
	for _, id := range declared {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range parents {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// completion worker执行完成后发给协调者的通知
type completion struct {
	id       task.ID
	output   *task.Output
	err      error
	started  time.Time
	finished time.Time
}

// runState 单次运行的可变状态，只由协调goroutine读写
type runState struct {
	engine  *Engine
	ctx     context.Context
	runID   string
	dagName string
	plan    *runPlan

	inDegree map[task.ID]int
	ready    []task.ID
	outputs  map[task.ID]*task.Output
	messages map[task.ID]*OutputMessage
	running  int
	abortErr error

	done       chan completion
	workerPool chan struct{} // nil 表示不限制并发
}

func newRunState(e *Engine, ctx context.Context, runID, dagName string, plan *runPlan) *runState {
	st := &runState{
		engine:   e,
		ctx:      ctx,
		runID:    runID,
		dagName:  dagName,
		plan:     plan,
		inDegree: make(map[task.ID]int, len(plan.ids)),
		outputs:  make(map[task.ID]*task.Output, len(plan.ids)),
		messages: make(map[task.ID]*OutputMessage, len(plan.ids)),
		// 容量等于Task数，worker发送完成通知时永不阻塞
		done: make(chan completion, len(plan.ids)),
	}
	if e.concurrency > 0 {
		st.workerPool = make(chan struct{}, e.concurrency)
	}
	for _, id := range plan.ids {
		st.inDegree[id] = len(plan.inputs[id])
		if st.inDegree[id] == 0 {
			st.ready = append(st.ready, id)
		}
	}
	return st
}

// execute 协调循环：派发就绪Task，等待完成，更新下游入度
func (st *runState) execute() (map[task.ID]*OutputMessage, error) {
	total := len(st.plan.ids)
	for len(st.messages) < total {
		if st.abortErr == nil {
			if err := st.ctx.Err(); err != nil {
				st.abortErr = err
			}
		}
		if st.abortErr == nil {
			st.dispatchReady()
		}

		if st.running == 0 {
			if st.abortErr != nil {
				st.skipRemaining()
				break
			}
			// 没有在执行的Task，却仍有Task既未完成也未就绪
			st.drain()
			return nil, &dag.DagError{
				Kind: dag.ErrScheduling,
				Msg:  fmt.Sprintf("%d of %d tasks can never become ready", total-len(st.messages), total),
			}
		}

		c := <-st.done
		st.running--
		st.complete(c)
	}
	return st.messages, nil
}

// dispatchReady 在并发上限内派发所有就绪Task
func (st *runState) dispatchReady() {
	for len(st.ready) > 0 {
		if st.workerPool != nil {
			select {
			case st.workerPool <- struct{}{}:
			default:
				return
			}
		}
		id := st.ready[0]
		st.ready = st.ready[1:]
		st.running++
		st.dispatch(id)
	}
}

func (st *runState) dispatch(id task.ID) {
	t := st.plan.tasks[id]
	name := st.plan.names[id]
	in := st.resolveInputs(id)

	if st.engine.verbose {
		log.Printf("📞 [Engine] 派发Task: RunID=%s, TaskID=%d, TaskName=%s, 输入数=%d", st.runID, id, name, in.Len())
	}
	st.engine.publish(st.ctx, events.NewTaskEvent(events.EventTaskStarted, st.runID, st.dagName, uint64(id), name))

	ctx := task.WithTaskID(st.ctx, id)
	ctx = task.WithTaskName(ctx, name)
	ctx = task.WithRunID(ctx, st.runID)
	ctx = task.WithDagName(ctx, st.dagName)

	go st.work(ctx, id, t, in)
}

// work 在独立goroutine中执行Task，panic转换为失败
func (st *runState) work(ctx context.Context, id task.ID, t task.Task, in *task.Input) {
	c := completion{id: id, started: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [Task执行失败] TaskID=%d, 原因: panic: %v\n%s", id, r, debug.Stack())
			c.output = nil
			c.err = &task.PanicError{Value: r}
		}
		c.finished = time.Now()
		// 先释放worker槽位再通知，协调者收到通知时槽位已可用
		if st.workerPool != nil {
			<-st.workerPool
		}
		st.done <- c
	}()

	c.output, c.err = t.Run(ctx, in, st.engine.env)
	if c.err == nil && c.output == nil {
		c.output = task.EmptyOutput()
	}
}

func (st *runState) resolveInputs(id task.ID) *task.Input {
	sources := st.plan.inputs[id]
	items := make([]task.InputItem, 0, len(sources))
	for _, src := range sources {
		items = append(items, task.InputItem{From: src, Content: st.outputs[src].Content()})
	}
	return task.NewInput(items...)
}

// complete 处理完成通知
func (st *runState) complete(c completion) {
	name := st.plan.names[c.id]
	msg := &OutputMessage{
		TaskID:     c.id,
		TaskName:   name,
		StartedAt:  c.started,
		FinishedAt: c.finished,
	}
	st.messages[c.id] = msg

	if c.err != nil {
		msg.Status = StatusFailed
		msg.Err = c.err
		log.Printf("❌ [Task执行失败] RunID=%s, TaskID=%d, TaskName=%s, 原因: %s", st.runID, c.id, name, task.ErrorMessage(c.err))
		st.engine.publish(st.ctx, events.NewTaskEvent(events.EventTaskFailed, st.runID, st.dagName, uint64(c.id), name).
			WithError(task.ErrorMessage(c.err)))
		st.skipDependents(c.id)
		if st.engine.policy == FailFast && st.abortErr == nil {
			st.abortErr = fmt.Errorf("task %d (%s) failed", c.id, name)
		}
		return
	}

	msg.Status = StatusSucceeded
	msg.Output = c.output
	st.outputs[c.id] = c.output
	if st.engine.verbose {
		log.Printf("✅ [Engine] Task完成: RunID=%s, TaskID=%d, TaskName=%s, 耗时=%s", st.runID, c.id, name, msg.Duration())
	}
	st.engine.publish(st.ctx, events.NewTaskEvent(events.EventTaskSucceeded, st.runID, st.dagName, uint64(c.id), name))

	var newlyReady []task.ID
	for _, child := range st.plan.children[c.id] {
		st.inDegree[child]--
		if st.inDegree[child] == 0 {
			if _, decided := st.messages[child]; !decided {
				newlyReady = append(newlyReady, child)
			}
		}
	}
	if len(newlyReady) > 0 {
		st.ready = append(st.ready, newlyReady...)
		slices.Sort(st.ready)
	}
}

// skipDependents 将失败Task的所有传递下游标记为跳过
// 下游入度不可能归零，因此它们一定尚未派发
func (st *runState) skipDependents(failed task.ID) {
	cause := &UpstreamFailedError{Upstream: failed, UpstreamName: st.plan.names[failed]}
	queue := slices.Clone(st.plan.children[failed])
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, decided := st.messages[id]; decided {
			continue
		}
		st.skip(id, failed, cause)
		queue = append(queue, st.plan.children[id]...)
	}
}

// skipRemaining 中止后将所有未决Task标记为跳过
func (st *runState) skipRemaining() {
	cause := &AbortedError{Reason: st.abortErr}
	for _, id := range st.plan.ids {
		if _, decided := st.messages[id]; !decided {
			st.skip(id, 0, cause)
		}
	}
	st.ready = nil
}

func (st *runState) skip(id, upstream task.ID, cause error) {
	name := st.plan.names[id]
	st.messages[id] = &OutputMessage{
		TaskID:     id,
		TaskName:   name,
		Status:     StatusSkipped,
		Err:        cause,
		Cause:      upstream,
		FinishedAt: time.Now(),
	}
	if st.engine.verbose {
		log.Printf("⏭️ [Engine] 跳过Task: RunID=%s, TaskID=%d, TaskName=%s, 原因: %v", st.runID, id, name, cause)
	}
	st.engine.publish(st.ctx, events.NewTaskEvent(events.EventTaskSkipped, st.runID, st.dagName, uint64(id), name).
		WithError(cause.Error()))
}

// drain 等待仍在执行的worker退出
func (st *runState) drain() {
	for st.running > 0 {
		<-st.done
		st.running--
	}
}
