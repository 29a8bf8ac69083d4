package dag

import (
	"fmt"
	"log"
	"reflect"
	"slices"
	"sync"

	godag "github.com/begmaroman/go-dag"

	"github.com/LENAX/dag-engine/pkg/core/task"
)

// Dag Task依赖图（对外导出）
// 节点保存在arena中，ID与Task句柄双向索引；拓扑关系由 go-dag 维护。
// 边 A->B 表示 B 依赖 A。所有修改操作在失败时不改变图。
type Dag struct {
	mu      sync.RWMutex
	graph   *godag.DAG[*vertex]
	tasks   []task.Task
	index   map[task.ID]int
	reverse map[task.Task]task.ID
	// pending 尚未注册的生产者ID -> 等待它的消费者
	pending map[task.ID][]task.ID
}

// New 创建空的Dag（对外导出）
func New() *Dag {
	return &Dag{
		graph:   godag.NewDAG[*vertex](),
		index:   make(map[task.ID]int),
		reverse: make(map[task.Task]task.ID),
		pending: make(map[task.ID][]task.ID),
	}
}

// AllocID 分配新的Task ID（对外导出）
func (d *Dag) AllocID() task.ID {
	return task.AllocID()
}

func key(id task.ID) string {
	return id.String()
}

// Insert 注册Task（对外导出）
// 根据 Inputs 建立依赖边：已注册的生产者立即连边，未注册的作为待定引用，
// 在生产者注册时补齐。任何会形成环的注册都会被拒绝。
func (d *Dag) Insert(t task.Task) error {
	if t == nil {
		return newError(ErrInvalidTask, "nil task")
	}
	if !reflect.TypeOf(t).Comparable() {
		return newError(ErrInvalidTask, "task handle of type %T is not comparable", t)
	}
	id := t.ID()
	if id == 0 {
		return newError(ErrInvalidTask, "task %q has zero id", task.NameOf(t))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.index[id]; exists {
		return newError(ErrDuplicateID, "task %d already registered", id)
	}
	if existing, exists := d.reverse[t]; exists {
		return newError(ErrDuplicateID, "task handle already registered as %d", existing)
	}

	var present, absent []task.ID
	seen := make(map[task.ID]struct{})
	for _, in := range t.Inputs() {
		if in == id {
			return newError(ErrCycle, "task %d lists itself as input", id)
		}
		if in == 0 {
			return newError(ErrInvalidTask, "task %d has zero input reference", id)
		}
		if _, dup := seen[in]; dup {
			continue
		}
		seen[in] = struct{}{}
		if _, ok := d.index[in]; ok {
			present = append(present, in)
		} else {
			absent = append(absent, in)
		}
	}

	// 等待本Task的消费者若能到达本Task的任一生产者，连边后必然成环
	consumers := d.pending[id]
	for _, c := range consumers {
		for _, p := range present {
			if c == p || d.reaches(c, p) {
				return newError(ErrCycle, "inserting %d would close cycle through %d -> %d", id, p, c)
			}
		}
	}

	v := &vertex{id: id, index: len(d.tasks)}
	if err := d.graph.AddVertexByID(key(id), v); err != nil {
		return newError(ErrScheduling, "add vertex %d: %v", id, err)
	}

	for _, p := range present {
		if err := d.graph.AddEdge(key(p), key(id)); err != nil {
			d.rollbackVertex(id)
			return newError(ErrScheduling, "add edge %d -> %d: %v", p, id, err)
		}
	}
	for _, c := range consumers {
		if err := d.graph.AddEdge(key(id), key(c)); err != nil {
			d.rollbackVertex(id)
			return newError(ErrScheduling, "add edge %d -> %d: %v", id, c, err)
		}
	}
	d.tasks = append(d.tasks, t)
	d.index[id] = v.index
	d.reverse[t] = id
	delete(d.pending, id)
	for _, p := range absent {
		d.pending[p] = append(d.pending[p], id)
	}
	return nil
}

// rollbackVertex 撤销Insert中已加入go-dag的节点及其所有边
func (d *Dag) rollbackVertex(id task.ID) {
	if err := d.graph.DeleteVertex(key(id)); err != nil {
		log.Printf("⚠️ [Dag] 回滚节点失败: Task=%d, Error=%v", id, err)
	}
}

// InsertAll 依次注册多个Task，遇到第一个错误即返回
func (d *Dag) InsertAll(tasks ...task.Task) error {
	for _, t := range tasks {
		if err := d.Insert(t); err != nil {
			return err
		}
	}
	return nil
}

// AddDependency 声明 to 依赖 from（对外导出）
func (d *Dag) AddDependency(from, to task.ID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[from]; !ok {
		return newError(ErrUnknownTask, "task %d not registered", from)
	}
	if _, ok := d.index[to]; !ok {
		return newError(ErrUnknownTask, "task %d not registered", to)
	}
	if from == to {
		return newError(ErrCycle, "task %d cannot depend on itself", from)
	}
	if exists, _ := d.graph.IsEdge(key(from), key(to)); exists {
		return nil
	}
	if d.reaches(to, from) {
		return newError(ErrCycle, "edge %d -> %d would close a cycle", from, to)
	}
	if err := d.graph.AddEdge(key(from), key(to)); err != nil {
		return newError(ErrScheduling, "add edge %d -> %d: %v", from, to, err)
	}
	return nil
}

// reaches 判断从 src 出发沿依赖方向能否到达 dst，调用方需持有锁
func (d *Dag) reaches(src, dst task.ID) bool {
	if src == dst {
		return true
	}
	descendants, err := d.graph.GetDescendants(key(src))
	if err != nil {
		return false
	}
	_, ok := descendants[key(dst)]
	return ok
}

// Task 按ID查找Task（对外导出）
func (d *Dag) Task(id task.ID) (task.Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.tasks[i], true
}

// IDOf 按Task句柄反查ID（对外导出）
func (d *Dag) IDOf(t task.Task) (task.ID, bool) {
	if t == nil || !reflect.TypeOf(t).Comparable() {
		return 0, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.reverse[t]
	return id, ok
}

// Contains 是否已注册该ID
func (d *Dag) Contains(id task.ID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.index[id]
	return ok
}

// Len 返回Task数量
func (d *Dag) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tasks)
}

// Tasks 按注册顺序返回所有Task
func (d *Dag) Tasks() []task.Task {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.tasks)
}

// IDs 返回所有Task ID（升序）
func (d *Dag) IDs() []task.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]task.ID, 0, len(d.index))
	for id := range d.index {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// DependenciesOf 返回直接上游Task ID（升序）（对外导出）
func (d *Dag) DependenciesOf(id task.ID) ([]task.ID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.index[id]; !ok {
		return nil, newError(ErrUnknownTask, "task %d not registered", id)
	}
	return d.parents(id), nil
}

// DependentsOf 返回直接下游Task ID（升序）（对外导出）
func (d *Dag) DependentsOf(id task.ID) ([]task.ID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.index[id]; !ok {
		return nil, newError(ErrUnknownTask, "task %d not registered", id)
	}
	return d.children(id), nil
}

func (d *Dag) parents(id task.ID) []task.ID {
	m, err := d.graph.GetParents(key(id))
	if err != nil {
		return nil
	}
	return sortedIDs(m)
}

func (d *Dag) children(id task.ID) []task.ID {
	m, err := d.graph.GetChildren(key(id))
	if err != nil {
		return nil
	}
	return sortedIDs(m)
}

// sortedIDs go-dag 返回以节点ID字符串为key的map，转换为升序ID
func sortedIDs(m map[string]godag.VHash) []task.ID {
	ids := make([]task.ID, 0, len(m))
	for k := range m {
		id, err := task.ParseID(k)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Unresolved 返回被引用但尚未注册的Task ID（升序）
func (d *Dag) Unresolved() []task.ID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]task.ID, 0, len(d.pending))
	for id := range d.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Validate 运行前的结构校验（对外导出）
// 检查待定引用、声明输入与依赖边是否一致、是否无环
func (d *Dag) Validate() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.pending) > 0 {
		missing := make([]task.ID, 0, len(d.pending))
		for id := range d.pending {
			missing = append(missing, id)
		}
		slices.Sort(missing)
		return newError(ErrUnknownTask, "unresolved input references %v", missing)
	}

	for _, t := range d.tasks {
		id := t.ID()
		if i, ok := d.index[id]; !ok || d.tasks[i] != t {
			return newError(ErrInvalidTask, "task %q changed its id after insertion", task.NameOf(t))
		}
		for _, in := range t.Inputs() {
			if in == id {
				return newError(ErrCycle, "task %d lists itself as input", id)
			}
			if _, ok := d.index[in]; !ok {
				return newError(ErrUnknownTask, "task %d references unknown input %d", id, in)
			}
			if linked, _ := d.graph.IsEdge(key(in), key(id)); !linked {
				return newError(ErrScheduling, "input %d of task %d is not linked in the graph", in, id)
			}
		}
	}

	emitted := 0
	for batch := range kahn(d.snapshotLocked()) {
		emitted += len(batch)
	}
	if emitted != len(d.tasks) {
		return newError(ErrCycle, "%d of %d tasks are part of or depend on a cycle", len(d.tasks)-emitted, len(d.tasks))
	}
	return nil
}

// String 便于调试的简要描述
func (d *Dag) String() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	edges := 0
	for _, t := range d.tasks {
		edges += len(d.parents(t.ID()))
	}
	return fmt.Sprintf("Dag{tasks=%d, edges=%d, pending=%d}", len(d.tasks), edges, len(d.pending))
}
