package dag

import (
	"iter"
	"slices"

	"github.com/LENAX/dag-engine/pkg/core/task"
)

// Snapshot 某一时刻的静态拓扑（对外导出）
// Engine在运行开始时获取一份，之后只读
type Snapshot struct {
	IDs      []task.ID
	Parents  map[task.ID][]task.ID
	Children map[task.ID][]task.ID
}

// Snapshot 复制当前拓扑
func (d *Dag) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *Dag) snapshotLocked() *Snapshot {
	s := &Snapshot{
		IDs:      make([]task.ID, 0, len(d.tasks)),
		Parents:  make(map[task.ID][]task.ID, len(d.tasks)),
		Children: make(map[task.ID][]task.ID, len(d.tasks)),
	}
	for id := range d.index {
		s.IDs = append(s.IDs, id)
		s.Parents[id] = d.parents(id)
		s.Children[id] = d.children(id)
	}
	slices.Sort(s.IDs)
	return s
}

// TopologicalBatches 按层惰性产出Task ID（对外导出）
// 每一层包含所有依赖都已出现在之前层中的节点，层内升序。
// 每次遍历都基于当时的拓扑重新计算；存在环时，环上及其下游的节点不会出现。
func (d *Dag) TopologicalBatches() iter.Seq[[]task.ID] {
	return func(yield func([]task.ID) bool) {
		for batch := range kahn(d.Snapshot()) {
			if !yield(batch) {
				return
			}
		}
	}
}

// TopologicalOrder 收集所有层（对外导出）
// 存在环时返回 ErrCycle
func (d *Dag) TopologicalOrder() (*TopologicalOrder, error) {
	snap := d.Snapshot()
	order := &TopologicalOrder{Levels: make([][]task.ID, 0)}
	for batch := range kahn(snap) {
		order.Levels = append(order.Levels, batch)
	}
	if order.Len() != len(snap.IDs) {
		return nil, newError(ErrCycle, "topological sort emitted %d of %d tasks", order.Len(), len(snap.IDs))
	}
	return order, nil
}

// kahn Kahn算法，基于入度逐层剥离
func kahn(s *Snapshot) iter.Seq[[]task.ID] {
	return func(yield func([]task.ID) bool) {
		inDegree := make(map[task.ID]int, len(s.IDs))
		current := make([]task.ID, 0)
		for _, id := range s.IDs {
			inDegree[id] = len(s.Parents[id])
			if inDegree[id] == 0 {
				current = append(current, id)
			}
		}

		for len(current) > 0 {
			next := make([]task.ID, 0)
			for _, id := range current {
				for _, child := range s.Children[id] {
					inDegree[child]--
					if inDegree[child] == 0 {
						next = append(next, child)
					}
				}
			}
			if !yield(current) {
				return
			}
			slices.Sort(next)
			current = next
		}
	}
}
