package dag

import (
	godag "github.com/begmaroman/go-dag"

	"github.com/LENAX/dag-engine/pkg/core/task"
)

// vertex go-dag中的节点，只保存ID和在arena中的位置
type vertex struct {
	id    task.ID
	index int
}

// ID 实现 go-dag 的 Identifiable 接口
func (v *vertex) ID() string {
	return v.id.String()
}

// Hash 实现 go-dag 的 Hashable 接口
// 字段均未导出，默认的JSON哈希会让所有节点撞在一起，这里按ID哈希
func (v *vertex) Hash() (godag.VHash, error) {
	return godag.ToHash(v.id.String())
}

// TopologicalOrder 拓扑排序结果（对外导出）
type TopologicalOrder struct {
	Levels [][]task.ID // 每一层的Task ID列表（升序），可以并行执行
}

// Len 返回总Task数量
func (o *TopologicalOrder) Len() int {
	n := 0
	for _, level := range o.Levels {
		n += len(level)
	}
	return n
}

// Flatten 按层展开为线性顺序
func (o *TopologicalOrder) Flatten() []task.ID {
	out := make([]task.ID, 0, o.Len())
	for _, level := range o.Levels {
		out = append(out, level...)
	}
	return out
}
