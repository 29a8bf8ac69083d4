package task

import (
	"strconv"
	"sync/atomic"
)

// ID Task唯一标识（对外导出）
// 由进程级分配器单调递增分配，进程生命周期内不会重复；0 表示"无Task"
type ID uint64

// idAllocator 进程级ID分配器
var idAllocator atomic.Uint64

// AllocID 分配一个新的Task ID（对外导出）
// 并发安全，从1开始单调递增
func AllocID() ID {
	return ID(idAllocator.Add(1))
}

// String 返回ID的十进制字符串形式
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID 将字符串解析为ID
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}
