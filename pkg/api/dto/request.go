package dto

// RunQueryRequest 运行历史查询请求
type RunQueryRequest struct {
	Dag   string `form:"dag" binding:"omitempty"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GetDefaultLimit 获取默认limit
func (r *RunQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}

// EventStreamRequest 事件流订阅参数，types 为逗号分隔的事件类型
type EventStreamRequest struct {
	Types string `form:"types" binding:"omitempty"`
}
