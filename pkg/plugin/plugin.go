package plugin

import "github.com/LENAX/dag-engine/pkg/core/events"

// Plugin 插件基础接口（对外导出）
type Plugin interface {
	// Name 插件名称
	Name() string
	// Init 初始化插件
	Init(params map[string]string) error
	// Execute 执行插件逻辑
	Execute(data PluginData) error
}

// PluginData 传递给插件的数据（对外导出）
type PluginData struct {
	Event    events.EventType  // 触发事件
	RunID    string            // 运行ID
	DagName  string            // DAG名称（如果有）
	TaskID   uint64            // Task ID（运行级事件为0）
	TaskName string            // Task名称（如果有）
	Error    string            // 错误信息（如果有）
	Data     map[string]string // 事件元数据
}

// FromEvent 由生命周期事件构建PluginData
func FromEvent(ev *events.Event) PluginData {
	return PluginData{
		Event:    ev.Type,
		RunID:    ev.RunID,
		DagName:  ev.DagName,
		TaskID:   ev.TaskID,
		TaskName: ev.TaskName,
		Error:    ev.Error,
		Data:     ev.Metadata,
	}
}

// Failed 事件是否代表失败
func (d PluginData) Failed() bool {
	return d.Error != ""
}
