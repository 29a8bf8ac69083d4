package plugin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/LENAX/dag-engine/pkg/core/events"
)

// PluginBinding 插件绑定规则（对外导出）
type PluginBinding struct {
	PluginName string                // 插件名称
	Event      events.EventType      // 触发事件
	Condition  func(PluginData) bool // 可选：条件函数，满足条件才触发
}

// OnlyFailures 只在事件带有错误信息时触发
func OnlyFailures(d PluginData) bool {
	return d.Failed()
}

// PluginManager 插件管理器接口（对外导出）
type PluginManager interface {
	// Register 注册插件
	Register(plugin Plugin) error
	// RegisterWithInit 注册并初始化插件
	RegisterWithInit(plugin Plugin, params map[string]string) error
	// Bind 绑定插件到事件
	Bind(binding PluginBinding) error
	// Trigger 触发插件
	Trigger(ctx context.Context, data PluginData) error
	// Attach 订阅事件总线，按绑定触发插件，ctx取消或总线关闭时停止
	Attach(ctx context.Context, bus *events.Bus) error
	// GetPlugin 获取已注册的插件
	GetPlugin(name string) (Plugin, bool)
	// ListPlugins 列出所有已注册的插件
	ListPlugins() []string
	// Unregister 取消注册插件
	Unregister(name string) error
}

// pluginManagerImpl 插件管理器实现（内部实现）
type pluginManagerImpl struct {
	plugins  map[string]Plugin                    // 插件名称 -> 插件实例
	bindings map[events.EventType][]PluginBinding // 事件类型 -> 绑定列表
	mu       sync.RWMutex
}

// NewPluginManager 创建插件管理器（对外导出）
func NewPluginManager() PluginManager {
	return &pluginManagerImpl{
		plugins:  make(map[string]Plugin),
		bindings: make(map[events.EventType][]PluginBinding),
	}
}

// Register 注册插件（实现PluginManager接口）
func (pm *pluginManagerImpl) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("插件不能为空")
	}

	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("插件名称不能为空")
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.plugins[name]; exists {
		return fmt.Errorf("插件 %s 已注册", name)
	}

	pm.plugins[name] = plugin
	return nil
}

// RegisterWithInit 注册并初始化插件（实现PluginManager接口）
func (pm *pluginManagerImpl) RegisterWithInit(plugin Plugin, params map[string]string) error {
	if err := pm.Register(plugin); err != nil {
		return err
	}

	if err := plugin.Init(params); err != nil {
		// 初始化失败，移除已注册的插件
		pm.mu.Lock()
		delete(pm.plugins, plugin.Name())
		pm.mu.Unlock()
		return fmt.Errorf("插件 %s 初始化失败: %w", plugin.Name(), err)
	}

	return nil
}

// Bind 绑定插件到事件（实现PluginManager接口）
func (pm *pluginManagerImpl) Bind(binding PluginBinding) error {
	if binding.PluginName == "" {
		return fmt.Errorf("插件名称不能为空")
	}
	if !slices.Contains(events.AllEventTypes, binding.Event) {
		return fmt.Errorf("未知的触发事件: %q", binding.Event)
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.plugins[binding.PluginName]; !exists {
		return fmt.Errorf("插件 %s 未注册", binding.PluginName)
	}
	pm.bindings[binding.Event] = append(pm.bindings[binding.Event], binding)
	return nil
}

// Trigger 触发插件（实现PluginManager接口）
func (pm *pluginManagerImpl) Trigger(ctx context.Context, data PluginData) error {
	pm.mu.RLock()
	bindings := slices.Clone(pm.bindings[data.Event])
	pm.mu.RUnlock()

	var errs []error
	for _, binding := range bindings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if binding.Condition != nil && !binding.Condition(data) {
			continue
		}

		plugin, exists := pm.GetPlugin(binding.PluginName)
		if !exists {
			continue
		}

		if err := plugin.Execute(data); err != nil {
			errs = append(errs, fmt.Errorf("插件 %s 执行失败: %w", binding.PluginName, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("触发插件失败: %w", errors.Join(errs...))
	}
	return nil
}

// Attach 订阅事件总线（实现PluginManager接口）
func (pm *pluginManagerImpl) Attach(ctx context.Context, bus *events.Bus) error {
	if bus == nil {
		return fmt.Errorf("事件总线不能为空")
	}

	pm.mu.RLock()
	types := make([]events.EventType, 0, len(pm.bindings))
	for t, bs := range pm.bindings {
		if len(bs) > 0 {
			types = append(types, t)
		}
	}
	pm.mu.RUnlock()
	if len(types) == 0 {
		return fmt.Errorf("没有任何插件绑定")
	}

	stream, err := bus.Subscribe(ctx, types...)
	if err != nil {
		return err
	}
	go func() {
		for ev := range stream {
			if err := pm.Trigger(ctx, FromEvent(ev)); err != nil {
				log.Printf("⚠️ [插件] %v", err)
			}
		}
	}()
	log.Printf("✅ [插件] 已订阅事件: %v", types)
	return nil
}

// GetPlugin 获取已注册的插件（实现PluginManager接口）
func (pm *pluginManagerImpl) GetPlugin(name string) (Plugin, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	plugin, exists := pm.plugins[name]
	return plugin, exists
}

// ListPlugins 列出所有已注册的插件（实现PluginManager接口）
func (pm *pluginManagerImpl) ListPlugins() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	names := make([]string, 0, len(pm.plugins))
	for name := range pm.plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Unregister 取消注册插件（实现PluginManager接口）
func (pm *pluginManagerImpl) Unregister(name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if _, exists := pm.plugins[name]; !exists {
		return fmt.Errorf("插件 %s 未注册", name)
	}

	delete(pm.plugins, name)

	// 移除所有相关的绑定
	for event, bs := range pm.bindings {
		pm.bindings[event] = slices.DeleteFunc(bs, func(b PluginBinding) bool {
			return b.PluginName == name
		})
	}
	return nil
}
