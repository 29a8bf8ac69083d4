package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/LENAX/dag-engine/pkg/config"
	"github.com/LENAX/dag-engine/pkg/core/events"
	"github.com/LENAX/dag-engine/pkg/plugin"
)

// closerFunc 把函数适配为 io.Closer
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// attachNotifications 注册邮件插件并订阅事件总线，返回的Closer用于停止订阅
func attachNotifications(bus *events.Bus, email config.EmailNotification) (closerFunc, error) {
	pm := plugin.NewPluginManager()
	if err := pm.RegisterWithInit(plugin.NewEmailPlugin(), email.Params()); err != nil {
		return nil, fmt.Errorf("初始化邮件通知失败: %w", err)
	}

	var cond func(plugin.PluginData) bool
	if email.OnlyFailures {
		cond = plugin.OnlyFailures
	}
	for _, ev := range email.Events {
		if err := pm.Bind(plugin.PluginBinding{
			PluginName: "email",
			Event:      events.EventType(ev),
			Condition:  cond,
		}); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := pm.Attach(ctx, bus); err != nil {
		cancel()
		return nil, err
	}
	log.Printf("✅ [Engine] 邮件通知已启用: To=%v, Events=%v", email.To, email.Events)
	return func() error {
		cancel()
		return nil
	}, nil
}
