package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Topic 所有生命周期事件共用的topic，事件类型放在消息元数据中
const Topic = "dag.events"

// BusOptions 事件总线选项
type BusOptions struct {
	BufferSize int  // 每个订阅者的输出缓冲
	Debug      bool // watermill debug日志
	Trace      bool // watermill trace日志
}

// Bus 基于 watermill gochannel 的进程内事件总线
type Bus struct {
	pubsub     *gochannel.GoChannel
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewBus 创建事件总线
func NewBus(opts BusOptions) *Bus {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	logger := watermill.NewStdLogger(opts.Debug, opts.Trace)
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(opts.BufferSize),
			Persistent:          false,
			// 逐条等待订阅者确认，保证每个订阅者按发布顺序收到事件
			BlockPublishUntilSubscriberAck: true,
		},
		logger,
	)
	return &Bus{pubsub: pubsub, bufferSize: opts.BufferSize}
}

// Publish 发布事件，总线关闭后返回错误
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("事件不能为空")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("事件总线已关闭")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("run_id", event.RunID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅事件，types 为空表示订阅全部类型
// ctx 取消或总线关闭时返回的channel会被关闭
func (b *Bus) Subscribe(ctx context.Context, types ...EventType) (<-chan *Event, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("事件总线已关闭")
	}

	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("订阅事件失败: %w", err)
	}

	filter := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		filter[t] = struct{}{}
	}

	out := make(chan *Event, b.bufferSize)
	go func() {
		defer close(out)
		for msg := range messages {
			msg.Ack()
			if len(filter) > 0 {
				if _, ok := filter[EventType(msg.Metadata.Get("event_type"))]; !ok {
					continue
				}
			}
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Printf("⚠️ [事件总线] 事件反序列化失败: MessageID=%s, Error=%v", msg.UUID, err)
				continue
			}
			// 消费者跟不上时丢弃，不阻塞发布方
			select {
			case out <- &event:
			case <-ctx.Done():
				return
			default:
				log.Printf("⚠️ [事件总线] 订阅缓冲已满，丢弃事件: Type=%s, RunID=%s", event.Type, event.RunID)
			}
		}
	}()
	return out, nil
}

// Close 关闭总线，所有订阅channel随之关闭
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
