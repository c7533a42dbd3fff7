package worker

import (
	"context"
	"encoding/json"
	"time"

	"DProject/logger"
	"DProject/module/event/classifier"
	eventmodel "DProject/module/event/model"
	"DProject/service/rabbit"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventApplier 计数落地面，*Applier 是生产实现。
type EventApplier interface {
	Apply(ctx context.Context, ev *eventmodel.Event, d classifier.Decision) error
}

// ProjectionWriter 投影落地面，*UpdateWriter 是生产实现。
type ProjectionWriter interface {
	Write(ctx context.Context, ev *eventmodel.Event, d classifier.Decision) error
}

// Config worker 行为开关。Idem 非 nil 时启用加固去重：窗口内同一
// event_id 只处理一次；默认关（at-least-once + 非幂等增量，见存储层注释）。
type Config struct {
	Idem     IdemStore
	DedupTTL time.Duration
}

// Worker 事件消费主体。错误策略：任何单条消息的失败都不反馈给 broker——
// 解码失败、处理失败、panic 一律记日志、抄送死信队列、然后 ack 继续。
// 消费循环只因 ctx 取消或连接断开退出。
type Worker struct {
	apply   EventApplier
	updates ProjectionWriter
	dead    Bus // 可为 nil（测试）
	handle  Handler
}

func New(apply EventApplier, updates ProjectionWriter, dead Bus, cfg Config) *Worker {
	w := &Worker{apply: apply, updates: updates, dead: dead}
	h := w.process
	if cfg.Idem != nil {
		ttl := cfg.DedupTTL
		if ttl <= 0 {
			ttl = 2 * time.Minute
		}
		h = Chain(h, IdemMiddleware(cfg.Idem, ttl))
	}
	w.handle = h
	return w
}

// Run 阻塞消费直到 ctx 取消。
func (w *Worker) Run(ctx context.Context, broker *rabbit.Manager) error {
	return broker.Consume(ctx, w.handleDelivery)
}

// handleDelivery 单条投递入口。ctx 取消只用来停拉取循环：已经拿到手的
// 消息要么落库要么进死信，中途不能被取消打断，否则 ack 之后事件就丢了。
func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	return w.Handle(context.WithoutCancel(ctx), d.Body)
}

// Handle 处理一条原始消息体。永远返回 nil：失败走死信侧通道。
func (w *Worker) Handle(ctx context.Context, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic",
				zap.Any("panic", r),
				zap.ByteString("payload", body))
			w.sendDead(ctx, body, "panic")
			err = nil
		}
	}()

	var ev eventmodel.Event
	if uerr := json.Unmarshal(body, &ev); uerr != nil {
		logger.Error("event decode failed",
			zap.Error(uerr),
			zap.ByteString("payload", body))
		w.sendDead(ctx, body, "decode")
		return nil
	}

	if perr := w.handle(ctx, &ev); perr != nil {
		// 完整载荷入日志，方便离线回放定位
		logger.Error("event processing failed",
			zap.Error(perr),
			zap.String("tenant_id", ev.TenantID),
			zap.String("event_id", ev.EventID),
			zap.String("event_type", ev.EventType),
			zap.ByteString("payload", body))
		w.sendDead(ctx, body, "process")
	}
	return nil
}

// process 真正的处理链：分类 → 写投影 → 打计数并联动重算。
func (w *Worker) process(ctx context.Context, ev *eventmodel.Event) error {
	d := classifier.Classify(ev)
	if err := w.updates.Write(ctx, ev, d); err != nil {
		return err
	}
	return w.apply.Apply(ctx, ev, d)
}

func (w *Worker) sendDead(ctx context.Context, body []byte, reason string) {
	if w.dead == nil {
		return
	}
	if err := w.dead.PublishDead(ctx, body, amqp.Table{"x-death-reason": reason}); err != nil {
		logger.Error("dead letter publish failed", zap.Error(err), zap.String("reason", reason))
	}
}
