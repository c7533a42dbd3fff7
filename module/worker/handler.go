package worker

import (
	"context"
	"time"

	"DProject/logger"
	eventmodel "DProject/module/event/model"

	"go.uber.org/zap"
)

// Handler 处理一条已解码事件。
type Handler func(ctx context.Context, ev *eventmodel.Event) error

// Middleware 装饰 Handler。
type Middleware func(Handler) Handler

// Chain m1(m2(...(h)))，按声明顺序从外到内。
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// IdemMiddleware 窗口内重复 event_id 直接跳过（加固去重，默认关闭）。
func IdemMiddleware(store IdemStore, ttl time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *eventmodel.Event) error {
			key := ev.TenantID + ":" + ev.EventID
			seen, err := store.SeenOnce(ctx, key, ttl)
			if err != nil {
				// 去重挂了不挡主流程：当作没见过
				logger.Warn("idem store check failed",
					zap.String("event_id", ev.EventID), zap.Error(err))
				return next(ctx, ev)
			}
			if seen {
				logger.Debug("duplicate event skipped",
					zap.String("tenant_id", ev.TenantID),
					zap.String("event_id", ev.EventID),
					zap.String("event_type", ev.EventType))
				return nil
			}
			return next(ctx, ev)
		}
	}
}
