package worker

import (
	"context"
	"encoding/json"

	eventmodel "DProject/module/event/model"
	eventstore "DProject/module/event/store"
	"DProject/service/rabbit"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Bus 发布面，*rabbit.Manager 是生产实现。
type Bus interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
	PublishDead(ctx context.Context, body []byte, headers amqp.Table) error
}

var _ Bus = (*rabbit.Manager)(nil)

// Emitter 合成事件出口：先落事件存储，再回发总线供其他消费者观测。
// 总线为 nil 时只落库。
type Emitter struct {
	Events *eventstore.Store
	Broker Bus
}

func NewEmitter(events *eventstore.Store, broker Bus) *Emitter {
	return &Emitter{Events: events, Broker: broker}
}

func (e *Emitter) EmitStatsEvent(ctx context.Context, ev *eventmodel.Event) error {
	if err := e.Events.Append(ctx, ev); err != nil {
		return err
	}
	if e.Broker == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.Broker.Publish(ctx, ev.EventType, body, amqp.Table{
		"x-event-id": ev.EventID,
	})
}
