package rabbit

import (
	"context"
	"time"

	"DProject/logger"
	"DProject/tools/errs"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Config 描述事件总线拓扑。Exchange 为 topic 类型，Queue 绑定 BindingKeys
// 并声明同名 ".dlq" 死信队列；MessageTTL 为 0 时不设置过期。
type Config struct {
	URL         string
	Exchange    string
	Queue       string
	BindingKeys []string
	Prefetch    int
	MessageTTL  time.Duration
}

type Manager struct {
	cfg  Config
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DLQName 死信队列名。
func (c Config) DLQName() string { return c.Queue + ".dlq" }

// Dial 建连并声明拓扑；任一步失败都视为致命错误，由调用方决定退出。
func Dial(cfg Config) (*Manager, error) {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if len(cfg.BindingKeys) == 0 {
		cfg.BindingKeys = []string{"#"}
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errs.WrapMsg(err, "rabbit dial", "url", cfg.URL)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errs.WrapMsg(err, "rabbit channel")
	}
	m := &Manager{cfg: cfg, conn: conn, ch: ch}
	if err := m.declareTopology(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) declareTopology() error {
	if err := m.ch.ExchangeDeclare(m.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return errs.WrapMsg(err, "exchange declare", "exchange", m.cfg.Exchange)
	}

	// DLQ：处理失败的事件进这里，等待人工回放
	if _, err := m.ch.QueueDeclare(m.cfg.DLQName(), true, false, false, false, nil); err != nil {
		return errs.WrapMsg(err, "dlq declare", "queue", m.cfg.DLQName())
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": m.cfg.DLQName(),
	}
	if m.cfg.MessageTTL > 0 {
		args["x-message-ttl"] = int32(m.cfg.MessageTTL / time.Millisecond)
	}
	if _, err := m.ch.QueueDeclare(m.cfg.Queue, true, false, false, false, args); err != nil {
		return errs.WrapMsg(err, "queue declare", "queue", m.cfg.Queue)
	}
	for _, key := range m.cfg.BindingKeys {
		if err := m.ch.QueueBind(m.cfg.Queue, key, m.cfg.Exchange, false, nil); err != nil {
			return errs.WrapMsg(err, "queue bind", "queue", m.cfg.Queue, "key", key)
		}
	}
	return nil
}

// Publish 按路由键（事件类型）发布一条持久化消息。
func (m *Manager) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.ch.PublishWithContext(cctx, m.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers:      headers,
		Timestamp:    time.Now(),
	})
}

// PublishDead 直接投递到死信队列（default exchange，routing key 即队列名）。
func (m *Manager) PublishDead(ctx context.Context, body []byte, headers amqp.Table) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.ch.PublishWithContext(cctx, "", m.cfg.DLQName(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers:      headers,
		Timestamp:    time.Now(),
	})
}

// Handler 返回值只用于记录；消费循环总是 ack（见 worker 的错误策略）。
type Handler func(ctx context.Context, d amqp.Delivery) error

// Consume 串行消费直到 ctx 结束。Qos=Prefetch，手动 ack；handler 处理完才拉下一条。
func (m *Manager) Consume(ctx context.Context, handler Handler) error {
	if err := m.ch.Qos(m.cfg.Prefetch, 0, false); err != nil {
		return errs.WrapMsg(err, "qos", "prefetch", m.cfg.Prefetch)
	}
	deliveries, err := m.ch.Consume(m.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return errs.WrapMsg(err, "consume", "queue", m.cfg.Queue)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errs.New("delivery channel closed")
			}
			_ = handler(ctx, d)
			if err := d.Ack(false); err != nil {
				logger.Error("ack failed", zap.Error(err))
			}
		}
	}
}

// Close 先关 channel 再关连接。
func (m *Manager) Close() {
	if m.ch != nil {
		_ = m.ch.Close()
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
}
