package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"DProject/module/event/classifier"
	eventmodel "DProject/module/event/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeApplier struct {
	calls   []classifier.Decision
	ctxErrs []error
	err     error
	panic   bool
}

func (f *fakeApplier) Apply(ctx context.Context, _ *eventmodel.Event, d classifier.Decision) error {
	if f.panic {
		panic("boom")
	}
	f.calls = append(f.calls, d)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

type fakeWriter struct {
	calls int
	err   error
}

func (f *fakeWriter) Write(_ context.Context, _ *eventmodel.Event, _ classifier.Decision) error {
	f.calls++
	return f.err
}

type fakeBus struct {
	published []string
	dead      []amqp.Table
}

func (f *fakeBus) Publish(_ context.Context, routingKey string, _ []byte, _ amqp.Table) error {
	f.published = append(f.published, routingKey)
	return nil
}

func (f *fakeBus) PublishDead(_ context.Context, _ []byte, headers amqp.Table) error {
	f.dead = append(f.dead, headers)
	return nil
}

func messageCreateBody(eventID string) []byte {
	b, _ := json.Marshal(&eventmodel.Event{
		EventID:   eventID,
		TenantID:  "t1",
		EventType: eventmodel.EventMessageCreate,
		ActorID:   "u1",
		Data: map[string]any{
			"context": map[string]any{
				"included_sections": []string{},
				"dialog_id":         "d1",
			},
		},
		CreatedAtMS: 12345,
	})
	return b
}

func TestHandleHappyPath(t *testing.T) {
	apply := &fakeApplier{}
	writer := &fakeWriter{}
	dead := &fakeBus{}
	w := New(apply, writer, dead, Config{})

	if err := w.Handle(context.Background(), messageCreateBody("ev1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if writer.calls != 1 || len(apply.calls) != 1 {
		t.Fatalf("writer=%d apply=%d, want 1/1", writer.calls, len(apply.calls))
	}
	if apply.calls[0].CounterOp != classifier.OpMessageCreate {
		t.Fatalf("counter op = %v", apply.calls[0].CounterOp)
	}
	if len(dead.dead) != 0 {
		t.Fatal("happy path must not dead-letter")
	}
}

func TestHandleDecodeFailureGoesToDLQ(t *testing.T) {
	dead := &fakeBus{}
	w := New(&fakeApplier{}, &fakeWriter{}, dead, Config{})

	if err := w.Handle(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("handle must swallow decode errors, got %v", err)
	}
	if len(dead.dead) != 1 || dead.dead[0]["x-death-reason"] != "decode" {
		t.Fatalf("dead letters = %+v, want one decode entry", dead.dead)
	}
}

func TestHandleProcessFailureGoesToDLQ(t *testing.T) {
	apply := &fakeApplier{err: errors.New("mongo down")}
	dead := &fakeBus{}
	w := New(apply, &fakeWriter{}, dead, Config{})

	if err := w.Handle(context.Background(), messageCreateBody("ev1")); err != nil {
		t.Fatalf("handle must swallow processing errors, got %v", err)
	}
	if len(dead.dead) != 1 || dead.dead[0]["x-death-reason"] != "process" {
		t.Fatalf("dead letters = %+v, want one process entry", dead.dead)
	}
}

func TestHandlePanicGoesToDLQ(t *testing.T) {
	dead := &fakeBus{}
	w := New(&fakeApplier{panic: true}, &fakeWriter{}, dead, Config{})

	if err := w.Handle(context.Background(), messageCreateBody("ev1")); err != nil {
		t.Fatalf("handle must swallow panics, got %v", err)
	}
	if len(dead.dead) != 1 || dead.dead[0]["x-death-reason"] != "panic" {
		t.Fatalf("dead letters = %+v, want one panic entry", dead.dead)
	}
}

func TestDeliveryFinishesAfterCancel(t *testing.T) {
	// 停机信号取消消费循环时，已取下的消息仍要完整处理，不能半途被
	// ctx 掐断后照样 ack
	apply := &fakeApplier{}
	writer := &fakeWriter{}
	dead := &fakeBus{}
	w := New(apply, writer, dead, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.handleDelivery(ctx, amqp.Delivery{Body: messageCreateBody("ev1")}); err != nil {
		t.Fatalf("handleDelivery: %v", err)
	}
	if writer.calls != 1 || len(apply.calls) != 1 {
		t.Fatalf("writer=%d apply=%d, want 1/1", writer.calls, len(apply.calls))
	}
	if apply.ctxErrs[0] != nil {
		t.Fatalf("apply saw ctx err %v, want in-flight event shielded from cancel", apply.ctxErrs[0])
	}
	if len(dead.dead) != 0 {
		t.Fatal("cancel must not dead-letter a healthy event")
	}
}

func TestDedupSkipsSeenEvents(t *testing.T) {
	apply := &fakeApplier{}
	writer := &fakeWriter{}
	w := New(apply, writer, &fakeBus{}, Config{Idem: NewMemIdem(time.Minute)})

	ctx := context.Background()
	_ = w.Handle(ctx, messageCreateBody("dup"))
	_ = w.Handle(ctx, messageCreateBody("dup"))
	_ = w.Handle(ctx, messageCreateBody("other"))

	if len(apply.calls) != 2 || writer.calls != 2 {
		t.Fatalf("apply=%d writer=%d, want duplicates skipped (2/2)", len(apply.calls), writer.calls)
	}
}

func TestNoDedupByDefault(t *testing.T) {
	// 参考行为：不去重，重复投递会重复处理
	apply := &fakeApplier{}
	w := New(apply, &fakeWriter{}, &fakeBus{}, Config{})

	ctx := context.Background()
	_ = w.Handle(ctx, messageCreateBody("dup"))
	_ = w.Handle(ctx, messageCreateBody("dup"))

	if len(apply.calls) != 2 {
		t.Fatalf("apply=%d, want redelivery processed twice", len(apply.calls))
	}
}
