package worker

import (
	"context"
	"reflect"
	"testing"

	"DProject/module/event/classifier"
	eventmodel "DProject/module/event/model"
	"DProject/module/stats"
)

type fakeCounters struct {
	topicDelta   int64
	memberDelta  int64
	messageDelta int64
	unreadUsers  []string
	touchedUsers []string
	touchedAtMS  int64
}

func (f *fakeCounters) IncTopicCount(_ context.Context, _, _ string, delta int64) error {
	f.topicDelta += delta
	return nil
}

func (f *fakeCounters) IncMemberCount(_ context.Context, _, _ string, delta int64) error {
	f.memberDelta += delta
	return nil
}

func (f *fakeCounters) IncMessageCount(_ context.Context, _, _ string, delta int64) error {
	f.messageDelta += delta
	return nil
}

func (f *fakeCounters) IncUnread(_ context.Context, _, _ string, userIDs []string, _ int64) error {
	f.unreadUsers = append(f.unreadUsers, userIDs...)
	return nil
}

func (f *fakeCounters) TouchLastMessage(_ context.Context, _, _ string, userIDs []string, tsMS int64) error {
	f.touchedUsers = append(f.touchedUsers, userIDs...)
	f.touchedAtMS = tsMS
	return nil
}

type fakeMembers struct {
	members []string
}

func (f *fakeMembers) ListMemberIDs(_ context.Context, _, _ string) ([]string, error) {
	return f.members, nil
}

type fakeRecalc struct {
	dialogs []string
	opts    []stats.Options
}

func (f *fakeRecalc) RecalculateForDialog(_ context.Context, _, dialogID string, opts stats.Options) error {
	f.dialogs = append(f.dialogs, dialogID)
	f.opts = append(f.opts, opts)
	return nil
}

func TestApplyMessageCreate(t *testing.T) {
	counters := &fakeCounters{}
	recalc := &fakeRecalc{}
	a := NewApplier(counters, &fakeMembers{members: []string{"u1", "u2", "u3"}}, recalc)

	ev := &eventmodel.Event{
		EventID: "ev1", TenantID: "t1",
		EventType:   eventmodel.EventMessageCreate,
		CreatedAtMS: 777,
	}
	d := classifier.Decision{DialogID: "d1", SenderID: "u2", CounterOp: classifier.OpMessageCreate}

	if err := a.Apply(context.Background(), ev, d); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if counters.messageDelta != 1 {
		t.Errorf("message delta = %d, want 1", counters.messageDelta)
	}
	if !reflect.DeepEqual(counters.unreadUsers, []string{"u1", "u3"}) {
		t.Errorf("unread users = %v, sender must be excluded", counters.unreadUsers)
	}
	if !reflect.DeepEqual(counters.touchedUsers, []string{"u1", "u2", "u3"}) || counters.touchedAtMS != 777 {
		t.Errorf("touched = %v at %d, want all members at event time",
			counters.touchedUsers, counters.touchedAtMS)
	}
	if !reflect.DeepEqual(recalc.dialogs, []string{"d1"}) {
		t.Fatalf("recalc dialogs = %v", recalc.dialogs)
	}
	if recalc.opts[0].SourceOperation != eventmodel.EventMessageCreate || recalc.opts[0].SourceEntityID != "ev1" {
		t.Errorf("recalc provenance = %+v", recalc.opts[0])
	}
}

func TestApplyMemberOps(t *testing.T) {
	counters := &fakeCounters{}
	recalc := &fakeRecalc{}
	a := NewApplier(counters, &fakeMembers{}, recalc)

	ev := &eventmodel.Event{EventID: "ev1", TenantID: "t1", EventType: eventmodel.EventDialogMemberAdd}
	if err := a.Apply(context.Background(), ev, classifier.Decision{DialogID: "d1", CounterOp: classifier.OpMemberAdd}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ev.EventType = eventmodel.EventDialogMemberRemove
	if err := a.Apply(context.Background(), ev, classifier.Decision{DialogID: "d1", CounterOp: classifier.OpMemberRemove}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if counters.memberDelta != 0 {
		t.Errorf("member delta = %d, add+remove must cancel", counters.memberDelta)
	}
	if len(recalc.dialogs) != 2 {
		t.Errorf("recalc calls = %d, want one per event", len(recalc.dialogs))
	}
}

func TestApplyTopicCreate(t *testing.T) {
	counters := &fakeCounters{}
	a := NewApplier(counters, &fakeMembers{}, &fakeRecalc{})

	ev := &eventmodel.Event{EventID: "ev1", TenantID: "t1", EventType: eventmodel.EventDialogTopicCreate}
	if err := a.Apply(context.Background(), ev, classifier.Decision{DialogID: "d1", CounterOp: classifier.OpTopicCreate}); err != nil {
		t.Fatalf("topic: %v", err)
	}
	if counters.topicDelta != 1 {
		t.Errorf("topic delta = %d, want 1", counters.topicDelta)
	}
}

func TestApplyNoneSkipsRecalc(t *testing.T) {
	recalc := &fakeRecalc{}
	a := NewApplier(&fakeCounters{}, &fakeMembers{}, recalc)

	ev := &eventmodel.Event{EventID: "ev1", TenantID: "t1", EventType: eventmodel.EventTypingStart}
	if err := a.Apply(context.Background(), ev, classifier.Decision{DialogID: "d1", CounterOp: classifier.OpNone}); err != nil {
		t.Fatalf("none: %v", err)
	}
	if len(recalc.dialogs) != 0 {
		t.Fatal("OpNone must not trigger recompute")
	}
}
