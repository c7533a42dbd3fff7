package worker

import (
	"context"
	"testing"

	"DProject/module/event/classifier"
	eventmodel "DProject/module/event/model"
)

type fakeUpdateStore struct {
	rows []*eventmodel.Update
}

func (f *fakeUpdateStore) AppendUpdate(_ context.Context, u *eventmodel.Update) error {
	f.rows = append(f.rows, u)
	return nil
}

func TestWriteUpdatesPerBranch(t *testing.T) {
	store := &fakeUpdateStore{}
	w := NewUpdateWriter(store)

	ev := &eventmodel.Event{
		EventID: "ev1", TenantID: "t1", EventType: eventmodel.EventMessageCreate,
		Data: map[string]any{"k": "v"},
	}
	d := classifier.Decision{
		DialogID: "d1",
		UserID:   "u1",
		ShouldCreateUpdate: classifier.ShouldCreateUpdate{
			Message: true,
			User:    true,
		},
	}
	if err := w.Write(context.Background(), ev, d); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("wrote %d updates, want 2", len(store.rows))
	}
	byKind := map[string]*eventmodel.Update{}
	for _, u := range store.rows {
		byKind[u.Kind] = u
	}
	if u := byKind[eventmodel.UpdateKindMessage]; u == nil || u.AudienceID != "d1" {
		t.Errorf("message update = %+v, want audience d1", u)
	}
	if u := byKind[eventmodel.UpdateKindUser]; u == nil || u.AudienceID != "u1" {
		t.Errorf("user update = %+v, want audience u1", u)
	}
	for _, u := range store.rows {
		if u.EventID != "ev1" || u.TenantID != "t1" {
			t.Errorf("update envelope = %+v", u)
		}
	}
}

func TestWriteNoBranches(t *testing.T) {
	store := &fakeUpdateStore{}
	w := NewUpdateWriter(store)

	ev := &eventmodel.Event{EventID: "ev1", TenantID: "t1"}
	if err := w.Write(context.Background(), ev, classifier.Decision{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("wrote %d updates, want none", len(store.rows))
	}
}
