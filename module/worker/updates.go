package worker

import (
	"context"

	"DProject/module/event/classifier"
	eventmodel "DProject/module/event/model"
)

// UpdateStore 投影落库面，*eventstore.Store 是生产实现。
type UpdateStore interface {
	AppendUpdate(ctx context.Context, u *eventmodel.Update) error
}

// UpdateWriter 按分类结果为各受众写 Update 投影。各分支独立：
// 一个事件可能同时落会话投影和用户投影。
type UpdateWriter struct {
	Store UpdateStore
}

func NewUpdateWriter(store UpdateStore) *UpdateWriter {
	return &UpdateWriter{Store: store}
}

func (w *UpdateWriter) Write(ctx context.Context, ev *eventmodel.Event, d classifier.Decision) error {
	s := d.ShouldCreateUpdate
	if s.Dialog {
		if err := w.append(ctx, ev, eventmodel.UpdateKindDialog, d.DialogID); err != nil {
			return err
		}
	}
	if s.DialogMember {
		if err := w.append(ctx, ev, eventmodel.UpdateKindDialogMember, d.DialogID); err != nil {
			return err
		}
	}
	if s.Message {
		if err := w.append(ctx, ev, eventmodel.UpdateKindMessage, d.DialogID); err != nil {
			return err
		}
	}
	if s.Typing {
		if err := w.append(ctx, ev, eventmodel.UpdateKindTyping, d.DialogID); err != nil {
			return err
		}
	}
	if s.User {
		if err := w.append(ctx, ev, eventmodel.UpdateKindUser, d.UserID); err != nil {
			return err
		}
	}
	return nil
}

func (w *UpdateWriter) append(ctx context.Context, ev *eventmodel.Event, kind, audienceID string) error {
	return w.Store.AppendUpdate(ctx, &eventmodel.Update{
		TenantID:   ev.TenantID,
		Kind:       kind,
		AudienceID: audienceID,
		EventID:    ev.EventID,
		EventType:  ev.EventType,
		Payload:    ev.Data,
	})
}
