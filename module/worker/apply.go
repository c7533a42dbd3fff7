package worker

import (
	"context"

	"DProject/module/event/classifier"
	eventmodel "DProject/module/event/model"
	"DProject/module/stats"
)

// CounterStore 增量计数面，*stats.Store 是生产实现。
type CounterStore interface {
	IncTopicCount(ctx context.Context, tenantID, dialogID string, delta int64) error
	IncMemberCount(ctx context.Context, tenantID, dialogID string, delta int64) error
	IncMessageCount(ctx context.Context, tenantID, dialogID string, delta int64) error
	IncUnread(ctx context.Context, tenantID, dialogID string, userIDs []string, delta int64) error
	TouchLastMessage(ctx context.Context, tenantID, dialogID string, userIDs []string, tsMS int64) error
}

// MemberLister 会话成员查询，*dialogstore.Store 是生产实现。
type MemberLister interface {
	ListMemberIDs(ctx context.Context, tenantID, dialogID string) ([]string, error)
}

// Recalculator 会话变动后的 pack 联动重算，*stats.Engine 是生产实现。
type Recalculator interface {
	RecalculateForDialog(ctx context.Context, tenantID, dialogID string, opts stats.Options) error
}

// Applier 把分类结果落成计数变更：先打增量，再触发全量重算联动。
// 增量不幂等（重复投递会重复加），需要严格一次语义时在 worker 上开加固去重。
type Applier struct {
	Counters CounterStore
	Members  MemberLister
	Engine   Recalculator
}

func NewApplier(counters CounterStore, members MemberLister, engine Recalculator) *Applier {
	return &Applier{Counters: counters, Members: members, Engine: engine}
}

func (a *Applier) Apply(ctx context.Context, ev *eventmodel.Event, d classifier.Decision) error {
	switch d.CounterOp {
	case classifier.OpNone:
		return nil

	case classifier.OpTopicCreate:
		if err := a.Counters.IncTopicCount(ctx, ev.TenantID, d.DialogID, 1); err != nil {
			return err
		}

	case classifier.OpMemberAdd:
		if err := a.Counters.IncMemberCount(ctx, ev.TenantID, d.DialogID, 1); err != nil {
			return err
		}

	case classifier.OpMemberRemove:
		if err := a.Counters.IncMemberCount(ctx, ev.TenantID, d.DialogID, -1); err != nil {
			return err
		}

	case classifier.OpMessageCreate:
		if err := a.applyMessageCreate(ctx, ev, d); err != nil {
			return err
		}
	}

	return a.Engine.RecalculateForDialog(ctx, ev.TenantID, d.DialogID, stats.Options{
		SourceOperation: ev.EventType,
		SourceEntityID:  ev.EventID,
	})
}

func (a *Applier) applyMessageCreate(ctx context.Context, ev *eventmodel.Event, d classifier.Decision) error {
	if err := a.Counters.IncMessageCount(ctx, ev.TenantID, d.DialogID, 1); err != nil {
		return err
	}
	members, err := a.Members.ListMemberIDs(ctx, ev.TenantID, d.DialogID)
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(members))
	for _, id := range members {
		if id != d.SenderID {
			recipients = append(recipients, id)
		}
	}
	if err := a.Counters.IncUnread(ctx, ev.TenantID, d.DialogID, recipients, 1); err != nil {
		return err
	}
	// last_message_at 对全体成员刷新，包括发送者
	return a.Counters.TouchLastMessage(ctx, ev.TenantID, d.DialogID, members, ev.CreatedAtMS)
}
