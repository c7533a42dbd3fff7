package stats

import (
	"context"
	"time"

	eventmodel "DProject/module/event/model"
	"DProject/module/stats/model"
	"DProject/tools/errs"
)

// Repo 重算引擎依赖的计数存储面。*Store 是生产实现。
type Repo interface {
	ListDialogStats(ctx context.Context, tenantID string, dialogIDs []string) (map[string]*model.DialogStats, error)
	ListUnreadByDialogs(ctx context.Context, tenantID string, dialogIDs []string) ([]*model.UserDialogStats, error)
	ListUnreadByUser(ctx context.Context, tenantID, userID string) ([]*model.UserDialogStats, error)
	ReplaceDialogStats(ctx context.Context, row *model.DialogStats) error
	ReplaceUserStats(ctx context.Context, row *model.UserStats) error
	ReplacePackStats(ctx context.Context, row *model.PackStats) error
	ReplaceUserPackStats(ctx context.Context, row *model.UserPackStats) error
}

// PackIndex pack 成员关系，两个方向。
type PackIndex interface {
	Exists(ctx context.Context, tenantID, packID string) (bool, error)
	ListDialogIDs(ctx context.Context, tenantID, packID string) ([]string, error)
	ListPackIDsForDialog(ctx context.Context, tenantID, dialogID string) ([]string, error)
}

// DialogIndex 会话侧底表读取。
type DialogIndex interface {
	ListMemberIDs(ctx context.Context, tenantID, dialogID string) ([]string, error)
	ListTopicIDs(ctx context.Context, tenantID, dialogID string) ([]string, error)
	CountMembers(ctx context.Context, tenantID, dialogID string) (int64, error)
	CountTopics(ctx context.Context, tenantID, dialogID string) (int64, error)
	CountMessages(ctx context.Context, tenantID, dialogID string) (int64, error)
	CountMessagesBySender(ctx context.Context, tenantID, userID string) (int64, error)
}

// EventEmitter 重算完成后发出合成事件（事件存储 + 总线）。nil 实现表示不发。
type EventEmitter interface {
	EmitStatsEvent(ctx context.Context, ev *eventmodel.Event) error
}

// Options 重算的溯源标记：由哪个操作、哪个实体触发。只用于观测，不参与回放。
type Options struct {
	SourceOperation string
	SourceEntityID  string
}

// Engine 全量重算引擎。重算是幂等的：同一底表状态重算任意多次结果一致，
// 并发时后写覆盖先写（last recompute wins）。
type Engine struct {
	Repo    Repo
	Packs   PackIndex
	Dialogs DialogIndex
	Emitter EventEmitter // 可为 nil
}

func NewEngine(repo Repo, packs PackIndex, dialogs DialogIndex, emitter EventEmitter) *Engine {
	return &Engine{Repo: repo, Packs: packs, Dialogs: dialogs, Emitter: emitter}
}

// RecalculateDialogStats 从底表整体重数一个会话并覆盖（增量漂移后的纠偏入口）。
func (e *Engine) RecalculateDialogStats(ctx context.Context, tenantID, dialogID string) (*model.DialogStats, error) {
	topics, err := e.Dialogs.CountTopics(ctx, tenantID, dialogID)
	if err != nil {
		return nil, err
	}
	members, err := e.Dialogs.CountMembers(ctx, tenantID, dialogID)
	if err != nil {
		return nil, err
	}
	messages, err := e.Dialogs.CountMessages(ctx, tenantID, dialogID)
	if err != nil {
		return nil, err
	}
	row := &model.DialogStats{
		TenantID:     tenantID,
		DialogID:     dialogID,
		TopicCount:   topics,
		MemberCount:  members,
		MessageCount: messages,
	}
	if err := e.Repo.ReplaceDialogStats(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// RecalculatePackStats pack 级全量重算。
func (e *Engine) RecalculatePackStats(ctx context.Context, tenantID, packID string, opts Options) (*model.PackStats, error) {
	in, err := e.gatherPackInputs(ctx, tenantID, packID)
	if err != nil {
		return nil, err
	}
	row := ComputePackStats(*in)
	if err := e.Repo.ReplacePackStats(ctx, row); err != nil {
		return nil, err
	}
	e.emit(ctx, tenantID, eventmodel.EventPackStatsUpdated, packID, opts)
	return row, nil
}

// RecalculateUserPackStats 重算 pack 内每个成员的未读汇总。
func (e *Engine) RecalculateUserPackStats(ctx context.Context, tenantID, packID string, opts Options) (map[string]*model.UserPackStats, error) {
	in, err := e.gatherPackInputs(ctx, tenantID, packID)
	if err != nil {
		return nil, err
	}
	rows := ComputeUserPackStats(*in)
	for _, row := range rows {
		if err := e.Repo.ReplaceUserPackStats(ctx, row); err != nil {
			return nil, err
		}
	}
	e.emit(ctx, tenantID, eventmodel.EventUserPackStatsUpdated, packID, opts)
	return rows, nil
}

// RecalculateUserStats 用户级全量重算，四字段一次覆盖。
func (e *Engine) RecalculateUserStats(ctx context.Context, tenantID, userID string) (*model.UserStats, error) {
	rows, err := e.Repo.ListUnreadByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	totalMessages, err := e.Dialogs.CountMessagesBySender(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	row := ComputeUserStats(tenantID, userID, rows, totalMessages)
	if err := e.Repo.ReplaceUserStats(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// RecalculateForDialog 会话计数变动后的联动：查会话所属 pack，逐个重算。
// 会话不属于任何 pack 时不发起任何重算调用。
func (e *Engine) RecalculateForDialog(ctx context.Context, tenantID, dialogID string, opts Options) error {
	packIDs, err := e.Packs.ListPackIDsForDialog(ctx, tenantID, dialogID)
	if err != nil {
		return err
	}
	for _, packID := range packIDs {
		if _, err := e.RecalculatePackStats(ctx, tenantID, packID, opts); err != nil {
			return err
		}
		if _, err := e.RecalculateUserPackStats(ctx, tenantID, packID, opts); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) gatherPackInputs(ctx context.Context, tenantID, packID string) (*PackInputs, error) {
	ok, err := e.Packs.Exists(ctx, tenantID, packID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("pack not found", "pack_id", packID)
	}

	dialogIDs, err := e.Packs.ListDialogIDs(ctx, tenantID, packID)
	if err != nil {
		return nil, err
	}
	in := &PackInputs{
		TenantID:  tenantID,
		PackID:    packID,
		DialogIDs: dialogIDs,
		Members:   make(map[string][]string, len(dialogIDs)),
		Topics:    make(map[string][]string, len(dialogIDs)),
	}
	in.DialogStats, err = e.Repo.ListDialogStats(ctx, tenantID, dialogIDs)
	if err != nil {
		return nil, err
	}
	for _, dialogID := range dialogIDs {
		members, err := e.Dialogs.ListMemberIDs(ctx, tenantID, dialogID)
		if err != nil {
			return nil, err
		}
		in.Members[dialogID] = members
		topics, err := e.Dialogs.ListTopicIDs(ctx, tenantID, dialogID)
		if err != nil {
			return nil, err
		}
		in.Topics[dialogID] = topics
	}
	in.Unread, err = e.Repo.ListUnreadByDialogs(ctx, tenantID, dialogIDs)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (e *Engine) emit(ctx context.Context, tenantID, eventType, packID string, opts Options) {
	if e.Emitter == nil {
		return
	}
	ev := &eventmodel.Event{
		TenantID:   tenantID,
		EventType:  eventType,
		EntityType: eventmodel.EntityPack,
		EntityID:   packID,
		ActorType:  "system",
		Data: map[string]any{
			eventmodel.SectionContext: map[string]any{
				"included_sections": []string{},
				"pack_id":           packID,
				"source_operation":  opts.SourceOperation,
				"source_entity_id":  opts.SourceEntityID,
			},
		},
		CreatedAtMS: time.Now().UnixMilli(),
	}
	// 合成事件失败不阻断重算结果，记录后继续
	if err := e.Emitter.EmitStatsEvent(ctx, ev); err != nil {
		logEmitError(eventType, packID, err)
	}
}
