package classifier

import (
	"DProject/logger"
	"DProject/module/event/model"

	"go.uber.org/zap"
)

// CounterOp 事件触发的增量计数操作。
type CounterOp int

const (
	OpNone CounterOp = iota
	OpTopicCreate
	OpMemberAdd
	OpMemberRemove
	OpMessageCreate
)

// ShouldCreateUpdate 各受众投影是否需要落一条 Update。分支相互独立。
type ShouldCreateUpdate struct {
	Dialog       bool
	DialogMember bool
	Message      bool
	Typing       bool
	User         bool
}

// Decision 单个事件的分类结果。CounterOp 非 OpNone 时 DialogID 必已解析成功。
type Decision struct {
	ShouldCreateUpdate ShouldCreateUpdate

	DialogID  string
	MessageID string
	UserID    string
	// SenderID 仅消息类事件填充，计未读时排除发送者本人。
	SenderID string

	CounterOp CounterOp
}

// Classify 检查事件类型与载荷，决定下游动作。任何分支缺必需标识符时
// 记日志并跳过该分支，绝不向上抛错（worker 的事件循环不允许被打断）。
func Classify(ev *model.Event) Decision {
	d := Decision{}

	secs, err := ev.DecodeSections()
	if err != nil {
		logger.Warn("event data decode failed, classify on envelope only",
			zap.String("event_id", ev.EventID), zap.String("event_type", ev.EventType), zap.Error(err))
		secs = &model.Sections{}
	}

	d.DialogID = resolveDialogID(ev, secs)
	d.MessageID = resolveMessageID(ev, secs)
	d.UserID = resolveUserID(ev, secs)

	switch ev.EventType {
	case model.EventDialogCreate, model.EventDialogUpdate, model.EventDialogDelete:
		d.ShouldCreateUpdate.Dialog = requireDialog(ev, &d)

	case model.EventDialogTopicCreate:
		if requireDialog(ev, &d) {
			d.ShouldCreateUpdate.Dialog = true
			d.CounterOp = OpTopicCreate
		}

	case model.EventDialogMemberAdd:
		if requireDialog(ev, &d) {
			d.ShouldCreateUpdate.DialogMember = true
			d.CounterOp = OpMemberAdd
		}

	case model.EventDialogMemberRemove:
		if requireDialog(ev, &d) {
			d.ShouldCreateUpdate.DialogMember = true
			d.CounterOp = OpMemberRemove
		}

	case model.EventMessageCreate:
		if requireDialog(ev, &d) {
			d.ShouldCreateUpdate.Message = true
			d.CounterOp = OpMessageCreate
			if secs.Message != nil && secs.Message.SenderID != "" {
				d.SenderID = secs.Message.SenderID
			} else {
				d.SenderID = ev.ActorID
			}
		}

	case model.EventMessageUpdate, model.EventMessageDelete,
		model.EventMessageReaction, model.EventMessageUnreaction, model.EventMessageRead:
		d.ShouldCreateUpdate.Message = requireDialog(ev, &d)

	case model.EventTypingStart, model.EventTypingStop:
		d.ShouldCreateUpdate.Typing = requireDialog(ev, &d)

	case model.EventUserCreate, model.EventUserUpdate:
		if d.UserID == "" {
			logSkip(ev, "user")
		} else {
			d.ShouldCreateUpdate.User = true
		}

	case model.EventPackStatsUpdated, model.EventUserPackStatsUpdated:
		// 合成事件只供观测，不再派生任何动作

	default:
		logger.Debug("unclassified event type",
			zap.String("event_id", ev.EventID), zap.String("event_type", ev.EventType))
	}

	return d
}

func requireDialog(ev *model.Event, d *Decision) bool {
	if d.DialogID == "" {
		logSkip(ev, "dialog")
		d.CounterOp = OpNone
		return false
	}
	return true
}

func logSkip(ev *model.Event, need string) {
	logger.Warn("cannot resolve identifier, branch skipped",
		zap.String("event_id", ev.EventID),
		zap.String("event_type", ev.EventType),
		zap.String("need", need))
}

// 解析顺序：context 显式字段 → 相关分段载荷 → entity_type 匹配时用 entity_id 兜底。

func resolveDialogID(ev *model.Event, secs *model.Sections) string {
	if secs.Context != nil && secs.Context.DialogID != "" {
		return secs.Context.DialogID
	}
	if secs.Dialog != nil && secs.Dialog.DialogID != "" {
		return secs.Dialog.DialogID
	}
	if secs.Member != nil && secs.Member.DialogID != "" {
		return secs.Member.DialogID
	}
	if secs.Message != nil && secs.Message.DialogID != "" {
		return secs.Message.DialogID
	}
	if secs.Typing != nil && secs.Typing.DialogID != "" {
		return secs.Typing.DialogID
	}
	if ev.EntityType == model.EntityDialog {
		return ev.EntityID
	}
	return ""
}

func resolveMessageID(ev *model.Event, secs *model.Sections) string {
	if secs.Context != nil && secs.Context.MessageID != "" {
		return secs.Context.MessageID
	}
	if secs.Message != nil && secs.Message.MessageID != "" {
		return secs.Message.MessageID
	}
	if ev.EntityType == model.EntityMessage {
		return ev.EntityID
	}
	return ""
}

func resolveUserID(ev *model.Event, secs *model.Sections) string {
	if secs.Context != nil && secs.Context.UserID != "" {
		return secs.Context.UserID
	}
	if secs.Member != nil && secs.Member.UserID != "" {
		return secs.Member.UserID
	}
	if secs.User != nil && secs.User.UserID != "" {
		return secs.User.UserID
	}
	if ev.EntityType == model.EntityUser {
		return ev.EntityID
	}
	return ""
}
