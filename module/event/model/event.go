package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventTableName  = "events"
	UpdateTableName = "updates"
)

// 事件类型表。路由键即事件类型，订阅侧用 "#" 全量绑定。
const (
	EventDialogCreate       = "dialog.create"
	EventDialogUpdate       = "dialog.update"
	EventDialogDelete       = "dialog.delete"
	EventDialogTopicCreate  = "dialog.topic.create"
	EventDialogMemberAdd    = "dialog.member.add"
	EventDialogMemberRemove = "dialog.member.remove"
	EventMessageCreate      = "message.create"
	EventMessageUpdate      = "message.update"
	EventMessageDelete      = "message.delete"
	EventMessageReaction    = "message.reaction.add"
	EventMessageUnreaction  = "message.reaction.remove"
	EventMessageRead        = "message.read"
	EventTypingStart        = "typing.start"
	EventTypingStop         = "typing.stop"
	EventUserCreate         = "user.create"
	EventUserUpdate         = "user.update"

	// 统计重算完成后发出的合成事件，仅用于观测与下游订阅
	EventPackStatsUpdated     = "pack.stats.updated"
	EventUserPackStatsUpdated = "user.pack.stats.updated"
)

// 实体类型，事件缺省上下文时用 entity_id 兜底解析
const (
	EntityDialog  = "dialog"
	EntityMessage = "message"
	EntityUser    = "user"
	EntityPack    = "pack"
)

// data 中可能出现的分段名，以 context.included_sections 为准
const (
	SectionContext = "context"
	SectionDialog  = "dialog"
	SectionMember  = "member"
	SectionMessage = "message"
	SectionTyping  = "typing"
	SectionUser    = "user"
)

// Event 写路径同步落库的不可变事件。Data 保持 schemaless（参考系统行为），
// 分段由 classifier 按 included_sections 解码成类型化结构。
type Event struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"       json:"-"`
	EventID    string             `bson:"event_id"            json:"event_id"` // ULID，幂等键
	TenantID   string             `bson:"tenant_id"           json:"tenant_id"`
	EventType  string             `bson:"event_type"          json:"event_type"`
	EntityType string             `bson:"entity_type"         json:"entity_type"`
	EntityID   string             `bson:"entity_id"           json:"entity_id"`
	ActorID    string             `bson:"actor_id,omitempty"  json:"actor_id,omitempty"`
	ActorType  string             `bson:"actor_type,omitempty" json:"actor_type,omitempty"` // user|system

	Data map[string]any `bson:"data,omitempty" json:"data,omitempty"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

// ===== 类型化分段 =====

type ContextSection struct {
	IncludedSections []string `json:"included_sections" mapstructure:"included_sections"`
	DialogID         string   `json:"dialog_id,omitempty" mapstructure:"dialog_id"`
	MessageID        string   `json:"message_id,omitempty" mapstructure:"message_id"`
	UserID           string   `json:"user_id,omitempty" mapstructure:"user_id"`
	PackID           string   `json:"pack_id,omitempty" mapstructure:"pack_id"`
	// 合成事件溯源：触发重算的操作与实体
	SourceOperation string `json:"source_operation,omitempty" mapstructure:"source_operation"`
	SourceEntityID  string `json:"source_entity_id,omitempty" mapstructure:"source_entity_id"`
}

type DialogSection struct {
	DialogID string `json:"dialog_id" mapstructure:"dialog_id"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
	TopicID  string `json:"topic_id,omitempty" mapstructure:"topic_id"`
}

type MemberSection struct {
	DialogID string `json:"dialog_id" mapstructure:"dialog_id"`
	UserID   string `json:"user_id" mapstructure:"user_id"`
	Role     string `json:"role,omitempty" mapstructure:"role"`
}

type MessageSection struct {
	MessageID string `json:"message_id" mapstructure:"message_id"`
	DialogID  string `json:"dialog_id" mapstructure:"dialog_id"`
	SenderID  string `json:"sender_id" mapstructure:"sender_id"`
	Content   string `json:"content,omitempty" mapstructure:"content"`
}

type TypingSection struct {
	DialogID string `json:"dialog_id" mapstructure:"dialog_id"`
	UserID   string `json:"user_id" mapstructure:"user_id"`
	Typing   bool   `json:"typing" mapstructure:"typing"`
}

type UserSection struct {
	UserID string `json:"user_id" mapstructure:"user_id"`
	Name   string `json:"name,omitempty" mapstructure:"name"`
}

// Sections 是 Event.Data 的类型化视图。指针为 nil 表示分段不存在或未声明。
type Sections struct {
	Context *ContextSection
	Dialog  *DialogSection
	Member  *MemberSection
	Message *MessageSection
	Typing  *TypingSection
	User    *UserSection
}

func (e *Event) GetTableName() string {
	return EventTableName
}
