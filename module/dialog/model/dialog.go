package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	DialogTableName  = "dialogs"
	MemberTableName  = "dialog_members"
	TopicTableName   = "dialog_topics"
	MessageTableName = "messages"
	ReceiptTableName = "message_receipts"
)

// Dialog 一个会话。成员与消息都挂在 dialog_id 下。
type Dialog struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`
	Name     string             `bson:"name,omitempty" json:"name,omitempty"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

type DialogMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`
	UserID   string             `bson:"user_id"       json:"user_id"`
	Role     string             `bson:"role,omitempty" json:"role,omitempty"`

	JoinedAtMS int64 `bson:"joined_at_ms" json:"joined_at_ms"`
}

type DialogTopic struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`
	TopicID  string             `bson:"topic_id"      json:"topic_id"`
	Title    string             `bson:"title,omitempty" json:"title,omitempty"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

func (d *Dialog) GetTableName() string       { return DialogTableName }
func (m *DialogMember) GetTableName() string { return MemberTableName }
func (t *DialogTopic) GetTableName() string  { return TopicTableName }
