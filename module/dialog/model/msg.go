package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Message 消息本体。MessageID 为雪花ID的十进制字符串，同毫秒内单调，
// 与 created_at_ms 组成跨会话合并的复合排序键。
type Message struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"  json:"-"`
	TenantID string             `bson:"tenant_id"      json:"tenant_id"`
	DialogID string             `bson:"dialog_id"      json:"dialog_id"`

	MessageID string `bson:"message_id"  json:"message_id"`
	SenderID  string `bson:"sender_id"   json:"sender_id"`
	TopicID   string `bson:"topic_id,omitempty" json:"topic_id,omitempty"`

	ContentType int32  `bson:"content_type" json:"content_type"` // 1=text,2=image,3=file...
	Content     string `bson:"content"      json:"content"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

// 接收方视角的消息状态机：unread → delivered → read，只允许前进。
const (
	ReceiptUnread    = "unread"
	ReceiptDelivered = "delivered"
	ReceiptRead      = "read"
)

// MessageReceipt 每 (dialog, user, message) 一行的阅读回执。
type MessageReceipt struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`

	MessageID string `bson:"message_id" json:"message_id"`
	UserID    string `bson:"user_id"    json:"user_id"`
	Status    string `bson:"status"     json:"status"`

	// 冗余消息时间，批量已读任务按它圈定范围
	MessageAtMS int64 `bson:"message_at_ms" json:"message_at_ms"`
	UpdatedAtMS int64 `bson:"updated_at_ms" json:"updated_at_ms"`
}

func (m *Message) GetTableName() string        { return MessageTableName }
func (r *MessageReceipt) GetTableName() string { return ReceiptTableName }

// ReceiptRank 状态序，用于拒绝回退迁移。未知状态视为最低。
func ReceiptRank(status string) int {
	switch status {
	case ReceiptDelivered:
		return 1
	case ReceiptRead:
		return 2
	default:
		return 0
	}
}
