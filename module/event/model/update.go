package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Update 的受众维度。读端按 (tenant_id, kind, audience_id) 长轮询增量，
// 不需要回放原始事件流。
const (
	UpdateKindDialog       = "dialog-update"
	UpdateKindDialogMember = "dialog-member-update"
	UpdateKindMessage      = "message-update"
	UpdateKindTyping       = "typing-update"
	UpdateKindUser         = "user-update"
)

// Update 事件的按受众投影，worker 异步写入，幂等键 (tenant_id, audience_id, event_id)。
type Update struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"  json:"-"`
	UpdateID   string             `bson:"update_id"      json:"update_id"` // 雪花ID
	TenantID   string             `bson:"tenant_id"      json:"tenant_id"`
	Kind       string             `bson:"kind"           json:"kind"`
	AudienceID string             `bson:"audience_id"    json:"audience_id"` // dialog_id 或 user_id
	EventID    string             `bson:"event_id"       json:"event_id"`
	EventType  string             `bson:"event_type"     json:"event_type"`

	Payload map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

func (u *Update) GetTableName() string {
	return UpdateTableName
}
