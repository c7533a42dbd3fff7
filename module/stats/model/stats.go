package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	DialogStatsTableName        = "dialog_stats"
	UserDialogStatsTableName    = "user_dialog_stats"
	UserDialogActivityTableName = "user_dialog_activity"
	UserStatsTableName          = "user_stats"
	PackStatsTableName          = "pack_stats"
	UserPackStatsTableName      = "user_pack_stats"
)

// DialogStats 会话级计数，分类器按事件 +1/-1 增量维护（非幂等，见 worker 去重开关）。
type DialogStats struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`

	TopicCount   int64 `bson:"topic_count"   json:"topic_count"`
	MemberCount  int64 `bson:"member_count"  json:"member_count"`
	MessageCount int64 `bson:"message_count" json:"message_count"`
}

// UserDialogStats 每 (user, dialog) 的未读数。收到消息+1（发送者除外），已读递减，钳在 0。
type UserDialogStats struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	UserID   string             `bson:"user_id"       json:"user_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`

	UnreadCount int64 `bson:"unread_count" json:"unread_count"`
}

// UserDialogActivity 活跃时间戳，与未读计数分集合存放，避免两类写互相争抢同一文档。
type UserDialogActivity struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	UserID   string             `bson:"user_id"       json:"user_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`

	LastSeenAtMS    int64 `bson:"last_seen_at_ms"    json:"last_seen_at_ms"`
	LastMessageAtMS int64 `bson:"last_message_at_ms" json:"last_message_at_ms"`
}

// UserStats 用户级汇总，只做全量重算整体覆盖，从不逐字段增量。
type UserStats struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	UserID   string             `bson:"user_id"       json:"user_id"`

	DialogCount        int64 `bson:"dialog_count"         json:"dialog_count"`
	UnreadDialogsCount int64 `bson:"unread_dialogs_count" json:"unread_dialogs_count"`
	TotalUnreadCount   int64 `bson:"total_unread_count"   json:"total_unread_count"`
	TotalMessagesCount int64 `bson:"total_messages_count" json:"total_messages_count"`

	LastUpdatedAtMS int64 `bson:"last_updated_at_ms" json:"last_updated_at_ms"`
}

// PackStats pack 级汇总。unique 口径跨会话去重，sum 口径允许重复计入——两种指标并存。
type PackStats struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	PackID   string             `bson:"pack_id"       json:"pack_id"`

	MessageCount      int64 `bson:"message_count"       json:"message_count"`
	UniqueMemberCount int64 `bson:"unique_member_count" json:"unique_member_count"`
	SumMemberCount    int64 `bson:"sum_member_count"    json:"sum_member_count"`
	UniqueTopicCount  int64 `bson:"unique_topic_count"  json:"unique_topic_count"`
	SumTopicCount     int64 `bson:"sum_topic_count"     json:"sum_topic_count"`

	LastUpdatedAtMS int64 `bson:"last_updated_at_ms" json:"last_updated_at_ms"`
}

// UserPackStats 用户在 pack 内的未读汇总 = Σ 该用户所属 pack 会话的 unread_count。
type UserPackStats struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	PackID   string             `bson:"pack_id"       json:"pack_id"`
	UserID   string             `bson:"user_id"       json:"user_id"`

	UnreadCount int64 `bson:"unread_count" json:"unread_count"`

	LastUpdatedAtMS int64 `bson:"last_updated_at_ms" json:"last_updated_at_ms"`
}

func (s *DialogStats) GetTableName() string        { return DialogStatsTableName }
func (s *UserDialogStats) GetTableName() string    { return UserDialogStatsTableName }
func (s *UserDialogActivity) GetTableName() string { return UserDialogActivityTableName }
func (s *UserStats) GetTableName() string          { return UserStatsTableName }
func (s *PackStats) GetTableName() string          { return PackStatsTableName }
func (s *UserPackStats) GetTableName() string      { return UserPackStatsTableName }
