package model

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	PackTableName     = "packs"
	PackLinkTableName = "pack_links"
)

// Pack 会话分组，用于聚合统计和跨会话消息流。
type Pack struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	PackID   string             `bson:"pack_id"       json:"pack_id"`
	Name     string             `bson:"name,omitempty" json:"name,omitempty"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

// PackLink pack↔dialog 多对多边；一个会话可以属于任意多个 pack。
type PackLink struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	PackID   string             `bson:"pack_id"       json:"pack_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
}

func (p *Pack) GetTableName() string     { return PackTableName }
func (l *PackLink) GetTableName() string { return PackLinkTableName }
