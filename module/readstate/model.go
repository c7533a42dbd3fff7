package readstate

import "go.mongodb.org/mongo-driver/bson/primitive"

const ReadTaskTableName = "dialog_read_tasks"

const (
	TaskPending = "pending"
	TaskDone    = "done"
)

// DialogReadTask 延迟的批量已读任务：客户端上报的已读位置早于已知水位时，
// 不做同步大范围扫描，落一条任务由 runner 异步补齐。
type DialogReadTask struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	TenantID string             `bson:"tenant_id"     json:"tenant_id"`
	DialogID string             `bson:"dialog_id"     json:"dialog_id"`
	UserID   string             `bson:"user_id"       json:"user_id"`

	ReadUntilMS int64  `bson:"read_until_ms" json:"read_until_ms"`
	Status      string `bson:"status"        json:"status"`

	CreatedAtMS int64 `bson:"created_at_ms" json:"created_at_ms"`
	DoneAtMS    int64 `bson:"done_at_ms,omitempty" json:"done_at_ms,omitempty"`
}

func (t *DialogReadTask) GetTableName() string { return ReadTaskTableName }
