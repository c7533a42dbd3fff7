package feed

import (
	"context"

	"DProject/data/database"
	"DProject/module/dialog/model"
	"DProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSource 消息集合上的单会话有序查询。
// 只要求单会话内按复合键有序，messages 集合的 (tenant_id, dialog_id,
// created_at_ms, message_id) 索引即可满足。
type MongoSource struct {
	DB *mongo.Database
}

func NewMongoSource(db *mongo.Database) *MongoSource { return &MongoSource{DB: db} }

func (s *MongoSource) ListMessages(ctx context.Context, tenantID, dialogID string, b *Bound, limit int64, asc bool) ([]*model.Message, error) {
	q := bson.M{"tenant_id": tenantID, "dialog_id": dialogID}
	if b != nil {
		if asc {
			q["$or"] = bson.A{
				bson.M{"created_at_ms": bson.M{"$gt": b.TSMS}},
				bson.M{"created_at_ms": b.TSMS, "message_id": bson.M{"$gt": b.MessageID}},
			}
		} else {
			q["$or"] = bson.A{
				bson.M{"created_at_ms": bson.M{"$lt": b.TSMS}},
				bson.M{"created_at_ms": b.TSMS, "message_id": bson.M{"$lt": b.MessageID}},
			}
		}
	}
	dir := -1
	if asc {
		dir = 1
	}
	cur, err := database.Coll(s.DB, &model.Message{}).Find(ctx, q,
		options.Find().
			SetSort(bson.D{{Key: "created_at_ms", Value: dir}, {Key: "message_id", Value: dir}}).
			SetLimit(limit))
	if err != nil {
		return nil, errs.WrapMsg(err, "list dialog messages", "dialog_id", dialogID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Message
	for cur.Next(ctx) {
		m := &model.Message{}
		if err := cur.Decode(m); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, m)
	}
	return out, cur.Err()
}
