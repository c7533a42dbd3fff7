package readstate

import (
	"context"
	"time"

	"DProject/data/database"
	dialogmodel "DProject/module/dialog/model"
	"DProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 回执与批量任务的 mongo 实现。
type Store struct {
	DB *mongo.Database
}

func NewStore(db *mongo.Database) *Store { return &Store{DB: db} }

func (s *Store) receipts() *mongo.Collection {
	return database.Coll(s.DB, &dialogmodel.MessageReceipt{})
}
func (s *Store) tasks() *mongo.Collection { return database.Coll(s.DB, &DialogReadTask{}) }

func (s *Store) GetReceipt(ctx context.Context, tenantID, dialogID, messageID, userID string) (*dialogmodel.MessageReceipt, error) {
	row := &dialogmodel.MessageReceipt{}
	err := s.receipts().FindOne(ctx, bson.M{
		"tenant_id": tenantID, "dialog_id": dialogID,
		"message_id": messageID, "user_id": userID,
	}).Decode(row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return row, nil
}

func (s *Store) SetReceiptStatus(ctx context.Context, tenantID, dialogID, messageID, userID, status string, messageAtMS int64) error {
	_, err := s.receipts().UpdateOne(ctx,
		bson.M{
			"tenant_id": tenantID, "dialog_id": dialogID,
			"message_id": messageID, "user_id": userID,
		},
		bson.M{
			"$set":         bson.M{"status": status, "updated_at_ms": time.Now().UnixMilli()},
			"$setOnInsert": bson.M{"message_at_ms": messageAtMS},
		},
		options.Update().SetUpsert(true),
	)
	return errs.WrapMsg(err, "set receipt", "message_id", messageID, "user_id", userID)
}

func (s *Store) CreateTask(ctx context.Context, task *DialogReadTask) error {
	_, err := s.tasks().InsertOne(ctx, task)
	return errs.WrapMsg(err, "create read task", "dialog_id", task.DialogID, "user_id", task.UserID)
}

// ListPending 取一批待处理任务。
func (s *Store) ListPending(ctx context.Context, limit int64) ([]*DialogReadTask, error) {
	cur, err := s.tasks().Find(ctx, bson.M{"status": TaskPending},
		options.Find().SetSort(bson.D{{Key: "created_at_ms", Value: 1}}).SetLimit(limit))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []*DialogReadTask
	for cur.Next(ctx) {
		t := &DialogReadTask{}
		if err := cur.Decode(t); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, t)
	}
	return out, cur.Err()
}

// FlipReadUpTo 把 read_until 之前（含）的未达 read 的回执批量置为 read，返回条数。
func (s *Store) FlipReadUpTo(ctx context.Context, t *DialogReadTask) (int64, error) {
	res, err := s.receipts().UpdateMany(ctx,
		bson.M{
			"tenant_id":     t.TenantID,
			"dialog_id":     t.DialogID,
			"user_id":       t.UserID,
			"message_at_ms": bson.M{"$lte": t.ReadUntilMS},
			"status":        bson.M{"$ne": dialogmodel.ReceiptRead},
		},
		bson.M{"$set": bson.M{"status": dialogmodel.ReceiptRead, "updated_at_ms": time.Now().UnixMilli()}},
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "flip read", "dialog_id", t.DialogID, "user_id", t.UserID)
	}
	return res.ModifiedCount, nil
}

// MarkDone 任务完成。
func (s *Store) MarkDone(ctx context.Context, t *DialogReadTask) error {
	_, err := s.tasks().UpdateOne(ctx,
		bson.M{"_id": t.ID},
		bson.M{"$set": bson.M{"status": TaskDone, "done_at_ms": time.Now().UnixMilli()}},
	)
	return errs.Wrap(err)
}
