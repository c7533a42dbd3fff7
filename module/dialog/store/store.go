package store

import (
	"context"

	"DProject/data/database"
	"DProject/module/dialog/model"
	"DProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 会话侧的只读索引：成员、话题、消息计数。
// 写路径（建会话、发消息）属于 API 层协作者，不在本仓库内。
type Store struct {
	DB *mongo.Database
}

func New(db *mongo.Database) *Store { return &Store{DB: db} }

func (s *Store) members() *mongo.Collection  { return database.Coll(s.DB, &model.DialogMember{}) }
func (s *Store) topics() *mongo.Collection   { return database.Coll(s.DB, &model.DialogTopic{}) }
func (s *Store) messages() *mongo.Collection { return database.Coll(s.DB, &model.Message{}) }

// ListMemberIDs 返回会话全部成员的 user_id。
func (s *Store) ListMemberIDs(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	return s.distinctStrings(ctx, s.members(), "user_id",
		bson.M{"tenant_id": tenantID, "dialog_id": dialogID})
}

// ListDialogsForUser 返回用户所属的全部会话，feed 按它收窄可见范围。
func (s *Store) ListDialogsForUser(ctx context.Context, tenantID, userID string) ([]string, error) {
	return s.distinctStrings(ctx, s.members(), "dialog_id",
		bson.M{"tenant_id": tenantID, "user_id": userID})
}

// ListTopicIDs 返回会话的话题ID，pack 统计做 unique/sum 两种口径。
func (s *Store) ListTopicIDs(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	return s.distinctStrings(ctx, s.topics(), "topic_id",
		bson.M{"tenant_id": tenantID, "dialog_id": dialogID})
}

func (s *Store) CountMembers(ctx context.Context, tenantID, dialogID string) (int64, error) {
	n, err := s.members().CountDocuments(ctx, bson.M{"tenant_id": tenantID, "dialog_id": dialogID})
	return n, errs.Wrap(err)
}

func (s *Store) CountTopics(ctx context.Context, tenantID, dialogID string) (int64, error) {
	n, err := s.topics().CountDocuments(ctx, bson.M{"tenant_id": tenantID, "dialog_id": dialogID})
	return n, errs.Wrap(err)
}

func (s *Store) CountMessages(ctx context.Context, tenantID, dialogID string) (int64, error) {
	n, err := s.messages().CountDocuments(ctx, bson.M{"tenant_id": tenantID, "dialog_id": dialogID})
	return n, errs.Wrap(err)
}

// CountMessagesBySender 用户全量发言数，user stats 重算用。
func (s *Store) CountMessagesBySender(ctx context.Context, tenantID, userID string) (int64, error) {
	n, err := s.messages().CountDocuments(ctx, bson.M{"tenant_id": tenantID, "sender_id": userID})
	return n, errs.Wrap(err)
}

func (s *Store) distinctStrings(ctx context.Context, coll *mongo.Collection, field string, q bson.M) ([]string, error) {
	vals, err := coll.Distinct(ctx, field, q)
	if err != nil {
		return nil, errs.WrapMsg(err, "distinct", "field", field)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Exists 会话是否存在。
func (s *Store) Exists(ctx context.Context, tenantID, dialogID string) (bool, error) {
	err := s.DB.Collection(model.DialogTableName).
		FindOne(ctx, bson.M{"tenant_id": tenantID, "dialog_id": dialogID},
			options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(err)
	}
	return true, nil
}
