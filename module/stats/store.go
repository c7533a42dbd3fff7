package stats

import (
	"context"
	"time"

	"DProject/data/database"
	"DProject/module/stats/model"
	"DProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 计数器的存储层。增量路径用原子 $inc / 管道更新，
// 全量重算路径用整文档覆盖（见 engine.go）。
type Store struct {
	DB *mongo.Database
}

func NewStore(db *mongo.Database) *Store { return &Store{DB: db} }

func (s *Store) dialogStats() *mongo.Collection { return database.Coll(s.DB, &model.DialogStats{}) }
func (s *Store) userDialog() *mongo.Collection {
	return database.Coll(s.DB, &model.UserDialogStats{})
}
func (s *Store) activity() *mongo.Collection {
	return database.Coll(s.DB, &model.UserDialogActivity{})
}
func (s *Store) userStats() *mongo.Collection { return database.Coll(s.DB, &model.UserStats{}) }
func (s *Store) packStats() *mongo.Collection { return database.Coll(s.DB, &model.PackStats{}) }
func (s *Store) userPackStats() *mongo.Collection {
	return database.Coll(s.DB, &model.UserPackStats{})
}

// ===== 增量路径（非幂等：同一事件重放会重复计数）=====

func (s *Store) IncTopicCount(ctx context.Context, tenantID, dialogID string, delta int64) error {
	return s.incDialogField(ctx, tenantID, dialogID, "topic_count", delta)
}

func (s *Store) IncMemberCount(ctx context.Context, tenantID, dialogID string, delta int64) error {
	return s.incDialogField(ctx, tenantID, dialogID, "member_count", delta)
}

func (s *Store) IncMessageCount(ctx context.Context, tenantID, dialogID string, delta int64) error {
	return s.incDialogField(ctx, tenantID, dialogID, "message_count", delta)
}

func (s *Store) incDialogField(ctx context.Context, tenantID, dialogID, field string, delta int64) error {
	_, err := s.dialogStats().UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "dialog_id": dialogID},
		bson.M{"$inc": bson.M{field: delta}},
		options.Update().SetUpsert(true),
	)
	return errs.WrapMsg(err, "inc dialog stats", "dialog_id", dialogID, "field", field)
}

// IncUnread 给一组用户的未读 +delta（message.create 时除发送者外的所有成员）。
func (s *Store) IncUnread(ctx context.Context, tenantID, dialogID string, userIDs []string, delta int64) error {
	for _, uid := range userIDs {
		_, err := s.userDialog().UpdateOne(ctx,
			bson.M{"tenant_id": tenantID, "user_id": uid, "dialog_id": dialogID},
			bson.M{"$inc": bson.M{"unread_count": delta}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return errs.WrapMsg(err, "inc unread", "dialog_id", dialogID, "user_id", uid)
		}
	}
	return nil
}

// DecUnreadClamped 未读递减，管道更新保证结果永不为负。
func (s *Store) DecUnreadClamped(ctx context.Context, tenantID, dialogID, userID string, delta int64) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"unread_count": bson.M{"$max": bson.A{
				int64(0),
				bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$unread_count", int64(0)}}, delta}},
			}},
		}}},
	}
	_, err := s.userDialog().UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "dialog_id": dialogID},
		pipeline,
	)
	return errs.WrapMsg(err, "dec unread", "dialog_id", dialogID, "user_id", userID)
}

// SetUnread 写死未读值（已通过回退校验），同样不允许负数。
func (s *Store) SetUnread(ctx context.Context, tenantID, dialogID, userID string, n int64) error {
	if n < 0 {
		n = 0
	}
	_, err := s.userDialog().UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "dialog_id": dialogID},
		bson.M{"$set": bson.M{"unread_count": n}},
		options.Update().SetUpsert(true),
	)
	return errs.WrapMsg(err, "set unread", "dialog_id", dialogID, "user_id", userID)
}

// TouchLastMessage 批量推进成员的 last_message_at。
func (s *Store) TouchLastMessage(ctx context.Context, tenantID, dialogID string, userIDs []string, tsMS int64) error {
	for _, uid := range userIDs {
		_, err := s.activity().UpdateOne(ctx,
			bson.M{"tenant_id": tenantID, "user_id": uid, "dialog_id": dialogID},
			bson.M{"$max": bson.M{"last_message_at_ms": tsMS}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return errs.WrapMsg(err, "touch last message", "dialog_id", dialogID, "user_id", uid)
		}
	}
	return nil
}

// TouchLastSeen 上报已读位置时推进 last_seen_at。
func (s *Store) TouchLastSeen(ctx context.Context, tenantID, dialogID, userID string, tsMS int64) error {
	_, err := s.activity().UpdateOne(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "dialog_id": dialogID},
		bson.M{"$max": bson.M{"last_seen_at_ms": tsMS}},
		options.Update().SetUpsert(true),
	)
	return errs.WrapMsg(err, "touch last seen", "dialog_id", dialogID, "user_id", userID)
}

// ===== 读取 =====

// GetUserDialogStats 无行时返回零值行，未读视为 0。
func (s *Store) GetUserDialogStats(ctx context.Context, tenantID, dialogID, userID string) (*model.UserDialogStats, error) {
	row := &model.UserDialogStats{}
	err := s.userDialog().FindOne(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "dialog_id": dialogID}).Decode(row)
	if err == mongo.ErrNoDocuments {
		return &model.UserDialogStats{TenantID: tenantID, UserID: userID, DialogID: dialogID}, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return row, nil
}

// GetActivity 无行时返回零值行，水位视为 0。
func (s *Store) GetActivity(ctx context.Context, tenantID, dialogID, userID string) (*model.UserDialogActivity, error) {
	row := &model.UserDialogActivity{}
	err := s.activity().FindOne(ctx,
		bson.M{"tenant_id": tenantID, "user_id": userID, "dialog_id": dialogID}).Decode(row)
	if err == mongo.ErrNoDocuments {
		return &model.UserDialogActivity{TenantID: tenantID, UserID: userID, DialogID: dialogID}, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return row, nil
}

func (s *Store) GetDialogStats(ctx context.Context, tenantID, dialogID string) (*model.DialogStats, error) {
	row := &model.DialogStats{}
	err := s.dialogStats().FindOne(ctx, bson.M{"tenant_id": tenantID, "dialog_id": dialogID}).Decode(row)
	if err == mongo.ErrNoDocuments {
		return &model.DialogStats{TenantID: tenantID, DialogID: dialogID}, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return row, nil
}

func (s *Store) GetPackStats(ctx context.Context, tenantID, packID string) (*model.PackStats, error) {
	row := &model.PackStats{}
	err := s.packStats().FindOne(ctx, bson.M{"tenant_id": tenantID, "pack_id": packID}).Decode(row)
	if err == mongo.ErrNoDocuments {
		return &model.PackStats{TenantID: tenantID, PackID: packID}, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return row, nil
}

func (s *Store) GetUserStats(ctx context.Context, tenantID, userID string) (*model.UserStats, error) {
	row := &model.UserStats{}
	err := s.userStats().FindOne(ctx, bson.M{"tenant_id": tenantID, "user_id": userID}).Decode(row)
	if err == mongo.ErrNoDocuments {
		return &model.UserStats{TenantID: tenantID, UserID: userID}, nil
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return row, nil
}

// ListDialogStats 按 dialog_id 批量取会话计数。
func (s *Store) ListDialogStats(ctx context.Context, tenantID string, dialogIDs []string) (map[string]*model.DialogStats, error) {
	out := make(map[string]*model.DialogStats, len(dialogIDs))
	if len(dialogIDs) == 0 {
		return out, nil
	}
	cur, err := s.dialogStats().Find(ctx, bson.M{"tenant_id": tenantID, "dialog_id": bson.M{"$in": dialogIDs}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	for cur.Next(ctx) {
		row := &model.DialogStats{}
		if err := cur.Decode(row); err != nil {
			return nil, errs.Wrap(err)
		}
		out[row.DialogID] = row
	}
	return out, cur.Err()
}

// ListUnreadByDialogs pack 内所有用户的未读行。
func (s *Store) ListUnreadByDialogs(ctx context.Context, tenantID string, dialogIDs []string) ([]*model.UserDialogStats, error) {
	if len(dialogIDs) == 0 {
		return nil, nil
	}
	cur, err := s.userDialog().Find(ctx, bson.M{"tenant_id": tenantID, "dialog_id": bson.M{"$in": dialogIDs}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []*model.UserDialogStats
	for cur.Next(ctx) {
		row := &model.UserDialogStats{}
		if err := cur.Decode(row); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, row)
	}
	return out, cur.Err()
}

// ListUnreadByUser 用户名下全部未读行，user stats 重算用。
func (s *Store) ListUnreadByUser(ctx context.Context, tenantID, userID string) ([]*model.UserDialogStats, error) {
	cur, err := s.userDialog().Find(ctx, bson.M{"tenant_id": tenantID, "user_id": userID})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []*model.UserDialogStats
	for cur.Next(ctx) {
		row := &model.UserDialogStats{}
		if err := cur.Decode(row); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, row)
	}
	return out, cur.Err()
}

// ===== 全量覆盖（幂等）=====

func (s *Store) ReplaceDialogStats(ctx context.Context, row *model.DialogStats) error {
	_, err := s.dialogStats().ReplaceOne(ctx,
		bson.M{"tenant_id": row.TenantID, "dialog_id": row.DialogID},
		row, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "replace dialog stats", "dialog_id", row.DialogID)
}

func (s *Store) ReplaceUserStats(ctx context.Context, row *model.UserStats) error {
	if row.LastUpdatedAtMS == 0 {
		row.LastUpdatedAtMS = time.Now().UnixMilli()
	}
	_, err := s.userStats().ReplaceOne(ctx,
		bson.M{"tenant_id": row.TenantID, "user_id": row.UserID},
		row, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "replace user stats", "user_id", row.UserID)
}

func (s *Store) ReplacePackStats(ctx context.Context, row *model.PackStats) error {
	if row.LastUpdatedAtMS == 0 {
		row.LastUpdatedAtMS = time.Now().UnixMilli()
	}
	_, err := s.packStats().ReplaceOne(ctx,
		bson.M{"tenant_id": row.TenantID, "pack_id": row.PackID},
		row, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "replace pack stats", "pack_id", row.PackID)
}

func (s *Store) ReplaceUserPackStats(ctx context.Context, row *model.UserPackStats) error {
	if row.LastUpdatedAtMS == 0 {
		row.LastUpdatedAtMS = time.Now().UnixMilli()
	}
	_, err := s.userPackStats().ReplaceOne(ctx,
		bson.M{"tenant_id": row.TenantID, "pack_id": row.PackID, "user_id": row.UserID},
		row, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "replace user pack stats", "pack_id", row.PackID, "user_id", row.UserID)
}
