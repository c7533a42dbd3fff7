package store

import (
	"context"
	"time"

	"DProject/data/database"
	"DProject/module/event/model"
	"DProject/tools/errs"
	"DProject/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	DB *mongo.Database
}

func New(db *mongo.Database) *Store { return &Store{DB: db} }

func (s *Store) events() *mongo.Collection  { return database.Coll(s.DB, &model.Event{}) }
func (s *Store) updates() *mongo.Collection { return database.Coll(s.DB, &model.Update{}) }

// Append 幂等落库：按 event_id upsert，重复投递不会写第二份。
func (s *Store) Append(ctx context.Context, ev *model.Event) error {
	if ev.EventID == "" {
		ev.EventID = ids.NewULID()
	}
	if ev.CreatedAtMS == 0 {
		ev.CreatedAtMS = time.Now().UnixMilli()
	}
	_, err := s.events().UpdateOne(ctx,
		bson.M{"tenant_id": ev.TenantID, "event_id": ev.EventID},
		bson.M{"$setOnInsert": ev},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errs.WrapMsg(err, "append event", "event_id", ev.EventID)
	}
	return nil
}

// Filter 观测端查询条件，零值字段不参与过滤。
type Filter struct {
	EventType  string
	EntityType string
	EntityID   string
	ActorID    string
	FromMS     int64
	ToMS       int64
}

// Query 按时间倒序返回最多 limit 条事件。
func (s *Store) Query(ctx context.Context, tenantID string, f Filter, limit int64) ([]*model.Event, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := bson.M{"tenant_id": tenantID}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.EntityType != "" {
		q["entity_type"] = f.EntityType
	}
	if f.EntityID != "" {
		q["entity_id"] = f.EntityID
	}
	if f.ActorID != "" {
		q["actor_id"] = f.ActorID
	}
	if f.FromMS > 0 || f.ToMS > 0 {
		rng := bson.M{}
		if f.FromMS > 0 {
			rng["$gte"] = f.FromMS
		}
		if f.ToMS > 0 {
			rng["$lte"] = f.ToMS
		}
		q["created_at_ms"] = rng
	}

	cur, err := s.events().Find(ctx, q,
		options.Find().SetSort(bson.D{{Key: "created_at_ms", Value: -1}, {Key: "event_id", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, errs.WrapMsg(err, "query events", "tenant_id", tenantID)
	}
	defer func() { _ = cur.Close(ctx) }()

	var out []*model.Event
	for cur.Next(ctx) {
		ev := &model.Event{}
		if err := cur.Decode(ev); err != nil {
			return nil, errs.Wrap(err)
		}
		out = append(out, ev)
	}
	return out, cur.Err()
}

// DeleteOlderThan 保留期清理，删除 cutoff 之前的事件，返回删除条数。
// tenantID 为空时作用于全部租户（worker 的周期清理）。
func (s *Store) DeleteOlderThan(ctx context.Context, tenantID string, cutoffMS int64) (int64, error) {
	q := bson.M{"created_at_ms": bson.M{"$lt": cutoffMS}}
	if tenantID != "" {
		q["tenant_id"] = tenantID
	}
	res, err := s.events().DeleteMany(ctx, q)
	if err != nil {
		return 0, errs.WrapMsg(err, "retention cleanup", "tenant_id", tenantID)
	}
	return res.DeletedCount, nil
}

// AppendUpdate 写入按受众投影，幂等键 (tenant_id, audience_id, event_id)。
func (s *Store) AppendUpdate(ctx context.Context, u *model.Update) error {
	if u.UpdateID == "" {
		u.UpdateID = ids.GenerateString()
	}
	if u.CreatedAtMS == 0 {
		u.CreatedAtMS = time.Now().UnixMilli()
	}
	_, err := s.updates().UpdateOne(ctx,
		bson.M{"tenant_id": u.TenantID, "audience_id": u.AudienceID, "event_id": u.EventID, "kind": u.Kind},
		bson.M{"$setOnInsert": u},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errs.WrapMsg(err, "append update", "event_id", u.EventID, "kind", u.Kind)
	}
	return nil
}
