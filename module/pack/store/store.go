package store

import (
	"context"

	"DProject/data/database"
	"DProject/module/pack/model"
	"DProject/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store pack 成员索引：pack→dialogs 与 dialog→packs 两个方向都要查。
type Store struct {
	DB *mongo.Database
}

func New(db *mongo.Database) *Store { return &Store{DB: db} }

func (s *Store) packs() *mongo.Collection { return database.Coll(s.DB, &model.Pack{}) }
func (s *Store) links() *mongo.Collection { return database.Coll(s.DB, &model.PackLink{}) }

// Get 返回 pack；不存在时返回 ErrRecordNotFound（与"pack 为空"区分）。
func (s *Store) Get(ctx context.Context, tenantID, packID string) (*model.Pack, error) {
	p := &model.Pack{}
	err := s.packs().FindOne(ctx, bson.M{"tenant_id": tenantID, "pack_id": packID}).Decode(p)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("pack not found", "pack_id", packID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return p, nil
}

// ListDialogIDs 当前挂在 pack 下的全部 dialog_id。
func (s *Store) ListDialogIDs(ctx context.Context, tenantID, packID string) ([]string, error) {
	vals, err := s.links().Distinct(ctx, "dialog_id", bson.M{"tenant_id": tenantID, "pack_id": packID})
	if err != nil {
		return nil, errs.WrapMsg(err, "list pack dialogs", "pack_id", packID)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out, nil
}

// ListPackIDsForDialog 会话所属的 pack；计数变动后据此触发重算。
func (s *Store) ListPackIDsForDialog(ctx context.Context, tenantID, dialogID string) ([]string, error) {
	vals, err := s.links().Distinct(ctx, "pack_id", bson.M{"tenant_id": tenantID, "dialog_id": dialogID})
	if err != nil {
		return nil, errs.WrapMsg(err, "list dialog packs", "dialog_id", dialogID)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			out = append(out, str)
		}
	}
	return out, nil
}

// Exists 只校验存在性，feed 的 not-found 判定用。
func (s *Store) Exists(ctx context.Context, tenantID, packID string) (bool, error) {
	err := s.packs().FindOne(ctx, bson.M{"tenant_id": tenantID, "pack_id": packID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(err)
	}
	return true, nil
}
