package database

import "go.mongodb.org/mongo-driver/mongo"

// Table 由各集合模型实现，集合名集中声明在模型侧。
type Table interface {
	GetTableName() string
}

// Coll 按模型声明的集合名取集合句柄。
func Coll(db *mongo.Database, t Table) *mongo.Collection {
	return db.Collection(t.GetTableName())
}
