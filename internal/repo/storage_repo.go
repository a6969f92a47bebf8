package repo

import (
	"context"

	"github.com/go-orz/orz"
	"github.com/xiannn/fitlog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewStorageRepo(db *gorm.DB) *StorageRepo {
	return &StorageRepo{
		Repository: orz.NewRepository[models.StorageEntry, string](db),
	}
}

type StorageRepo struct {
	orz.Repository[models.StorageEntry, string]
}

// GetValue 读取指定键的原始值，不存在时返回 gorm.ErrRecordNotFound
func (r StorageRepo) GetValue(ctx context.Context, key string) ([]byte, error) {
	var m models.StorageEntry
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("key = ?", key).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return m.Value, nil
}

// PutValue 写入（upsert）指定键的值
func (r StorageRepo) PutValue(ctx context.Context, key string, value []byte) error {
	db := r.GetDB(ctx)
	entry := models.StorageEntry{Key: key, Value: value}
	return db.Table(r.GetTableName()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
}
