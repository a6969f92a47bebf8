package models

import (
	"time"

	"gorm.io/datatypes"
)

// StorageEntry 键值存储槽位
// 训练日志整包存在 training-logs 键下，K线缓存按 klines:<symbol>:<interval> 分槽
type StorageEntry struct {
	Key       string         `gorm:"primaryKey;type:varchar(128)" json:"key"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (StorageEntry) TableName() string {
	return "storage_entries"
}
