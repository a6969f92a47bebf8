package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-orz/orz"
	"github.com/xiannn/fitlog/internal/repo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Storage 日志存储与K线缓存共用的键值接口
// 图表标记和日志CRUD都经由它读写，便于测试时替换为内存实现
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Subscribe(key string, fn func())
}

// StorageService 基于数据库键值表的存储实现，写入成功后通知订阅者
type StorageService struct {
	logger *zap.Logger

	*orz.Service
	storageRepo *repo.StorageRepo

	mu   sync.RWMutex
	subs map[string][]func()
}

var _ Storage = (*StorageService)(nil)

// NewStorageService 创建存储服务
func NewStorageService(db *gorm.DB, logger *zap.Logger) *StorageService {
	return &StorageService{
		logger:      logger,
		Service:     orz.NewService(db),
		storageRepo: repo.NewStorageRepo(db),
		subs:        make(map[string][]func()),
	}
}

func (s *StorageService) Get(ctx context.Context, key string) ([]byte, error) {
	return s.storageRepo.GetValue(ctx, key)
}

func (s *StorageService) Put(ctx context.Context, key string, value []byte) error {
	if err := s.storageRepo.PutValue(ctx, key, value); err != nil {
		return err
	}
	s.notify(key)
	return nil
}

// Subscribe 注册键变更回调
// 回调在写入成功后异步触发，避免与持锁的写入方互相等待
func (s *StorageService) Subscribe(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[key] = append(s.subs[key], fn)
}

func (s *StorageService) notify(key string) {
	s.mu.RLock()
	fns := s.subs[key]
	s.mu.RUnlock()
	for _, fn := range fns {
		go fn()
	}
}

// IsNotFound 判断键不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
