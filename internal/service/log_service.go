package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/xiannn/fitlog/internal/models"
	"github.com/xiannn/fitlog/internal/xe"
	"go.uber.org/zap"
)

// TrainingLogKey 训练日志整包存储键
const TrainingLogKey = "training-logs"

const dateLayout = "2006-01-02"

// LogService 训练日志服务
// 集合常驻内存，每次变更整体序列化后镜像到存储键
// 存储读写失败不影响内存集合，静默降级为仅内存会话
//
// 已知限制：整包读改写没有跨进程协调，两个实例同时写会互相覆盖
type LogService struct {
	logger  *zap.Logger
	storage Storage

	mu      sync.RWMutex
	entries []models.TrainingLog
}

// NewLogService 创建日志服务并从存储加载既有集合
func NewLogService(logger *zap.Logger, storage Storage) *LogService {
	s := &LogService{
		logger:  logger,
		storage: storage,
	}
	s.load()
	return s
}

func (s *LogService) load() {
	data, err := s.storage.Get(context.Background(), TrainingLogKey)
	if err != nil {
		if !IsNotFound(err) {
			s.logger.Warn("training log storage unavailable, starting with empty in-memory collection",
				zap.Error(err))
		}
		return
	}

	var entries []models.TrainingLog
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("training log payload malformed, starting with empty in-memory collection",
			zap.Error(err))
		return
	}
	s.entries = entries
}

// persist 将整个集合写回存储键，失败只告警不反馈给调用方
func (s *LogService) persist(ctx context.Context) {
	data, err := json.Marshal(s.entries)
	if err != nil {
		s.logger.Warn("failed to marshal training logs", zap.Error(err))
		return
	}
	if err := s.storage.Put(ctx, TrainingLogKey, data); err != nil {
		s.logger.Warn("training log persistence degraded to memory only", zap.Error(err))
	}
}

// CreateLogInput 创建条目的输入
type CreateLogInput struct {
	Date    string `json:"date"`
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Feeling string `json:"feeling"`
}

// UpdateLogInput 更新条目的输入，nil 字段不变更
type UpdateLogInput struct {
	Date    *string `json:"date"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Feeling *string `json:"feeling"`
}

// Create 新建条目，标题与内容去空白后必须非空
func (s *LogService) Create(ctx context.Context, input CreateLogInput) (models.TrainingLog, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" {
		return models.TrainingLog{}, xe.ErrEmptyLogFields
	}

	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = time.Now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return models.TrainingLog{}, xe.ErrInvalidLogDate
	}

	now := time.Now()
	entry := models.TrainingLog{
		ID:        ulid.Make().String(),
		Date:      date,
		Title:     title,
		Content:   content,
		Feeling:   strings.TrimSpace(input.Feeling),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	s.persist(ctx)
	return entry, nil
}

// Update 更新条目，id 与 createdAt 不可变，updatedAt 严格前进
func (s *LogService) Update(ctx context.Context, id string, input UpdateLogInput) (models.TrainingLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.TrainingLog{}, xe.ErrLogNotFound
	}
	entry := s.entries[idx]

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return models.TrainingLog{}, xe.ErrEmptyLogFields
		}
		entry.Title = title
	}
	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return models.TrainingLog{}, xe.ErrEmptyLogFields
		}
		entry.Content = content
	}
	if input.Feeling != nil {
		entry.Feeling = strings.TrimSpace(*input.Feeling)
	}
	if input.Date != nil {
		date := strings.TrimSpace(*input.Date)
		if _, err := time.Parse(dateLayout, date); err != nil {
			return models.TrainingLog{}, xe.ErrInvalidLogDate
		}
		entry.Date = date
	}

	now := time.Now()
	if !now.After(entry.UpdatedAt) {
		now = entry.UpdatedAt.Add(time.Millisecond)
	}
	entry.UpdatedAt = now

	s.entries[idx] = entry
	s.persist(ctx)
	return entry, nil
}

// Delete 按 id 删除单个条目
func (s *LogService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return xe.ErrLogNotFound
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	s.persist(ctx)
	return nil
}

// Clear 清空整个集合，不可逆，调用方必须显式确认
func (s *LogService) Clear(ctx context.Context, confirm bool) error {
	if !confirm {
		return xe.ErrConfirmRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.persist(ctx)
	return nil
}

// List 查询条目
// query 为空返回全集，否则对 日期+标题+内容+感受 做大小写不敏感子串匹配
// 排序：日期降序，同日期按 updatedAt 降序
func (s *LogService) List(query string) []models.TrainingLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.TrainingLog, 0, len(s.entries))
	for i := range s.entries {
		if query == "" || strings.Contains(strings.ToLower(s.entries[i].Haystack()), query) {
			out = append(out, s.entries[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Recent 按日期降序返回最近 n 条，供周报分析使用
func (s *LogService) Recent(n int) []models.TrainingLog {
	out := s.List("")
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MarkerDates 返回去重后的日志日期，供图表标记使用
func (s *LogService) MarkerDates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.entries))
	dates := make([]string, 0, len(s.entries))
	for i := range s.entries {
		if _, ok := seen[s.entries[i].Date]; ok {
			continue
		}
		seen[s.entries[i].Date] = struct{}{}
		dates = append(dates, s.entries[i].Date)
	}
	sort.Strings(dates)
	return dates
}

func (s *LogService) indexOf(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}
