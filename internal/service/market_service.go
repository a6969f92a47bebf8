package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/xe"
	"github.com/xiannn/fitlog/pkg/market"
	"go.uber.org/zap"
)

const defaultSymbol = "ETHUSDT"

// Snapshot 单个图表实例的完整渲染数据
type Snapshot struct {
	Symbol     string          `json:"symbol"`
	Interval   string          `json:"interval"`
	Candles    []market.Candle `json:"candles"`
	MA20       []MAPoint       `json:"ma20"`
	MA60       []MAPoint       `json:"ma60"`
	Signal     Signal          `json:"signal"`
	SignalText string          `json:"signal_text"`
	TrendText  string          `json:"trend_text"`
	DistPct    float64         `json:"dist_pct"`
	Markers    []string        `json:"markers"` // 训练日志日期，图表标记用
	UpdatedAt  time.Time       `json:"updated_at"`
	Stale      bool            `json:"stale"`
	Notice     string          `json:"notice,omitempty"`
	Disclaimer string          `json:"disclaimer"`
}

// MarketService 行情快照服务
// 持有每个周期最近一次成功构建的快照；同一时刻最多一个请求在途，
// 周期切换会使在途请求的结果作废（迟到响应直接丢弃）
type MarketService struct {
	logger    *zap.Logger
	conf      config.MarketConf
	client    *market.Client
	indicator *IndicatorService
	storage   Storage
	logs      *LogService

	symbol string

	requestID atomic.Int64
	inFlight  atomic.Bool

	mu        sync.RWMutex
	interval  string
	snapshots map[string]*Snapshot
}

// NewMarketService 创建行情快照服务
func NewMarketService(
	logger *zap.Logger,
	conf *config.Config,
	client *market.Client,
	indicator *IndicatorService,
	storage Storage,
	logs *LogService,
) *MarketService {
	symbol := strings.ToUpper(strings.TrimSpace(conf.Market.Symbol))
	if symbol == "" {
		symbol = defaultSymbol
	}
	interval := conf.Market.DefaultInterval
	if !market.ValidInterval(interval) {
		interval = "1h"
	}

	s := &MarketService{
		logger:    logger,
		conf:      conf.Market,
		client:    client,
		indicator: indicator,
		storage:   storage,
		logs:      logs,
		symbol:    symbol,
		interval:  interval,
		snapshots: make(map[string]*Snapshot),
	}

	// 日志变更时刷新已有快照上的图表标记
	storage.Subscribe(TrainingLogKey, s.refreshMarkers)

	return s
}

// Symbol 当前交易对
func (s *MarketService) Symbol() string {
	return s.symbol
}

// Interval 当前选中的K线周期
func (s *MarketService) Interval() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

// Current 当前周期的快照，可能为 nil
func (s *MarketService) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshots[s.interval]
}

// Overview 返回指定周期的快照，必要时同步拉取
// interval 为空沿用当前周期；切换周期会使在途的旧周期请求作废
func (s *MarketService) Overview(ctx context.Context, interval string) (*Snapshot, error) {
	if interval == "" {
		interval = s.Interval()
	}
	if !market.ValidInterval(interval) {
		return nil, xe.ErrInvalidInterval
	}

	changed := s.setInterval(interval)
	// 启动后的第一个请求也要吃到缓存，warmStart 自己会在快照已存在时跳过
	s.warmStart(ctx, interval)

	if snap := s.Current(); snap != nil && !changed && !snap.Stale &&
		time.Since(snap.UpdatedAt) < s.refreshPeriod() {
		return snap, nil
	}

	snap, err := s.TryRefresh(ctx)
	if err != nil || snap != nil {
		return snap, err
	}
	// 撞上在途请求且目标周期还没有任何快照，等它结束后补一次
	return s.awaitRefresh(ctx, interval)
}

// awaitRefresh 等待在途请求结束后为目标周期补拉一次
// 定时刷新和周期切换挤在同一时刻时走到这里，调用方要么拿到快照要么拿到错误
func (s *MarketService) awaitRefresh(ctx context.Context, interval string) (*Snapshot, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			s.mu.RLock()
			snap := s.snapshots[interval]
			s.mu.RUnlock()
			if snap != nil {
				return snap, nil
			}
			if s.inFlight.Load() {
				continue
			}
			snap, err := s.TryRefresh(ctx)
			if err != nil || snap != nil {
				return snap, err
			}
		}
	}
}

// TryRefresh 拉取当前周期的最新数据并重建快照
// 已有请求在途时直接no-op返回现有快照，不排队也不取消重来
func (s *MarketService) TryRefresh(ctx context.Context) (*Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return s.Current(), nil
	}
	defer s.inFlight.Store(false)

	interval := s.Interval()
	id := s.requestID.Add(1)

	raw, err := s.client.FetchRaw(ctx, s.symbol, interval, market.DefaultLimit(interval))
	if err != nil {
		return s.afterFetchFailure(interval, err)
	}

	// 请求期间周期被切换，这份结果已经作废
	if id != s.requestID.Load() {
		return s.Current(), nil
	}

	candles, err := market.ParseCandles(raw)
	if err != nil {
		return s.afterFetchFailure(interval, err)
	}

	s.cachePut(ctx, interval, raw)

	snap := s.buildSnapshot(interval, candles, false, "")
	s.apply(interval, id, snap)
	return snap, nil
}

func (s *MarketService) setInterval(interval string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval == interval {
		return false
	}
	s.interval = interval
	// 作废在途的旧周期请求
	s.requestID.Add(1)
	return true
}

func (s *MarketService) refreshPeriod() time.Duration {
	if s.conf.RefreshSeconds > 0 {
		return time.Duration(s.conf.RefreshSeconds) * time.Second
	}
	return 30 * time.Second
}

// warmStart 用缓存槽里最近一次成功的原始响应先渲染一版过期快照
// 缓存读取失败不影响主拉取路径
func (s *MarketService) warmStart(ctx context.Context, interval string) {
	s.mu.RLock()
	_, exists := s.snapshots[interval]
	s.mu.RUnlock()
	if exists {
		return
	}

	raw, err := s.storage.Get(ctx, s.cacheKey(interval))
	if err != nil {
		if !IsNotFound(err) {
			s.logger.Debug("kline cache read failed", zap.String("interval", interval), zap.Error(err))
		}
		return
	}
	candles, err := market.ParseCandles(raw)
	if err != nil {
		s.logger.Debug("kline cache payload malformed", zap.String("interval", interval), zap.Error(err))
		return
	}

	snap := s.buildSnapshot(interval, candles, true, "快取資料，等待更新")
	s.mu.Lock()
	if _, ok := s.snapshots[interval]; !ok {
		s.snapshots[interval] = snap
	}
	s.mu.Unlock()
}

func (s *MarketService) cachePut(ctx context.Context, interval string, raw []byte) {
	if err := s.storage.Put(ctx, s.cacheKey(interval), raw); err != nil {
		s.logger.Debug("kline cache write failed", zap.String("interval", interval), zap.Error(err))
	}
}

func (s *MarketService) cacheKey(interval string) string {
	return fmt.Sprintf("klines:%s:%s", s.symbol, interval)
}

func (s *MarketService) buildSnapshot(interval string, candles []market.Candle, stale bool, notice string) *Snapshot {
	ma20 := s.indicator.MovingAverage(candles, FastPeriod)
	ma60 := s.indicator.MovingAverage(candles, SlowPeriod)
	sig := s.indicator.DetectCrossover(ma20, ma60)

	snap := &Snapshot{
		Symbol:     s.symbol,
		Interval:   interval,
		Candles:    candles,
		MA20:       ma20,
		MA60:       ma60,
		Signal:     sig,
		SignalText: s.indicator.SignalText(sig),
		Markers:    s.logs.MarkerDates(),
		UpdatedAt:  time.Now(),
		Stale:      stale,
		Notice:     notice,
		Disclaimer: "※ 這是技術指標「觀察提示」，不是投資建議。",
	}

	if trend := s.indicator.TrendStrength(ma20, ma60); trend != nil {
		snap.TrendText = trend.Text
		snap.DistPct = trend.DistPct
	} else {
		snap.TrendText = "— MA 資料不足（至少要 60 根 K 線）"
	}

	return snap
}

func (s *MarketService) apply(interval string, id int64, snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.requestID.Load() {
		return
	}
	s.snapshots[interval] = snap
}

// afterFetchFailure 拉取失败的展示策略
// 本会话已经成功渲染过的周期保留旧数据并标记过期（不清空显示）；
// 从未成功过时向上返回用户可读的错误
func (s *MarketService) afterFetchFailure(interval string, err error) (*Snapshot, error) {
	s.logger.Warn("kline refresh failed",
		zap.String("symbol", s.symbol),
		zap.String("interval", interval),
		zap.Error(err))

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snapshots[interval]; ok {
		stale := *snap
		stale.Stale = true
		stale.Notice = "行情更新失敗，顯示最近一次成功的資料"
		s.snapshots[interval] = &stale
		return &stale, nil
	}
	return nil, errors.New(HumanError(err))
}

// refreshMarkers 日志集合变化后更新所有快照上的标记
func (s *MarketService) refreshMarkers() {
	markers := s.logs.MarkerDates()
	s.mu.Lock()
	defer s.mu.Unlock()
	for interval, snap := range s.snapshots {
		updated := *snap
		updated.Markers = markers
		s.snapshots[interval] = &updated
	}
}

// HumanError 把底层传输错误翻译成用户可读的提示
func HumanError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "行情請求逾時，網路可能不穩。建議換網路 / 重新整理 / 稍後再試。"
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "failed to fetch"):
		return "網路或跨網域請求被阻擋。建議換網路 / 重新整理 / 稍後再試。"
	default:
		return "資料載入失敗"
	}
}
