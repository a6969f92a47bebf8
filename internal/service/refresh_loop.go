package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/telegram"
	"go.uber.org/zap"
)

// RefreshLoop 行情自动刷新调度器
// 每个图表实例只持有一个活动定时器，Start/Stop 和实例生命周期绑定，
// 停止后定时器不再触发（不遗留野定时器）
type RefreshLoop struct {
	conf    config.MarketConf
	market  *MarketService
	tg      *telegram.Telegram
	chatID  string
	logger  *zap.Logger

	mu         sync.Mutex
	isRunning  bool
	stopChan   chan struct{}
	cron       *cron.Cron
	cancel     context.CancelFunc
	lastSignal Signal
}

// NewRefreshLoop 创建刷新调度器，telegram 可以为 nil（未启用推送）
func NewRefreshLoop(
	conf *config.Config,
	market *MarketService,
	tg *telegram.Telegram,
	logger *zap.Logger,
) *RefreshLoop {
	return &RefreshLoop{
		conf:     conf.Market,
		market:   market,
		tg:       tg,
		chatID:   conf.Telegram.ChatID,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start 启动自动刷新，阻塞直到 Stop 或 ctx 取消
func (r *RefreshLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("refresh loop is already running")
	}
	r.isRunning = true

	ctx, r.cancel = context.WithCancel(ctx)

	seconds := r.conf.RefreshSeconds
	if seconds <= 0 {
		seconds = 30
	}
	spec := fmt.Sprintf("@every %ds", seconds)

	r.logger.Info("refresh loop started",
		zap.String("symbol", r.market.Symbol()),
		zap.Int("refresh_seconds", seconds))

	r.cron = cron.New(cron.WithSeconds())
	_, err := r.cron.AddFunc(spec, func() {
		r.tick(ctx)
	})
	if err != nil {
		r.isRunning = false
		r.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	r.cron.Start()
	r.mu.Unlock()

	// 立即刷一次，不等第一个周期
	go r.tick(ctx)

	select {
	case <-r.stopChan:
		r.logger.Info("refresh loop stopped by user")
		return nil
	case <-ctx.Done():
		r.logger.Info("refresh loop stopped by context")
		return ctx.Err()
	}
}

// Stop 停止自动刷新并等待在途任务完成
// 排水期间不持有 r.mu：在途的 tick 结束前还要拿这把锁记录信号状态
func (r *RefreshLoop) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	c := r.cron
	cancel := r.cancel
	stopChan := r.stopChan
	r.mu.Unlock()

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
	}
	if cancel != nil {
		cancel()
	}

	close(stopChan)
	r.logger.Info("refresh loop stopped")
}

// IsRunning 是否在运行
func (r *RefreshLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}

// tick 刷新一次当前周期
// MarketService 自带在途请求守卫：定时触发和手动切换周期挤在一起时，后到的触发直接no-op
func (r *RefreshLoop) tick(ctx context.Context) {
	snap, err := r.market.TryRefresh(ctx)
	if err != nil {
		r.logger.Warn("scheduled refresh failed", zap.Error(err))
		return
	}
	if snap == nil {
		return
	}
	r.notifySignalChange(snap)
}

// notifySignalChange 金叉/死叉发生时推送一条提醒
func (r *RefreshLoop) notifySignalChange(snap *Snapshot) {
	r.mu.Lock()
	prev := r.lastSignal
	r.lastSignal = snap.Signal
	r.mu.Unlock()

	if r.tg == nil || r.chatID == "" {
		return
	}
	if snap.Signal == prev {
		return
	}
	if snap.Signal != SignalGoldenCross && snap.Signal != SignalDeathCross {
		return
	}

	msg := fmt.Sprintf("%s/%s %s\n%s", snap.Symbol, snap.Interval, snap.SignalText, snap.TrendText)
	if err := r.tg.Notify(r.chatID, msg); err != nil {
		r.logger.Warn("failed to push signal notification", zap.Error(err))
	}
}
