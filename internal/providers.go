package internal

import (
	"net/http"
	"time"

	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/telegram"
	"github.com/xiannn/fitlog/pkg/market"
	"go.uber.org/zap"
)

func provideMarketClient(logger *zap.Logger, conf *config.Config) *market.Client {
	timeout := time.Duration(conf.Market.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = market.DefaultTimeout
	}
	return market.NewClient(logger, conf.Market.Mirrors, timeout)
}

// provideTelegram 未启用推送时返回 nil，依赖方自行判空
func provideTelegram(logger *zap.Logger, conf *config.Config) (*telegram.Telegram, error) {
	if !conf.Telegram.Enabled || conf.Telegram.Token == "" {
		return nil, nil
	}
	return telegram.NewTelegram(logger, telegram.Settings{
		Token: conf.Telegram.Token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	})
}
