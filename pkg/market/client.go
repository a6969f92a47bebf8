package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultMirrors 按顺序尝试的公开行情镜像域名
var DefaultMirrors = []string{
	"https://api.binance.com",
	"https://data-api.binance.vision",
	"https://api1.binance.com",
	"https://api2.binance.com",
	"https://api3.binance.com",
}

const DefaultTimeout = 8 * time.Second

// Client 行情K线客户端，按固定顺序对镜像做串行故障转移
// 没有退避和并发竞速，取第一个校验通过的响应
type Client struct {
	mirrors []string
	timeout time.Duration
	client  *resty.Client
	logger  *zap.Logger
}

// NewClient 创建行情客户端，mirrors 为空时使用默认镜像列表
func NewClient(logger *zap.Logger, mirrors []string, timeout time.Duration) *Client {
	if len(mirrors) == 0 {
		mirrors = DefaultMirrors
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	// 镜像故障转移自带重试语义，resty 内置重试保持关闭
	client.SetRetryCount(0)

	return &Client{
		mirrors: mirrors,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// Mirrors 返回镜像列表（按尝试顺序）
func (c *Client) Mirrors() []string {
	return c.mirrors
}

// FetchRaw 获取K线原始响应体
// 依次尝试每个镜像：网络错误、非2xx状态、响应体校验失败都会跳到下一个镜像，
// 第一个成功的响应立即返回，全部失败时返回聚合错误
func (c *Client) FetchRaw(ctx context.Context, symbol, interval string, limit int) ([]byte, error) {
	if !ValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}
	if limit <= 0 {
		limit = DefaultLimit(interval)
	}
	symbol = strings.ToUpper(symbol)

	failures := make([]string, 0, len(c.mirrors))
	for _, base := range c.mirrors {
		url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d", base, symbol, interval, limit)

		resp, err := c.client.R().SetContext(ctx).Get(url)
		if err != nil {
			c.logger.Warn("kline mirror request failed",
				zap.String("mirror", base),
				zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", base, err))
			continue
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			c.logger.Warn("kline mirror returned non-2xx",
				zap.String("mirror", base),
				zap.Int("status", resp.StatusCode()))
			failures = append(failures, fmt.Sprintf("%s: status %d", base, resp.StatusCode()))
			continue
		}

		body := resp.Body()
		if _, err := ParseCandles(body); err != nil {
			c.logger.Warn("kline mirror returned malformed body",
				zap.String("mirror", base),
				zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", base, err))
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("all %d kline mirrors failed: %s", len(c.mirrors), strings.Join(failures, "; "))
}

// Fetch 获取并解析K线数据，时间升序（与上游一致，不去重不补洞）
func (c *Client) Fetch(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	raw, err := c.FetchRaw(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	return ParseCandles(raw)
}
