package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/xiannn/fitlog/internal/service"
	"github.com/xiannn/fitlog/pkg/market"
	"go.uber.org/zap"
)

// MarketHandler 行情相关HTTP处理器
type MarketHandler struct {
	logger        *zap.Logger
	marketService *service.MarketService
	client        *market.Client
}

// NewMarketHandler 创建行情处理器
func NewMarketHandler(
	logger *zap.Logger,
	marketService *service.MarketService,
	client *market.Client,
) *MarketHandler {
	return &MarketHandler{
		logger:        logger,
		marketService: marketService,
		client:        client,
	}
}

// Klines K线代理
// GET /api/klines?symbol=&interval=&limit=
// 成功时原样转发第一个可用镜像的响应体，允许短时间公共缓存
func (h *MarketHandler) Klines(c echo.Context) error {
	ctx := c.Request().Context()

	symbol := strings.ToUpper(c.QueryParam("symbol"))
	if symbol == "" {
		symbol = h.marketService.Symbol()
	}
	interval := c.QueryParam("interval")
	if interval == "" {
		interval = "1h"
	}
	limit := cast.ToInt(c.QueryParam("limit"))

	if !market.ValidInterval(interval) {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid interval",
		})
	}

	raw, err := h.client.FetchRaw(ctx, symbol, interval, limit)
	if err != nil {
		h.logger.Warn("kline proxy exhausted all mirrors",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error": "upstream failed",
		})
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=10")
	return c.Blob(http.StatusOK, "application/json; charset=utf-8", raw)
}

// Overview 图表快照：K线 + MA20/MA60 + 交叉信号 + 日志标记
// GET /api/market/overview?interval=
func (h *MarketHandler) Overview(c echo.Context) error {
	ctx := c.Request().Context()

	snap, err := h.marketService.Overview(ctx, c.QueryParam("interval"))
	if err != nil {
		var oe *orz.Error
		if errors.As(err, &oe) {
			// 参数类错误交给统一错误处理
			return err
		}
		// 本会话从未成功渲染过，错误信息已翻译为用户可读文案
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, snap)
}

// Intervals 支持的K线周期列表
// GET /api/market/intervals
func (h *MarketHandler) Intervals(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"intervals": market.Intervals(),
		"current":   h.marketService.Interval(),
	})
}

// RegisterRoutes 注册路由
func (h *MarketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/klines", h.Klines)

	m := g.Group("/market")
	m.GET("/overview", h.Overview)
	m.GET("/intervals", h.Intervals)
}
