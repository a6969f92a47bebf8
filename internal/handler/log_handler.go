package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/xiannn/fitlog/internal/service"
	"github.com/xiannn/fitlog/internal/xe"
	"go.uber.org/zap"
)

// LogHandler 训练日志HTTP处理器
type LogHandler struct {
	logger       *zap.Logger
	logService   *service.LogService
	coachService *service.CoachService
}

// NewLogHandler 创建日志处理器
func NewLogHandler(
	logger *zap.Logger,
	logService *service.LogService,
	coachService *service.CoachService,
) *LogHandler {
	return &LogHandler{
		logger:       logger,
		logService:   logService,
		coachService: coachService,
	}
}

// List 查询日志
// GET /api/logs?q=
func (h *LogHandler) List(c echo.Context) error {
	logs := h.logService.List(c.QueryParam("q"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(logs),
		"logs":  logs,
	})
}

// Create 新建日志
// POST /api/logs
func (h *LogHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.CreateLogInput
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	entry, err := h.logService.Create(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// Update 更新日志，只变更提交的字段
// PUT /api/logs/:id
func (h *LogHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	var req service.UpdateLogInput
	if err := c.Bind(&req); err != nil {
		return xe.ErrInvalidParams
	}

	entry, err := h.logService.Update(ctx, c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// Delete 删除单条日志
// DELETE /api/logs/:id
func (h *LogHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.logService.Delete(ctx, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "deleted",
	})
}

// Clear 清空全部日志，不可逆，必须带 confirm=true
// DELETE /api/logs?confirm=true
func (h *LogHandler) Clear(c echo.Context) error {
	ctx := c.Request().Context()

	confirm := cast.ToBool(c.QueryParam("confirm"))
	if err := h.logService.Clear(ctx, confirm); err != nil {
		return err
	}

	h.logger.Info("training logs cleared via API")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "cleared",
	})
}

// WeeklyAnalysis 免费教练周报
// GET /api/logs/analysis
func (h *LogHandler) WeeklyAnalysis(c echo.Context) error {
	entries := h.logService.Recent(h.coachService.RecentLimit())
	return c.JSON(http.StatusOK, h.coachService.Analyze(entries))
}

// RegisterRoutes 注册路由
func (h *LogHandler) RegisterRoutes(g *echo.Group) {
	logs := g.Group("/logs")

	logs.GET("", h.List)
	logs.POST("", h.Create)
	logs.GET("/analysis", h.WeeklyAnalysis)
	logs.PUT("/:id", h.Update)
	logs.DELETE("/:id", h.Delete)
	logs.DELETE("", h.Clear)
}
