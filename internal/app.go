package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/handler"
	"github.com/xiannn/fitlog/internal/models"
	"github.com/xiannn/fitlog/internal/service"
	"github.com/xiannn/fitlog/internal/telegram"
	"github.com/xiannn/fitlog/pkg/nostd"
	"github.com/xiannn/fitlog/web"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewFitlogApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewFitlogApp() orz.Application {
	return &FitlogApp{}
}

var _ orz.Application = (*FitlogApp)(nil)

type AppComponents struct {
	MarketHandler *handler.MarketHandler
	LogHandler    *handler.LogHandler

	RefreshLoop   *service.RefreshLoop
	MarketService *service.MarketService
	LogService    *service.LogService
	CoachService  *service.CoachService

	tg *telegram.Telegram
}

type FitlogApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *FitlogApp) GetComponents() *AppComponents {
	return r.components
}

func (r *FitlogApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	// 键值表先于组件建好，日志服务构造时要从里面加载集合
	if err := db.AutoMigrate(models.StorageEntry{}); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		r.components.MarketHandler.RegisterRoutes(api)
		r.components.LogHandler.RegisterRoutes(api)
	}

	return nil
}

func (r *FitlogApp) Init(logger *zap.Logger) error {
	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.tg != nil {
		components.tg.Start()
	}

	logger.Info("fitlog starting",
		zap.String("symbol", components.MarketService.Symbol()),
		zap.String("interval", components.MarketService.Interval()))

	go func() {
		if err := components.RefreshLoop.Start(context.Background()); err != nil {
			logger.Error("refresh loop error", zap.Error(err))
		}
	}()
	return nil
}
