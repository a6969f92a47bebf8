//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/handler"
	"github.com/xiannn/fitlog/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewMarketHandler,
		handler.NewLogHandler,
	)

	serviceSet = wire.NewSet(
		provideMarketClient,
		service.NewIndicatorService,
		service.NewStorageService,
		wire.Bind(new(service.Storage), new(*service.StorageService)),
		service.NewLogService,
		service.NewCoachService,
		service.NewMarketService,
		service.NewRefreshLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		serviceSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
