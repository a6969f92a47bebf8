package config

type Config struct {
	Market   MarketConf   `json:"market"`
	Coach    CoachConf    `json:"coach"`
	Telegram TelegramConf `json:"telegram"`
}

type MarketConf struct {
	Symbol          string   `json:"symbol"`           // 交易对，默认 ETHUSDT
	Mirrors         []string `json:"mirrors"`          // 按顺序尝试的行情镜像域名，空则使用内置列表
	TimeoutSeconds  int      `json:"timeout_seconds"`  // 单镜像请求超时（秒），默认8
	RefreshSeconds  int      `json:"refresh_seconds"`  // 自动刷新周期（秒），默认30
	DefaultInterval string   `json:"default_interval"` // 默认K线周期，默认1h
}

type CoachConf struct {
	RecentLimit      int  `json:"recent_limit"`      // 周报分析窗口条数，默认30
	ExcludeUnmatched bool `json:"exclude_unmatched"` // 未命中任何部位关键词的条目是否排除在训练次数之外
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}
