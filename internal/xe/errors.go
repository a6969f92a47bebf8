package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams   = orz.NewError(10400, "参数无效")
	ErrInvalidInterval = orz.NewError(20400, "不支持的K线周期")
	ErrUpstreamFailed  = orz.NewError(20502, "上游行情接口不可用")

	ErrLogNotFound     = orz.NewError(20404, "训练日志不存在")
	ErrEmptyLogFields  = orz.NewError(20001, "标题和内容不能为空")
	ErrInvalidLogDate  = orz.NewError(20002, "日期格式无效，应为 yyyy-MM-dd")
	ErrConfirmRequired = orz.NewError(20003, "清空操作需要显式确认")
)
