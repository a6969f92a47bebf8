package market

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Candle 单根K线，时间为秒级时间戳（开盘时间）
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// intervals 按粒度从细到粗排列，limit 约束不同粒度下的单次数据量
var intervals = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

var intervalLimits = map[string]int{
	"1m":  300,
	"5m":  300,
	"15m": 300,
	"1h":  500,
	"4h":  500,
	"1d":  365,
}

// Intervals 返回支持的K线周期（按粒度排序）
func Intervals() []string {
	out := make([]string, len(intervals))
	copy(out, intervals)
	return out
}

// ValidInterval 判断周期是否在白名单内
func ValidInterval(interval string) bool {
	_, ok := intervalLimits[interval]
	return ok
}

// DefaultLimit 各周期的默认K线根数
func DefaultLimit(interval string) int {
	if limit, ok := intervalLimits[interval]; ok {
		return limit
	}
	return 500
}

// ParseCandles 解析上游K线行数组
// 每行形如 [openTimeMs, openStr, highStr, lowStr, closeStr, ...]，多余字段忽略
// 非数组、空数组、OHLC 非数字都视为非法响应
func ParseCandles(body []byte) ([]Candle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("kline body is not a row list: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("kline body is empty")
	}

	candles := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("kline row %d has %d fields, want at least 5", i, len(row))
		}

		var openTimeMs int64
		if err := json.Unmarshal(row[0], &openTimeMs); err != nil {
			return nil, fmt.Errorf("kline row %d: invalid open time: %w", i, err)
		}

		ohlc := make([]float64, 4)
		for j := 0; j < 4; j++ {
			var field string
			if err := json.Unmarshal(row[j+1], &field); err != nil {
				return nil, fmt.Errorf("kline row %d: field %d is not a string: %w", i, j+1, err)
			}
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d: field %d is not numeric: %w", i, j+1, err)
			}
			ohlc[j] = value
		}

		candles = append(candles, Candle{
			Time:  openTimeMs / 1000,
			Open:  ohlc[0],
			High:  ohlc[1],
			Low:   ohlc[2],
			Close: ohlc[3],
		})
	}

	return candles, nil
}
