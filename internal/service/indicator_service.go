package service

import (
	"fmt"

	"github.com/xiannn/fitlog/pkg/market"
	"github.com/xiannn/fitlog/pkg/ta"
)

// 图表使用的两条均线周期
const (
	FastPeriod = 20
	SlowPeriod = 60
)

// 趋势强弱的距离阈值（百分比），仅用于展示文案
const strongTrendPct = 0.5

// IndicatorService 均线与交叉信号计算服务
type IndicatorService struct{}

// NewIndicatorService 创建指标服务
func NewIndicatorService() *IndicatorService {
	return &IndicatorService{}
}

// MAPoint 均线点，时间对齐所在K线自身的时间戳（不后移）
type MAPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Signal 均线交叉信号
type Signal string

const (
	SignalGoldenCross  Signal = "golden-cross"
	SignalDeathCross   Signal = "death-cross"
	SignalNone         Signal = "none"
	SignalInsufficient Signal = "insufficient-data"
)

// MovingAverage 计算收盘价的简单移动平均
// 只有下标 >= period-1 的K线产生均线点，结果长度为 max(0, n-period+1)
func (s *IndicatorService) MovingAverage(candles []market.Candle, period int) []MAPoint {
	if period <= 0 || len(candles) < period {
		return nil
	}

	closes := make([]float64, len(candles))
	for i := range candles {
		closes[i] = candles[i].Close
	}

	values := ta.SMA(closes, period)
	points := make([]MAPoint, len(values))
	for i, v := range values {
		points[i] = MAPoint{Time: candles[period-1+i].Time, Value: v}
	}
	return points
}

// DetectCrossover 检测快线对慢线的交叉
// 只看两条序列的最后两个点，与更早的历史无关
// 前一根差值恰好为0时，方向由最新一根的严格符号决定：0→正算金叉，0→负算死叉，0→0无信号
// 任一序列不足2个点时返回 insufficient-data，这是首次加载或短周期下的正常状态，不是错误
func (s *IndicatorService) DetectCrossover(fast, slow []MAPoint) Signal {
	if len(fast) < 2 || len(slow) < 2 {
		return SignalInsufficient
	}

	f := []float64{fast[len(fast)-2].Value, fast[len(fast)-1].Value}
	l := []float64{slow[len(slow)-2].Value, slow[len(slow)-1].Value}

	switch {
	case ta.Crossover(f, l):
		return SignalGoldenCross
	case ta.Crossunder(f, l):
		return SignalDeathCross
	default:
		return SignalNone
	}
}

// Trend 均线距离趋势，展示用途
type Trend struct {
	DistPct float64 `json:"dist_pct"` // (快线-慢线)/慢线 * 100
	Bullish bool    `json:"bullish"`
	Strong  bool    `json:"strong"`
	Text    string  `json:"text"`
}

// TrendStrength 根据两条均线最新值计算趋势文案，数据不足返回 nil
func (s *IndicatorService) TrendStrength(fast, slow []MAPoint) *Trend {
	if len(fast) == 0 || len(slow) == 0 {
		return nil
	}
	slowLast := slow[len(slow)-1].Value
	if slowLast == 0 {
		return nil
	}

	diff := fast[len(fast)-1].Value - slowLast
	distPct := diff / slowLast * 100

	t := &Trend{
		DistPct: distPct,
		Bullish: diff > 0,
		Strong:  distPct > strongTrendPct || distPct < -strongTrendPct,
	}

	switch {
	case t.Bullish && t.Strong:
		t.Text = fmt.Sprintf("偏多趨勢（強） +%.2f%%", distPct)
	case t.Bullish:
		t.Text = fmt.Sprintf("偏多趨勢 +%.2f%%", distPct)
	case t.Strong:
		t.Text = fmt.Sprintf("偏空趨勢（強） %.2f%%", distPct)
	default:
		t.Text = fmt.Sprintf("偏空趨勢 %.2f%%", distPct)
	}
	return t
}

// SignalText 信号的展示文案，明确标注为观察提示而非投资建议
func (s *IndicatorService) SignalText(sig Signal) string {
	switch sig {
	case SignalGoldenCross:
		return "🟢 黃金交叉：MA20 上穿 MA60（偏多訊號）"
	case SignalDeathCross:
		return "🔴 死亡交叉：MA20 下穿 MA60（偏空訊號）"
	case SignalInsufficient:
		return "— 訊號資料不足（至少要 61 根 K 線）"
	default:
		return "— 本次更新：無交叉訊號"
	}
}
