package ta

import "github.com/markcheno/go-talib"

func Last(s []float64, position int) float64 {
	return s[len(s)-1-position]
}

// Crossover s1 上穿 s2：前值不高于对方，最新值严格高于对方
func Crossover(s1, s2 []float64) bool {
	return Last(s1, 0) > Last(s2, 0) && Last(s1, 1) <= Last(s2, 1)
}

// Crossunder s1 下穿 s2：前值不低于对方，最新值严格低于对方
// 注意严格比较只落在最新值上，前值相等时方向由最新值决定
func Crossunder(s1, s2 []float64) bool {
	return Last(s1, 0) < Last(s2, 0) && Last(s1, 1) >= Last(s2, 1)
}

func LastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// SMA 计算简单移动平均，只保留完整窗口的部分
// 输入不足一个周期时返回 nil，否则结果长度为 len(values) - period + 1
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := talib.Sma(values, period)
	return out[period-1:]
}
