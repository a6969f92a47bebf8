package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valyala/fasttemplate"
	"github.com/xiannn/fitlog/internal/config"
	"github.com/xiannn/fitlog/internal/models"
	"go.uber.org/zap"
)

const defaultRecentLimit = 30

// Category 训练部位分类，关键词命中即计数
type Category struct {
	Key      string
	Label    string
	Keywords []string
}

// 分类表是静态配置，不是学出来的
// 一个条目可以同时命中多个部位，这是覆盖统计而不是互斥分类
var trainingParts = []Category{
	{Key: "chest", Label: "胸", Keywords: []string{"胸", "bench", "臥推", "上斜", "飛鳥"}},
	{Key: "back", Label: "背", Keywords: []string{"背", "划船", "下拉", "引體", "拉"}},
	{Key: "legs", Label: "腿", Keywords: []string{"腿", "深蹲", "硬舉", "腿推", "弓箭步", "腿屈伸"}},
	{Key: "shoulder", Label: "肩", Keywords: []string{"肩", "推舉", "側平舉", "後三角", "肩推"}},
	{Key: "arms", Label: "手", Keywords: []string{"二頭", "三頭", "彎舉", "下壓", "槌式"}},
	{Key: "core", Label: "核心", Keywords: []string{"核心", "腹", "棒式", "卷腹", "側棒式"}},
	{Key: "cardio", Label: "有氧", Keywords: []string{"跑", "慢跑", "飛輪", "划船機", "HIIT", "走路"}},
}

var fatigueWords = []string{"累", "痛", "疲勞", "睡不好", "沒力", "痠", "不舒服", "緊"}

const captionTemplate = "本週訓練 {days} 天，主打 {top}，下週要補 {low}。{tone}\n\n#健身紀錄 #BuildInPublic #XiannnLog"

// CategoryCount 部位计数，按次数降序
type CategoryCount struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklyAnalysis 周报分析结果，按需计算不落库
type WeeklyAnalysis struct {
	WeekStart     string          `json:"week_start"` // 周一
	TotalSessions int             `json:"total_sessions"`
	Counts        []CategoryCount `json:"counts"`
	FatigueHits   int             `json:"fatigue_hits"`
	Summary       []string        `json:"summary"`
	NextWeekPlan  []string        `json:"next_week_plan"`
	IGCaption     string          `json:"ig_caption"`
}

// CoachService 免费教练：基于关键词频次的规则启发式
type CoachService struct {
	logger *zap.Logger
	conf   config.CoachConf
}

// NewCoachService 创建教练服务
func NewCoachService(conf *config.Config, logger *zap.Logger) *CoachService {
	return &CoachService{
		logger: logger,
		conf:   conf.Coach,
	}
}

// RecentLimit 分析窗口大小（最近多少条，按日期排序，不是固定日历范围）
func (s *CoachService) RecentLimit() int {
	if s.conf.RecentLimit > 0 {
		return s.conf.RecentLimit
	}
	return defaultRecentLimit
}

// Analyze 分析训练日志，产出以最近条目所在周（周一起点）为界的周报
func (s *CoachService) Analyze(entries []models.TrainingLog) *WeeklyAnalysis {
	logs := make([]models.TrainingLog, len(entries))
	copy(logs, entries)
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Date > logs[j].Date
	})
	if limit := s.RecentLimit(); len(logs) > limit {
		logs = logs[:limit]
	}

	baseDate := time.Now()
	if len(logs) > 0 {
		if d, err := time.Parse(dateLayout, logs[0].Date); err == nil {
			baseDate = d
		}
	}
	weekStart := mondayOf(baseDate)

	var inWeek []models.TrainingLog
	for _, entry := range logs {
		d, err := time.Parse(dateLayout, entry.Date)
		if err != nil {
			continue
		}
		if mondayOf(d) == weekStart {
			inWeek = append(inWeek, entry)
		}
	}

	counts := make(map[string]int, len(trainingParts))
	totalSessions := 0
	fatigueHits := 0
	for _, entry := range inWeek {
		hay := strings.TrimSpace(entry.Title + " " + entry.Content)
		matched := false
		for _, part := range trainingParts {
			if includesAny(hay, part.Keywords) {
				counts[part.Key]++
				matched = true
			}
		}
		// 未命中任何部位的条目是否计入训练次数是可配置的，默认计入
		if matched || !s.conf.ExcludeUnmatched {
			totalSessions++
		}
		if includesAny(entry.Feeling, fatigueWords) {
			fatigueHits++
		}
	}

	sorted := make([]CategoryCount, 0, len(trainingParts))
	for _, part := range trainingParts {
		sorted = append(sorted, CategoryCount{Key: part.Key, Label: part.Label, Count: counts[part.Key]})
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})

	top := sorted[0]
	// low[0] 是最弱部位
	low := []CategoryCount{sorted[len(sorted)-1], sorted[len(sorted)-2]}

	analysis := &WeeklyAnalysis{
		WeekStart:     weekStart,
		TotalSessions: totalSessions,
		Counts:        sorted,
		FatigueHits:   fatigueHits,
	}
	analysis.Summary = s.buildSummary(analysis)
	analysis.NextWeekPlan = []string{
		fmt.Sprintf("Day 1：%s（補弱項）＋核心 10 分", low[0].Label),
		fmt.Sprintf("Day 2：%s（維持強項）＋有氧 10–15 分", top.Label),
		fmt.Sprintf("Day 3：%s（補弱項）＋伸展/放鬆", low[1].Label),
	}
	analysis.IGCaption = s.buildCaption(analysis, top, low[0])
	return analysis
}

func (s *CoachService) buildSummary(a *WeeklyAnalysis) []string {
	var distribution string
	parts := make([]string, 0, len(a.Counts))
	for _, c := range a.Counts {
		if c.Count > 0 {
			parts = append(parts, fmt.Sprintf("%s×%d", c.Label, c.Count))
		}
	}
	if len(parts) > 0 {
		distribution = strings.Join(parts, "、")
	} else {
		distribution = "（尚未辨識到部位，建議在標題/內容加上胸背腿等關鍵字）"
	}

	fatigue := "疲勞訊號：少（可維持訓練）"
	if a.FatigueHits > 0 {
		fatigue = fmt.Sprintf("疲勞訊號：%d 次（建議降量/早睡/伸展/補水）", a.FatigueHits)
	}

	return []string{
		fmt.Sprintf("本週訓練：%d 次（週起點：%s）", a.TotalSessions, a.WeekStart),
		"部位分布：" + distribution,
		fatigue,
	}
}

func (s *CoachService) buildCaption(a *WeeklyAnalysis, top, low CategoryCount) string {
	tone := "狀態不錯，穩定推進。"
	if a.FatigueHits > 0 {
		tone = "狀態有點累，但我還是完成了。"
	}

	tmpl := fasttemplate.New(captionTemplate, "{", "}")
	return tmpl.ExecuteString(map[string]interface{}{
		"days": fmt.Sprintf("%d", a.TotalSessions),
		"top":  top.Label,
		"low":  low.Label,
		"tone": tone,
	})
}

// mondayOf 返回所在周的周一日期（周一为一周起点）
func mondayOf(d time.Time) string {
	offset := int(d.Weekday()) - 1
	if d.Weekday() == time.Sunday {
		offset = 6
	}
	return d.AddDate(0, 0, -offset).Format(dateLayout)
}

func includesAny(text string, keywords []string) bool {
	t := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(t, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
