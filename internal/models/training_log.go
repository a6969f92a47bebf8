package models

import "time"

// TrainingLog 训练日志条目
// 整个集合序列化为一个JSON数组存入单个存储键，每次变更整体重写
type TrainingLog struct {
	ID      string `json:"id"`
	Date    string `json:"date"` // yyyy-MM-dd，无时间部分
	Title   string `json:"title"`
	Content string `json:"content"`
	// 留空时不落库（序列化时省略），而不是存空字符串
	Feeling   string    `json:"feeling,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Haystack 拼接所有可检索文本，供大小写不敏感的子串搜索使用
func (t *TrainingLog) Haystack() string {
	return t.Date + " " + t.Title + " " + t.Content + " " + t.Feeling
}
