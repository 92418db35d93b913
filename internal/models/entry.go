package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ChangeFrequency 站点地图 changefreq 取值
type ChangeFrequency string

const (
	FrequencyAlways  ChangeFrequency = "always"
	FrequencyHourly  ChangeFrequency = "hourly"
	FrequencyDaily   ChangeFrequency = "daily"
	FrequencyWeekly  ChangeFrequency = "weekly"
	FrequencyMonthly ChangeFrequency = "monthly"
	FrequencyYearly  ChangeFrequency = "yearly"
	FrequencyNever   ChangeFrequency = "never"
)

// AcceptedFrequencies 允许配置的全部更新频率
var AcceptedFrequencies = []ChangeFrequency{
	FrequencyAlways,
	FrequencyHourly,
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyMonthly,
	FrequencyYearly,
	FrequencyNever,
}

// ParseChangeFrequency 校验并转换更新频率
// 不在固定枚举内的取值返回 InvalidValueError,不做任何修正
func ParseChangeFrequency(value string) (ChangeFrequency, error) {
	for _, freq := range AcceptedFrequencies {
		if string(freq) == value {
			return freq, nil
		}
	}

	accepted := make([]string, 0, len(AcceptedFrequencies))
	for _, freq := range AcceptedFrequencies {
		accepted = append(accepted, string(freq))
	}

	return "", &InvalidValueError{
		Setting:  "frequency",
		Value:    value,
		Accepted: strings.Join(accepted, ","),
	}
}

// Priority 站点地图优先级,以十分之一为单位存储(0-10)
// 避免浮点比较误差
type Priority int

const (
	// MinPriority 最低优先级 0.0
	MinPriority Priority = 0
	// MaxPriority 最高优先级 1.0
	MaxPriority Priority = 10
	// DefaultPriority 默认优先级 0.5
	DefaultPriority Priority = 5
)

// ParsePriority 校验并转换优先级
// 只接受 0.0 到 1.0 之间步长 0.1 的取值,例如 0.55 会被拒绝
func ParsePriority(value float64) (Priority, error) {
	tenths := value * 10
	rounded := math.Round(tenths)

	if math.IsNaN(value) || math.Abs(tenths-rounded) > 1e-9 ||
		rounded < float64(MinPriority) || rounded > float64(MaxPriority) {
		return 0, &InvalidValueError{
			Setting:  "priority",
			Value:    formatFloat(value),
			Accepted: AcceptedPriorities(),
		}
	}

	return Priority(rounded), nil
}

// Float 返回浮点形式
func (p Priority) Float() float64 {
	return float64(p) / 10
}

// String 返回一位小数的文本形式,如 "0.5"
func (p Priority) String() string {
	return fmt.Sprintf("%.1f", p.Float())
}

// AcceptedPriorities 从高到低列出可接受的优先级
func AcceptedPriorities() string {
	values := make([]string, 0, MaxPriority+1)
	for p := MaxPriority; p >= MinPriority; p-- {
		values = append(values, p.String())
	}
	return strings.Join(values, ",")
}

func formatFloat(value float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", value), "0"), ".")
}

// Entry 站点地图条目
type Entry struct {
	URL             string          `json:"url"`                     // 绝对URL,同时作为唯一键
	RouteName       string          `json:"route_name"`              // 解析得到的路由名称
	LastModified    *time.Time      `json:"last_modified,omitempty"` // 关联记录的最后修改时间
	ChangeFrequency ChangeFrequency `json:"change_frequency"`        // 更新频率
	Priority        Priority        `json:"priority"`                // 优先级
}

// LastChange 返回用于表格展示的最后修改时间,格式 DD/MM/YYYY HHhmm
func (e *Entry) LastChange() string {
	if e.LastModified == nil {
		return ""
	}
	return e.LastModified.Format("02/01/2006 15h04")
}
