package models

import (
	"fmt"
	"time"
)

// RunStatus 生成任务状态
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"   // 待执行
	RunStatusRunning   RunStatus = "running"   // 执行中
	RunStatusCompleted RunStatus = "completed" // 已完成
	RunStatusFailed    RunStatus = "failed"    // 失败
)

// CrawlMode 爬取模式
type CrawlMode string

const (
	ModeStatic  CrawlMode = "static"  // colly 静态爬取
	ModeDynamic CrawlMode = "dynamic" // 无头浏览器执行JavaScript
)

// DefaultMaxResponseSize 单个响应体上限 (3MB)
const DefaultMaxResponseSize = 3 * 1024 * 1024

// CrawlConfig 爬取配置
type CrawlConfig struct {
	Depth              int           `json:"depth"`                // 爬取深度 (默认:3)
	WaitTime           time.Duration `json:"wait_time"`            // 动态页面渲染等待时间
	MaxWorkers         int           `json:"max_workers"`          // 爬取并发数,0表示按系统资源计算
	MaxResponseSize    int           `json:"max_response_size"`    // 响应体上限(字节)
	ExecuteJavascript  bool          `json:"execute_javascript"`   // 使用无头浏览器
	ChromeBinaryPath   string        `json:"chrome_binary_path"`   // 自定义Chrome路径
	Headless           bool          `json:"headless"`             // 无头模式 (默认:true)
	AllowCrossDomain   bool          `json:"allow_cross_domain"`   // 允许跨域链接
	InsecureSkipVerify bool          `json:"insecure_skip_verify"` // 调试模式下跳过TLS校验
}

// 爬取深度范围
const (
	MinDepth = 1
	MaxDepth = 20
)

// Mode 返回当前配置对应的爬取模式
func (c *CrawlConfig) Mode() CrawlMode {
	if c.ExecuteJavascript {
		return ModeDynamic
	}
	return ModeStatic
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.Depth < MinDepth || c.Depth > MaxDepth {
		return fmt.Errorf("深度必须在%d-%d之间", MinDepth, MaxDepth)
	}
	if c.WaitTime < 0 || c.WaitTime > time.Minute {
		return fmt.Errorf("等待时间必须在0-60秒之间")
	}
	if c.MaxWorkers < 0 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在0-100之间")
	}
	if c.MaxResponseSize < 0 {
		return fmt.Errorf("响应体上限不能为负数")
	}
	return nil
}

// RunStats 单次生成的统计信息
type RunStats struct {
	Discovered int     `json:"discovered"` // 爬虫发现的URL数
	Accepted   int     `json:"accepted"`   // 写入站点地图的条目数
	Rejected   int     `json:"rejected"`   // 被过滤的URL数(忽略路由/查询参数)
	Failed     int     `json:"failed"`     // 解析或绑定失败的URL数
	Reported   int     `json:"reported"`   // 上报的失败数
	Merged     int     `json:"merged"`     // 补全钩子追加的条目数
	Duration   float64 `json:"duration"`   // 总耗时(秒)

	// FailuresByKind 按错误分类统计失败数
	FailuresByKind map[ErrorKind]int `json:"failures_by_kind,omitempty"`
}

// RecordFailure 记录一次失败
func (s *RunStats) RecordFailure(kind ErrorKind) {
	if s.FailuresByKind == nil {
		s.FailuresByKind = make(map[ErrorKind]int)
	}
	s.Failed++
	s.FailuresByKind[kind]++
}
