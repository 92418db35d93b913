package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewRunID 生成运行ID
func NewRunID() string {
	return uuid.NewString()
}

// RunReport 生成报告
type RunReport struct {
	// 任务信息
	RunID     string    `json:"run_id"`
	TargetURL string    `json:"target_url"`
	Mode      CrawlMode `json:"mode"`
	Status    RunStatus `json:"status"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// 统计信息
	Stats RunStats `json:"stats"`

	// 上报的失败
	Failures []FailureInfo `json:"failures"`

	// 输出路径
	OutputPath string `json:"output_path"`

	// 配置快照
	Config CrawlConfig `json:"config"`
}

// FailureInfo 上报的失败信息
type FailureInfo struct {
	URL         string    `json:"url"`
	Kind        ErrorKind `json:"kind"`
	ErrorMsg    string    `json:"error_msg"`
	ContentType string    `json:"content_type,omitempty"`
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
