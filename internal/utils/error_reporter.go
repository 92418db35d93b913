package utils

import (
	"sync"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
)

// ErrorReporter 错误上报通道
// 以error级别输出结构化日志,并保留本次运行的失败记录供报告使用
type ErrorReporter struct {
	mu       sync.Mutex
	failures []models.FailureInfo
}

// NewErrorReporter 创建错误上报器
func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{
		failures: make([]models.FailureInfo, 0),
	}
}

// Report 上报一次失败
// contentType 为探测到的内容类型,未探测时为空
func (r *ErrorReporter) Report(url string, err error, contentType string) {
	kind := models.KindOf(err)

	event := Logger.Error().
		Str("kind", string(kind)).
		Str("url", url).
		Err(err)
	if contentType != "" {
		event = event.Str("content_type", contentType)
	}
	event.Msg("🚨 站点地图条目处理失败")

	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures = append(r.failures, models.FailureInfo{
		URL:         url,
		Kind:        kind,
		ErrorMsg:    err.Error(),
		ContentType: contentType,
	})
}

// Failures 返回已上报失败的副本
func (r *ErrorReporter) Failures() []models.FailureInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.FailureInfo, len(r.failures))
	copy(result, r.failures)
	return result
}

// Count 返回已上报的失败数
func (r *ErrorReporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}
