package utils

import (
	"github.com/rs/zerolog"
)

// CronLogger 将 robfig/cron 的日志桥接到 zerolog
// 实现 cron.Logger 接口
type CronLogger struct {
	logger zerolog.Logger
}

// NewCronLogger 创建定时任务日志器
func NewCronLogger() CronLogger {
	return CronLogger{logger: Component("cron")}
}

// Info cron 的常规日志(唤醒、调度)较频繁,按调试级别输出
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

// Error 输出错误日志
func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
