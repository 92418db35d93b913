package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志器,未初始化时丢弃所有输出
var Logger zerolog.Logger

const (
	// MainLogFile 主日志文件名
	MainLogFile = "sitemap_refresh.log"
	// ErrorLogFile 错误日志文件名
	ErrorLogFile = "sitemap_refresh_error.log"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	LogDir     string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
	NoColor    bool
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// rotating 返回日志目录下按大小轮转的文件
func (c LogConfig) rotating(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(c.LogDir, name),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// InitLogger 初始化全局日志器
// 输出到控制台和主日志文件,error 及以上级别另写一份到错误日志
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    config.NoColor,
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(
		console,
		config.rotating(MainLogFile),
		&FilteredWriter{Writer: config.rotating(ErrorLogFile), MinLevel: zerolog.ErrorLevel},
	)).With().Timestamp().Caller().Logger()
	log.Logger = Logger

	Logger.Info().
		Str("level", level.String()).
		Str("log_dir", config.LogDir).
		Msg("日志系统初始化完成")
	return nil
}

// FilteredWriter 只转发不低于 MinLevel 的日志
// 不带级别的 Write 调用直接丢弃
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

func (w *FilteredWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

// WriteLevel 实现 zerolog.LevelWriter
func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.MinLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

// Info 快捷方法: 信息日志
func Info(msg string) {
	Logger.Info().Msg(msg)
}

// Infof 快捷方法: 格式化信息日志
func Infof(format string, args ...interface{}) {
	Logger.Info().Msgf(format, args...)
}

// Error 快捷方法: 带错误字段的错误日志
func Error(err error, msg string) {
	Logger.Error().Err(err).Msg(msg)
}

// Errorf 快捷方法: 格式化错误日志
func Errorf(format string, args ...interface{}) {
	Logger.Error().Msgf(format, args...)
}

// Warn 快捷方法: 警告日志
func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

// Warnf 快捷方法: 格式化警告日志
func Warnf(format string, args ...interface{}) {
	Logger.Warn().Msgf(format, args...)
}

// Debug 快捷方法: 调试日志
func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

// Debugf 快捷方法: 格式化调试日志
func Debugf(format string, args ...interface{}) {
	Logger.Debug().Msgf(format, args...)
}

// Component 返回带 component 字段的子日志器
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
