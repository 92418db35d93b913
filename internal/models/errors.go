package models

import (
	"errors"
	"fmt"
)

// 错误类型定义
// 每一类错误都可以通过 errors.Is 判断
var (
	ErrRouteNotFound         = errors.New("路由不存在")
	ErrMethodNotAllowed      = errors.New("路由不支持GET方法")
	ErrRecordBindingFailed   = errors.New("路由记录绑定失败")
	ErrInvalidConfiguration  = errors.New("配置值无效")
	ErrHookContractViolation = errors.New("补全钩子不符合约定")
	ErrExportWriteFailed     = errors.New("站点地图写入失败")
)

// ErrorKind 错误分类,用于上报策略
type ErrorKind string

const (
	KindRouteNotFound         ErrorKind = "RouteNotFound"
	KindMethodNotAllowed      ErrorKind = "MethodNotAllowed"
	KindRecordBindingFailed   ErrorKind = "RecordBindingFailed"
	KindInvalidConfiguration  ErrorKind = "InvalidConfigurationValue"
	KindHookContractViolation ErrorKind = "ExtensionHookContractViolation"
	KindExportWriteFailed     ErrorKind = "ExportWriteFailed"
	KindUnknown               ErrorKind = "Unknown"
)

// KindOf 根据错误链判断错误分类
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrRouteNotFound):
		return KindRouteNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return KindMethodNotAllowed
	case errors.Is(err, ErrRecordBindingFailed):
		return KindRecordBindingFailed
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrHookContractViolation):
		return KindHookContractViolation
	case errors.Is(err, ErrExportWriteFailed):
		return KindExportWriteFailed
	default:
		return KindUnknown
	}
}

// ResolveError URL无法解析为GET路由
type ResolveError struct {
	URL   string
	Cause error // ErrRouteNotFound 或 ErrMethodNotAllowed
}

// Error 实现error接口
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v: %s", e.Cause, e.URL)
}

// Unwrap 支持errors.Is
func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// BindingError 路由参数指向的记录不存在
type BindingError struct {
	URL       string
	RouteName string
	Param     string
	Value     string
	Cause     error
}

// Error 实现error接口
func (e *BindingError) Error() string {
	msg := fmt.Sprintf("路由 %s 的参数 %s=%q 未找到对应记录 (%s)", e.RouteName, e.Param, e.Value, e.URL)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap 支持errors.Is
func (e *BindingError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrRecordBindingFailed}
	}
	return []error{ErrRecordBindingFailed, e.Cause}
}

// InvalidValueError 频率或优先级取值不在固定集合内
type InvalidValueError struct {
	Setting  string // frequency 或 priority
	Value    string
	Accepted string
}

// Error 实现error接口
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("配置错误 %s: %s 不在 %s 之中", e.Setting, e.Value, e.Accepted)
}

// Unwrap 支持errors.Is
func (e *InvalidValueError) Unwrap() error {
	return ErrInvalidConfiguration
}

// HookError 补全钩子校验失败
type HookError struct {
	Name   string
	Reason string
}

// Error 实现error接口
func (e *HookError) Error() string {
	return fmt.Sprintf("补全钩子 %q 无效: %s", e.Name, e.Reason)
}

// Unwrap 支持errors.Is
func (e *HookError) Unwrap() error {
	return ErrHookContractViolation
}

// ExportError 写入站点地图文件失败
type ExportError struct {
	Path  string
	Cause error
}

// Error 实现error接口
func (e *ExportError) Error() string {
	return fmt.Sprintf("写入站点地图失败 [%s]: %v", e.Path, e.Cause)
}

// Unwrap 支持errors.Is
func (e *ExportError) Unwrap() []error {
	return []error{ErrExportWriteFailed, e.Cause}
}

// ConfigError 配置文件错误
// 表示配置文件解析失败
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
