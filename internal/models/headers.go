package models

import (
	"fmt"
	"net/http"
	"strings"
)

// CliHeaders 命令行 -H 参数,每项格式为 "Name: Value"
type CliHeaders []string

// Parse 解析为 http.Header,同名头部后出现的覆盖先出现的
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header, len(ch))
	for i, raw := range ch {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 缺少冒号分隔符,应为 'Name: Value'", i+1)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 头部名称不能为空", i+1)
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

// HeaderProvider 定义HTTP头部提供者接口
// 爬虫和内容类型探测共用同一组头部
type HeaderProvider interface {
	// GetHeaders 返回当前有效的HTTP请求头部
	// 返回的http.Header已按优先级合并(默认 < 配置 < 命令行)
	GetHeaders() (http.Header, error)
}

// HeaderField 头部校验出错的部分
type HeaderField string

const (
	HeaderFieldName  HeaderField = "name"
	HeaderFieldValue HeaderField = "value"
)

// HeaderError 头部校验失败
// 头部来自配置或命令行,因此归类为配置错误
type HeaderError struct {
	Field      HeaderField
	Header     string
	Reason     string
	Suggestion string
}

// NewHeaderError 创建头部校验错误
func NewHeaderError(field HeaderField, header, reason, suggestion string) *HeaderError {
	return &HeaderError{Field: field, Header: header, Reason: reason, Suggestion: suggestion}
}

// Error 实现error接口
func (e *HeaderError) Error() string {
	msg := fmt.Sprintf("头部%s无效 [%s]: %s", e.fieldLabel(), e.Header, e.Reason)
	if e.Suggestion != "" {
		msg += " (建议: " + e.Suggestion + ")"
	}
	return msg
}

// Unwrap 使 errors.Is(err, ErrInvalidConfiguration) 成立
func (e *HeaderError) Unwrap() error {
	return ErrInvalidConfiguration
}

func (e *HeaderError) fieldLabel() string {
	if e.Field == HeaderFieldValue {
		return "值"
	}
	return "名称"
}
