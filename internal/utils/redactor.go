package utils

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

const (
	mask    = "***"
	urlMask = "REDACTED"
)

// sensitiveParts 名称中出现即视为敏感的片段 (小写)
var sensitiveParts = []string{"auth", "token", "key", "secret", "password", "passwd", "credential", "session"}

// HeaderRedactor 日志脱敏器
// 覆盖请求头部和URL中的凭据
type HeaderRedactor struct {
	parts []string
}

// NewHeaderRedactor 创建脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{parts: sensitiveParts}
}

// IsSensitiveHeader 判断头部或查询参数名称是否敏感
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	if lower == "cookie" || lower == "set-cookie" {
		return true
	}
	for _, part := range hr.parts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值,非敏感头部原样返回
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	if !hr.IsSensitiveHeader(name) {
		return value
	}
	if strings.EqualFold(name, "cookie") {
		return redactCookie(value)
	}
	// 保留认证方案,隐藏凭据
	if scheme, _, ok := strings.Cut(value, " "); ok && isAuthScheme(scheme) {
		return scheme + " " + mask
	}
	if len(value) > 8 {
		return value[:4] + mask + value[len(value)-4:]
	}
	return mask
}

// Redact 返回脱敏后的头部快照,每个头部只取第一个值
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = hr.RedactHeaderValue(name, values[0])
	}
	return result
}

// RedactToString 脱敏头部并按名称排序拼接为一行
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	redacted := hr.Redact(headers)
	names := make([]string, 0, len(redacted))
	for name := range redacted {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+redacted[name])
	}
	return strings.Join(parts, ", ")
}

// RedactURL 隐藏URL中的密码和敏感查询参数
// 无法解析的URL原样返回
func (hr *HeaderRedactor) RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.RawQuery != "" {
		query := u.Query()
		changed := false
		for name := range query {
			if hr.IsSensitiveHeader(name) {
				query.Set(name, urlMask)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}

	// Redacted 将密码替换为 xxxxx
	return u.Redacted()
}

// RedactURL 使用默认脱敏器处理URL
func RedactURL(raw string) string {
	return NewHeaderRedactor().RedactURL(raw)
}

func isAuthScheme(s string) bool {
	switch strings.ToLower(s) {
	case "bearer", "basic", "digest", "token":
		return true
	}
	return false
}

// redactCookie 保留cookie名称,隐藏取值
func redactCookie(value string) string {
	pairs := strings.Split(value, ";")
	for i, pair := range pairs {
		name, _, _ := strings.Cut(strings.TrimSpace(pair), "=")
		pairs[i] = name + "=" + mask
	}
	return strings.Join(pairs, "; ")
}
