package utils

import (
	"fmt"
	"net/http"
	"sort"
	"unicode/utf8"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"golang.org/x/net/http/httpguts"
)

// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

// forbiddenHeaders 由HTTP客户端自己维护的头部,使用规范化名称
var forbiddenHeaders = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
}

// HeaderValidator 校验爬虫请求头部
// 名称只接受字母、数字和连字符,值只接受可打印ASCII
type HeaderValidator struct {
	maxValueLength int
}

// NewHeaderValidator 创建验证器
func NewHeaderValidator() *HeaderValidator {
	return &HeaderValidator{maxValueLength: MaxHeaderValueLength}
}

// IsForbidden 检查头部是否被禁止,不区分大小写
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return forbiddenHeaders[http.CanonicalHeaderKey(name)]
}

// ValidateName 验证头部名称
func (hv *HeaderValidator) ValidateName(name string) error {
	if name == "" {
		return models.NewHeaderError(models.HeaderFieldName, name, "头部名称不能为空", "")
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return models.NewHeaderError(models.HeaderFieldName, name,
				fmt.Sprintf("头部名称第%d个字符 %q 非法 (仅允许字母、数字和连字符)", i+1, name[i]),
				"使用如 'User-Agent', 'X-Custom-Header' 的名称")
		}
	}
	return nil
}

// ValidateValue 验证头部值
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > hv.maxValueLength {
		return models.NewHeaderError(models.HeaderFieldValue, name,
			fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), hv.maxValueLength),
			fmt.Sprintf("将值缩短至 %d 字节以内", hv.maxValueLength))
	}

	// httpguts 放行 obs-text,这里另外拒绝非ASCII
	if !httpguts.ValidHeaderFieldValue(value) || !isASCII(value) {
		return models.NewHeaderError(models.HeaderFieldValue, name,
			"头部值包含非法字符 (仅允许可打印ASCII字符)", "移除控制字符和非ASCII字符")
	}
	return nil
}

// ValidateHeader 依次检查禁止列表、名称和值
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if hv.IsForbidden(name) {
		return models.NewHeaderError(models.HeaderFieldName, name,
			"此头部由HTTP客户端自动管理,不允许自定义", fmt.Sprintf("移除 '%s' 头部配置", name))
	}
	if err := hv.ValidateName(name); err != nil {
		return err
	}
	return hv.ValidateValue(name, value)
}

// Validate 按名称顺序校验所有头部,返回第一个错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNameByte(c byte) bool {
	return c == '-' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
