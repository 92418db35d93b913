package core

import (
	"fmt"
	"net/http"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
)

// DefaultUserAgent 默认User-Agent
const DefaultUserAgent = "Mozilla/5.0 (compatible; SitemapRefresh/1.0; +https://www.sitemaps.org)"

// headerLayer 一层头部来源,后面的层覆盖前面的层
type headerLayer struct {
	source  string
	headers http.Header
}

// HeaderManager 爬虫和内容类型探测共用的请求头
// 合并顺序: 默认 < 配置文件 crawl.headers < 命令行 -H
type HeaderManager struct {
	layers   []headerLayer
	redactor *utils.HeaderRedactor
	merged   http.Header
}

var _ models.HeaderProvider = (*HeaderManager)(nil)

// NewHeaderManager 创建头部管理器
// 命令行参数格式错误或任何一层包含非法头部时返回错误
func NewHeaderManager(configHeaders http.Header, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	config := make(http.Header, len(configHeaders))
	for name, values := range configHeaders {
		config[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}

	hm := &HeaderManager{
		layers: []headerLayer{
			{source: "默认", headers: defaultHeaders()},
			{source: "配置文件", headers: config},
			{source: "命令行", headers: cli},
		},
		redactor: utils.NewHeaderRedactor(),
	}

	if err := hm.Validate(); err != nil {
		return nil, err
	}
	hm.merged = hm.GetMergedHeaders()

	if len(config)+len(cli) > 0 {
		utils.Debugf("自定义HTTP头部: %s", hm.redactor.RedactToString(hm.merged))
	}
	return hm, nil
}

func defaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      {DefaultUserAgent},
		"Accept":          {"text/html,application/xhtml+xml,*/*;q=0.8"},
		"Accept-Encoding": {"gzip, deflate, br"},
	}
}

// Validate 逐层校验头部,错误信息带上来源
func (hm *HeaderManager) Validate() error {
	validator := utils.NewHeaderValidator()
	for _, layer := range hm.layers {
		if err := validator.Validate(layer.headers); err != nil {
			return fmt.Errorf("%s头部校验失败: %w", layer.source, err)
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并所有层
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range hm.layers {
		for name, values := range layer.headers {
			result[name] = values
		}
	}
	return result
}

// GetSafeHeaders 脱敏后的合并头部,用于日志
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.merged)
}

// GetHeaders 实现 HeaderProvider,返回副本
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	return hm.merged.Clone(), nil
}
