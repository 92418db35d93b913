package crawlers

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
)

// ContentTypeProber 通过HEAD请求探测URL的内容类型
// 只用于决定路由解析失败是否需要上报
type ContentTypeProber struct {
	client  *http.Client
	headers models.HeaderProvider
}

// NewContentTypeProber 创建探测器
func NewContentTypeProber(cfg models.CrawlConfig, headers models.HeaderProvider) *ContentTypeProber {
	return &ContentTypeProber{
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: cfg.InsecureSkipVerify,
				},
			},
		},
		headers: headers,
	}
}

// Probe 返回响应的 Content-Type,请求失败时返回空字符串
func (p *ContentTypeProber) Probe(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		utils.Debugf("构造HEAD请求失败 [%s]: %v", rawURL, err)
		return ""
	}
	applyHeaders(p.headers, req.Header.Set)

	resp, err := p.client.Do(req)
	if err != nil {
		utils.Debugf("HEAD请求失败 [%s]: %v", rawURL, err)
		return ""
	}
	defer resp.Body.Close()

	return resp.Header.Get("Content-Type")
}
