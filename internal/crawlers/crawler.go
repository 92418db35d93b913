package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
)

// Crawler 站点爬虫
// Crawl 返回本次发现的页面URL,顺序为发现顺序
type Crawler interface {
	Crawl(ctx context.Context, rootURL string) ([]string, error)
}

// ShouldCrawlFunc 判断URL是否需要访问
// 返回 false 的URL不会被请求,但仍然作为发现结果返回
type ShouldCrawlFunc func(rawURL string) bool

// Options 爬虫依赖
type Options struct {
	Config      models.CrawlConfig
	Headers     models.HeaderProvider
	ShouldCrawl ShouldCrawlFunc
	Monitor     *ResourceMonitor
}

// New 根据配置选择爬取模式
func New(opts Options) Crawler {
	if opts.Config.Mode() == models.ModeDynamic {
		return NewDynamicCrawler(opts)
	}
	return NewStaticCrawler(opts)
}

// normalizeOptions 填充默认值
func normalizeOptions(opts Options) Options {
	if opts.Config.MaxResponseSize == 0 {
		opts.Config.MaxResponseSize = models.DefaultMaxResponseSize
	}
	if opts.Config.Depth <= 0 {
		opts.Config.Depth = 3
	}
	if opts.Monitor == nil {
		opts.Monitor = NewResourceMonitor(ResourceMonitorConfig{})
	}
	if opts.ShouldCrawl == nil {
		opts.ShouldCrawl = func(string) bool { return true }
	}
	return opts
}

// workerCount 实际并发数,配置为0时按系统资源计算
func workerCount(opts Options) int {
	if opts.Config.MaxWorkers > 0 {
		return opts.Config.MaxWorkers
	}
	return opts.Monitor.CalculateMaxWorkers()
}

// discoverySet 按发现顺序记录URL
type discoverySet struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

func newDiscoverySet() *discoverySet {
	return &discoverySet{seen: make(map[string]bool)}
}

// Add 记录URL,重复时返回 false
func (d *discoverySet) Add(rawURL string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen[rawURL] {
		return false
	}
	d.seen[rawURL] = true
	d.order = append(d.order, rawURL)
	return true
}

// List 返回发现结果副本
func (d *discoverySet) List() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

// Len 返回已发现数量
func (d *discoverySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// canonicalLink 去掉片段,只接受 http/https
func canonicalLink(rawURL string) (string, *url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", nil, fmt.Errorf("URL格式无效: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", nil, fmt.Errorf("不支持的协议: %s", parsed.Scheme)
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String(), parsed, nil
}

// applyHeaders 取出自定义请求头,失败时只记录警告
func applyHeaders(provider models.HeaderProvider, set func(name, value string)) {
	if provider == nil {
		return
	}
	headers, err := provider.GetHeaders()
	if err != nil {
		utils.Warnf("获取HTTP头部失败: %v", err)
		return
	}
	for name, values := range headers {
		if len(values) > 0 {
			set(name, values[0])
		}
	}
}
