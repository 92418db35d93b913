package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// requestTimeout 单个请求超时
const requestTimeout = 30 * time.Second

// StaticCrawler 静态爬取器(使用Colly)
type StaticCrawler struct {
	opts Options
}

// NewStaticCrawler 创建静态爬取器
func NewStaticCrawler(opts Options) *StaticCrawler {
	return &StaticCrawler{opts: normalizeOptions(opts)}
}

// staticRun 单次爬取的状态
// colly 的访问历史无法清空,每次 Crawl 使用新的 collector
type staticRun struct {
	opts      Options
	found     *discoverySet
	extractor *URLExtractor

	mu      sync.Mutex
	claimed map[string]bool
	visited int
	failed  int
}

// Crawl 从入口URL开始爬取,返回发现的页面URL
// 返回值包含响应成功(状态码<400)的页面,以及被 ShouldCrawl 拒绝而未请求的链接
func (sc *StaticCrawler) Crawl(ctx context.Context, rootURL string) ([]string, error) {
	startTime := time.Now()

	root, parsed, err := canonicalLink(rootURL)
	if err != nil {
		return nil, fmt.Errorf("入口URL无效: %w", err)
	}

	run := &staticRun{
		opts:      sc.opts,
		found:     newDiscoverySet(),
		extractor: NewURLExtractor(parsed.Host, sc.opts.Config.AllowCrossDomain),
		claimed:   map[string]bool{root: true},
	}

	if !sc.opts.ShouldCrawl(root) {
		utils.Warnf("入口URL不需要爬取: %s", utils.RedactURL(root))
		run.found.Add(root)
		return run.found.List(), nil
	}

	workers := workerCount(sc.opts)
	c := sc.newCollector(ctx, workers)
	run.setupCallbacks(c)

	utils.Infof("🔍 静态爬取模式启动")
	utils.Infof("目标URL: %s", utils.RedactURL(root))
	utils.Infof("最大深度: %d", sc.opts.Config.Depth)
	utils.Infof("并发数: %d", workers)

	if err := c.Visit(root); err != nil {
		return nil, fmt.Errorf("访问入口URL失败: %w", err)
	}

	waitDone := make(chan struct{})
	go func() {
		c.Wait()
		close(waitDone)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-waitDone:
			break wait
		case <-ticker.C:
			visited, failed := run.counts()
			utils.Infof("进度: 已访问 %d 个URL, 已发现 %d 个页面, 失败 %d 个",
				visited, run.found.Len(), failed)
		case <-ctx.Done():
			utils.Warnf("静态爬取被取消,等待进行中的请求结束")
			<-waitDone
			break wait
		}
	}

	visited, failed := run.counts()
	utils.Infof("✅ 静态爬取完成")
	utils.Infof("访问URL数: %d, 发现页面数: %d, 失败数: %d", visited, run.found.Len(), failed)
	utils.Infof("总耗时: %.2f秒", time.Since(startTime).Seconds())

	return run.found.List(), ctx.Err()
}

// newCollector 创建 collector
func (sc *StaticCrawler) newCollector(ctx context.Context, workers int) *colly.Collector {
	cfg := sc.opts.Config

	c := colly.NewCollector(
		colly.Async(true),
		colly.MaxBodySize(cfg.MaxResponseSize),
		colly.StdlibContext(ctx),
	)

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}
	if cfg.InsecureSkipVerify {
		utils.Warnf("⚠️  调试模式: 静态爬取器已跳过TLS证书验证")
	}
	c.WithTransport(transport)
	c.SetRequestTimeout(requestTimeout)

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: workers,
	}); err != nil {
		utils.Warnf("设置并发限制失败: %v", err)
	}

	return c
}

// setupCallbacks 设置Colly回调
func (run *staticRun) setupCallbacks(c *colly.Collector) {
	c.OnRequest(func(r *colly.Request) {
		applyHeaders(run.opts.Headers, r.Headers.Set)

		run.mu.Lock()
		run.visited++
		run.mu.Unlock()
		utils.Debugf("访问: %s", r.URL.String())
	})

	// OnResponse 先于 OnHTML 执行,解压后的内容用于链接提取
	c.OnResponse(func(r *colly.Response) {
		decodeBody(r)
		if r.StatusCode >= 400 {
			return
		}
		if link, _, err := canonicalLink(r.Request.URL.String()); err == nil {
			run.found.Add(link)
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if isNofollow(e.Attr("rel")) {
			return
		}
		run.follow(e.Request, e.Request.AbsoluteURL(e.Attr("href")))
	})

	c.OnError(func(r *colly.Response, err error) {
		run.mu.Lock()
		run.failed++
		run.mu.Unlock()

		if r.StatusCode > 0 {
			utils.Warnf("页面响应异常 [%s]: 状态码 %d", r.Request.URL, r.StatusCode)
			return
		}
		utils.Errorf("爬取错误 [%s]: %v", r.Request.URL, err)
	})
}

// follow 处理页面中发现的链接
func (run *staticRun) follow(from *colly.Request, rawLink string) {
	if rawLink == "" {
		return
	}
	if ok, _ := run.extractor.ShouldFollowLink(rawLink); !ok {
		return
	}
	link, _, err := canonicalLink(rawLink)
	if err != nil {
		return
	}

	if from.Depth >= run.opts.Config.Depth {
		utils.Debugf("页面深度达到限制: %s (深度=%d, 限制=%d)", link, from.Depth, run.opts.Config.Depth)
		return
	}

	if !run.claim(link) {
		return
	}

	if !run.opts.ShouldCrawl(link) {
		run.found.Add(link)
		return
	}

	if err := from.Visit(link); err != nil {
		utils.Debugf("访问链接失败 [%s]: %v", link, err)
	}
}

// claim 链接第一次出现时返回 true
func (run *staticRun) claim(link string) bool {
	run.mu.Lock()
	defer run.mu.Unlock()

	if run.claimed[link] {
		return false
	}
	run.claimed[link] = true
	return true
}

func (run *staticRun) counts() (visited, failed int) {
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.visited, run.failed
}

// decodeBody 按 Content-Encoding 解压响应体
// colly 已自行解压的 gzip 响应保持原样
func decodeBody(r *colly.Response) {
	encoding := r.Headers.Get("Content-Encoding")
	if encoding == "" {
		return
	}
	if strings.EqualFold(strings.TrimSpace(encoding), "gzip") && !isGzip(r.Body) {
		return
	}

	decompressed, err := decompressResponse(encoding, r.Body)
	if err != nil {
		utils.Warnf("解压响应失败 [%s] (编码=%s): %v", r.Request.URL, encoding, err)
		return
	}
	utils.Debugf("成功解压响应 [%s]: 原始=%d bytes, 解压后=%d bytes", r.Request.URL, len(r.Body), len(decompressed))
	r.Body = decompressed
}

func isGzip(body []byte) bool {
	return len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b
}

// decompressResponse 根据Content-Encoding解压响应体
// 支持 gzip, deflate, br,未知编码原样返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
