package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrBrowserCrashed 浏览器操作 panic
var ErrBrowserCrashed = errors.New("浏览器崩溃")

// DynamicCrawler 动态爬取器(使用Rod)
// 页面在无头浏览器中渲染后再提取链接,用于依赖JavaScript生成导航的站点
type DynamicCrawler struct {
	opts Options
}

// NewDynamicCrawler 创建动态爬取器
func NewDynamicCrawler(opts Options) *DynamicCrawler {
	return &DynamicCrawler{opts: normalizeOptions(opts)}
}

// dynamicRun 单次爬取的状态
type dynamicRun struct {
	opts      Options
	found     *discoverySet
	queue     *URLQueue
	extractor *URLExtractor
	pool      *PagePool

	// 已入队但未处理完的URL数,归零时关闭队列
	remaining int64
	failed    int64
}

// Crawl 从入口URL开始爬取,返回发现的页面URL
func (dc *DynamicCrawler) Crawl(ctx context.Context, rootURL string) (urls []string, err error) {
	startTime := time.Now()

	root, parsed, err := canonicalLink(rootURL)
	if err != nil {
		return nil, fmt.Errorf("入口URL无效: %w", err)
	}

	found := newDiscoverySet()
	if !dc.opts.ShouldCrawl(root) {
		utils.Warnf("入口URL不需要爬取: %s", utils.RedactURL(root))
		found.Add(root)
		return found.List(), nil
	}

	browser, cleanup, err := dc.launchBrowser(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic: %v", r)
			urls, err = found.List(), ErrBrowserCrashed
		}
	}()

	workers := workerCount(dc.opts)
	if workers > maxWorkerLimit {
		workers = maxWorkerLimit
	}

	run := &dynamicRun{
		opts:      dc.opts,
		found:     found,
		queue:     NewURLQueue(parsed.Host, dc.opts.Config.AllowCrossDomain, dc.opts.Config.Depth),
		extractor: NewURLExtractor(parsed.Host, dc.opts.Config.AllowCrossDomain),
		pool:      NewPagePool(browser, workers),
	}
	defer run.pool.Close()

	utils.Infof("🌐 动态爬取模式启动")
	utils.Infof("目标URL: %s", utils.RedactURL(root))
	utils.Infof("等待时间: %v", dc.opts.Config.WaitTime)
	utils.Infof("最大深度: %d, 并发标签页: %d", dc.opts.Config.Depth, workers)

	run.push(models.URLItem{URL: root, Depth: 1})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			run.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	utils.Infof("✅ 动态爬取完成")
	utils.Infof("发现页面数: %d, 失败数: %d", found.Len(), atomic.LoadInt64(&run.failed))
	utils.Infof("总耗时: %.2f秒", time.Since(startTime).Seconds())

	return found.List(), ctx.Err()
}

// launchBrowser 启动浏览器
func (dc *DynamicCrawler) launchBrowser(ctx context.Context) (*rod.Browser, func(), error) {
	cfg := dc.opts.Config

	l := launcher.New().Headless(cfg.Headless)
	if cfg.ChromeBinaryPath != "" {
		l = l.Bin(cfg.ChromeBinaryPath)
	}
	if cfg.InsecureSkipVerify {
		l = l.Set("ignore-certificate-errors")
		utils.Warnf("⚠️  调试模式: 浏览器启动参数 --ignore-certificate-errors")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	cleanup := func() {
		if err := browser.Close(); err != nil {
			utils.Debugf("关闭浏览器失败: %v", err)
		}
		l.Cleanup()
		utils.Debug("浏览器已关闭")
	}
	return browser, cleanup, nil
}

// push 入队并计数
func (run *dynamicRun) push(item models.URLItem) bool {
	atomic.AddInt64(&run.remaining, 1)
	if err := run.queue.Push(item); err != nil {
		atomic.AddInt64(&run.remaining, -1)
		utils.Debugf("跳过链接 %s: %v", item.URL, err)
		return false
	}
	return true
}

// done 一个URL处理完成,全部完成时关闭队列
func (run *dynamicRun) done() {
	if atomic.AddInt64(&run.remaining, -1) == 0 {
		run.queue.Close()
	}
}

// worker 从队列拉取URL并渲染
func (run *dynamicRun) worker(ctx context.Context, workerID int) {
	for {
		item, ok := run.queue.Pop(ctx)
		if !ok {
			return
		}

		if err := run.crawlPage(ctx, item); err != nil {
			atomic.AddInt64(&run.failed, 1)
			utils.Warnf("Worker %d 爬取失败 [%s]: %v", workerID, item.URL, err)
		}
		run.done()
	}
}

// crawlPage 渲染单个页面并提取链接
func (run *dynamicRun) crawlPage(ctx context.Context, item models.URLItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("页面爬取panic: %v", r)
		}
	}()

	utils.Debugf("访问页面: %s (深度: %d)", item.URL, item.Depth)

	page, err := run.pool.AcquirePage(ctx)
	if err != nil {
		return err
	}
	defer run.pool.ReleasePage(page)

	p := page.Context(ctx).Timeout(requestTimeout + run.opts.Config.WaitTime)

	var headers []string
	applyHeaders(run.opts.Headers, func(name, value string) {
		headers = append(headers, name, value)
	})
	if len(headers) > 0 {
		restore, err := p.SetExtraHeaders(headers)
		if err != nil {
			return fmt.Errorf("设置请求头失败: %w", err)
		}
		defer restore()
	}

	status := 0
	waitDocument := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := p.Navigate(item.URL); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	waitDocument()

	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}

	if wait := run.opts.Config.WaitTime; wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if status >= 400 {
		return fmt.Errorf("页面响应状态码 %d", status)
	}
	run.found.Add(item.URL)

	if item.Depth >= run.opts.Config.Depth {
		return nil
	}

	content, err := p.HTML()
	if err != nil {
		return fmt.Errorf("读取页面内容失败: %w", err)
	}

	links, err := run.extractor.ExtractFromHTML(content, item.URL)
	if err != nil {
		return err
	}

	queued := 0
	for _, link := range links {
		if run.queue.IsVisited(link) {
			continue
		}
		if !run.opts.ShouldCrawl(link) {
			run.queue.MarkVisited(link)
			run.found.Add(link)
			continue
		}
		if run.push(models.URLItem{URL: link, Depth: item.Depth + 1, SourceURL: item.URL}) {
			queued++
		}
	}

	if queued > 0 {
		utils.Debugf("从页面提取了 %d 个链接: %s (待爬: %d, 标签页: %d)",
			queued, item.URL, run.queue.PendingCount(), run.pool.CurrentSize())
	}
	return nil
}
