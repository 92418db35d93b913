package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/crawlers"
	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/records"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
	"github.com/RecoveryAshes/SitemapRefresh/internal/sitemap"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// CrawlerFactory 根据爬取选项创建爬虫
type CrawlerFactory func(opts crawlers.Options) crawlers.Crawler

// URLsFileHook 内置补全钩子名称
const URLsFileHook = "urls-file"

// Result 一次生成的结果
type Result struct {
	Sitemap *sitemap.Sitemap
	Report  *models.RunReport
}

// Export 导出站点地图,输出目录不存在时先创建
func (r *Result) Export(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &models.ExportError{Path: path, Cause: err}
	}
	return r.Sitemap.Export(path)
}

// Generator 站点地图生成协调器
// 负责: 爬取 -> 丰富 -> 补全钩子 -> 统计
type Generator struct {
	settings *Settings
	headers  models.HeaderProvider

	table    routing.Table
	registry *records.Registry
	store    records.Store
	filter   *sitemap.EntryFilter
	rules    *sitemap.RuleSet

	newCrawler CrawlerFactory
	monitor    *crawlers.ResourceMonitor
	prober     sitemap.ContentTypeProber
	hooks      *sitemap.HookRegistry
	hook       sitemap.Completer
	progress   bool
}

// Option 生成器可选项
type Option func(*Generator)

// WithTable 使用指定路由表,默认按配置构建 GinTable
func WithTable(table routing.Table) Option {
	return func(g *Generator) { g.table = table }
}

// WithStore 使用指定记录存储,默认按 database 配置连接
func WithStore(store records.Store) Option {
	return func(g *Generator) { g.store = store }
}

// WithCrawler 使用指定爬虫工厂
func WithCrawler(factory CrawlerFactory) Option {
	return func(g *Generator) { g.newCrawler = factory }
}

// WithResourceMonitor 使用指定资源监控器计算未配置的并发数
func WithResourceMonitor(monitor *crawlers.ResourceMonitor) Option {
	return func(g *Generator) { g.monitor = monitor }
}

// WithProber 使用指定内容类型探测器
func WithProber(prober sitemap.ContentTypeProber) Option {
	return func(g *Generator) { g.prober = prober }
}

// WithHooks 使用指定补全钩子注册表
func WithHooks(hooks *sitemap.HookRegistry) Option {
	return func(g *Generator) { g.hooks = hooks }
}

// WithProgress 丰富阶段是否显示进度条 (交互模式)
func WithProgress(enabled bool) Option {
	return func(g *Generator) { g.progress = enabled }
}

// DefaultHooks 返回内置补全钩子
func DefaultHooks(settings *Settings) *sitemap.HookRegistry {
	hooks := sitemap.NewHookRegistry()
	hooks.Register(URLsFileHook, &sitemap.URLsFileHook{Path: settings.CompleteURLsFile, Base: settings.TargetURL})
	return hooks
}

// NewGenerator 创建生成器
// 路由表、记录类型、规则和补全钩子在这里校验,任何配置错误都在爬取前返回
func NewGenerator(settings *Settings, headers models.HeaderProvider, opts ...Option) (*Generator, error) {
	g := &Generator{
		settings:   settings,
		headers:    headers,
		newCrawler: crawlers.New,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.monitor == nil {
		g.monitor = crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfig{})
	}

	if g.table == nil {
		table, err := routing.NewGinTable(settings.Routes)
		if err != nil {
			return nil, fmt.Errorf("%w: routes: %v", models.ErrInvalidConfiguration, err)
		}
		g.table = table
	}

	registry, err := records.NewRegistry(settings.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: records: %v", models.ErrInvalidConfiguration, err)
	}
	g.registry = registry

	if g.filter, err = sitemap.NewEntryFilter(settings.IgnoreRoutes); err != nil {
		return nil, fmt.Errorf("%w: sitemap.ignore_routes: %v", models.ErrInvalidConfiguration, err)
	}

	if g.rules, err = sitemap.NewRuleSet(settings.Rules); err != nil {
		return nil, err
	}

	if g.prober == nil {
		g.prober = crawlers.NewContentTypeProber(settings.Crawl, headers)
	}

	if settings.CompleteWith != "" {
		if g.hooks == nil {
			g.hooks = DefaultHooks(settings)
		}
		hook, err := g.hooks.Resolve(settings.CompleteWith)
		if err != nil {
			return nil, err
		}
		g.hook = hook
	}

	return g, nil
}

// Settings 返回生成器使用的配置
func (g *Generator) Settings() *Settings {
	return g.settings
}

// enrichmentWorkers 丰富阶段的并发数
// pipeline.workers 为0时与爬虫一样由资源监控器计算
func (g *Generator) enrichmentWorkers() int {
	if g.settings.Workers > 0 {
		return g.settings.Workers
	}
	workers := g.monitor.CalculateMaxWorkers()
	utils.Debugf("丰富阶段并发数: %d (按系统资源计算)", workers)
	return workers
}

// Generate 执行一次完整的生成
// 单个URL的失败不会中断生成;爬取失败、记录存储不可用或补全钩子出错时返回错误
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	mode := g.settings.Crawl.Mode()

	report := &models.RunReport{
		RunID:      models.NewRunID(),
		TargetURL:  g.settings.TargetURL,
		Mode:       mode,
		Status:     models.RunStatusRunning,
		StartTime:  startTime,
		OutputPath: g.settings.OutputPath,
		Config:     g.settings.Crawl,
	}

	utils.Infof("🚀 开始生成站点地图")
	utils.Infof("目标URL: %s", utils.RedactURL(g.settings.TargetURL))
	utils.Infof("爬取模式: %s", mode)
	utils.Debugf("运行ID: %s", report.RunID)

	store, closeStore, err := g.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	reporter := utils.NewErrorReporter()

	var bar *progressbar.ProgressBar
	s := sitemap.New(
		sitemap.NewRouteResolver(g.table),
		sitemap.NewModelBinder(store, g.registry, g.settings.Bindings),
		g.filter,
		g.rules,
		sitemap.Options{
			Workers:  g.enrichmentWorkers(),
			Prober:   g.prober,
			Reporter: reporter,
			Progress: func() {
				if bar != nil {
					_ = bar.Add(1)
				}
			},
		},
	)

	crawler := g.newCrawler(crawlers.Options{
		Config:  g.settings.Crawl,
		Headers: g.headers,
		Monitor: g.monitor,
		ShouldCrawl: func(rawURL string) bool {
			return s.ShouldCrawl(ctx, rawURL)
		},
	})

	utils.Infof("🔍 开始爬取: %s", utils.RedactURL(g.settings.TargetURL))
	urls, err := crawler.Crawl(ctx, g.settings.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("爬取失败: %w", err)
	}
	utils.Infof("✅ 爬取完成: 发现 %d 个URL", len(urls))

	if g.progress && len(urls) > 0 {
		bar = utils.NewProgressBar(len(urls), "丰富站点地图条目")
	}
	s.AddAll(ctx, urls)
	if bar != nil {
		_ = bar.Finish()
	}

	if g.hook != nil {
		utils.Infof("🔧 执行补全钩子: %s", g.settings.CompleteWith)
		if err := g.hook.Complete(ctx, s); err != nil {
			return nil, fmt.Errorf("补全钩子 %s 执行失败: %w", g.settings.CompleteWith, err)
		}
	}

	stats := s.Stats()
	stats.Duration = time.Since(startTime).Seconds()

	report.Stats = stats
	report.Failures = reporter.Failures()
	report.EndTime = time.Now()
	report.Status = models.RunStatusCompleted

	printStats(stats)

	return &Result{Sitemap: s, Report: report}, nil
}

// openStore 返回本次生成使用的记录存储和关闭函数
// 未声明记录类型时不连接数据库
func (g *Generator) openStore(ctx context.Context) (records.Store, func(), error) {
	if g.store != nil {
		return g.store, func() {}, nil
	}
	if len(g.registry.Names()) == 0 {
		return nil, func() {}, nil
	}

	store, err := records.OpenSQLStore(ctx, g.settings.Database.Driver, g.settings.Database.DSN, g.registry)
	if err != nil {
		return nil, nil, fmt.Errorf("打开记录存储失败: %w", err)
	}

	return store, func() {
		if err := store.Close(); err != nil {
			utils.Warnf("关闭记录存储失败: %v", err)
		}
	}, nil
}

// printStats 打印生成摘要
func printStats(stats models.RunStats) {
	utils.Info("==================================================")
	utils.Info("📊 站点地图生成摘要")
	utils.Info("==================================================")
	utils.Infof("发现URL: %d", stats.Discovered)
	utils.Infof("✅ 写入条目: %d", stats.Accepted)
	utils.Infof("🚫 过滤: %d", stats.Rejected)
	utils.Infof("❌ 失败: %d (上报 %d)", stats.Failed, stats.Reported)
	if stats.Merged > 0 {
		utils.Infof("🔧 钩子补全: %d", stats.Merged)
	}
	utils.Infof("⏱️  总耗时: %.2f秒", stats.Duration)
	utils.Info("==================================================")
}
