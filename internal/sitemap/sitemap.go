// Package sitemap 实现站点地图条目的丰富流程
//
// 爬虫发现的每个URL依次经过:
//
//	RouteResolver -> EntryFilter(忽略路由) -> ModelBinder -> EntryFilter(查询串) -> RuleSet
//
// 通过的URL作为 Entry 追加到 Sitemap 中。同一次生成中每个URL只处理一次,
// 条目顺序与输入顺序一致,与并发度无关。
package sitemap

import (
	"context"
	"errors"
	"net/url"
	"runtime"
	"sort"
	"sync"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
)

// ContentTypeProber 探测URL的内容类型
type ContentTypeProber interface {
	// Probe 返回内容类型,无法探测时返回空字符串
	Probe(ctx context.Context, rawURL string) string
}

// FailureReporter 失败上报通道
type FailureReporter interface {
	Report(url string, err error, contentType string)
}

// Options 可选依赖
type Options struct {
	Workers  int               // 并发处理数,<=0 时使用 CPU 数
	Prober   ContentTypeProber // 路由解析失败时探测内容类型
	Reporter FailureReporter   // 失败上报
	Progress func()            // 每处理完一个URL回调一次
}

// outcome 单个URL的处理结果
type outcome struct {
	state       models.URLState
	entry       *models.Entry
	err         error
	contentType string
}

// Sitemap 站点地图聚合器
type Sitemap struct {
	resolver *RouteResolver
	binder   *ModelBinder
	filter   *EntryFilter
	rules    *RuleSet
	opts     Options

	mu      sync.Mutex
	entries []*models.Entry
	states  map[string]models.URLState
	stats   models.RunStats
}

// New 创建空的站点地图
func New(resolver *RouteResolver, binder *ModelBinder, filter *EntryFilter, rules *RuleSet, opts Options) *Sitemap {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	return &Sitemap{
		resolver: resolver,
		binder:   binder,
		filter:   filter,
		rules:    rules,
		opts:     opts,
		entries:  make([]*models.Entry, 0),
		states:   make(map[string]models.URLState),
	}
}

// ShouldCrawl 爬虫是否应该继续访问该URL
// 只有能解析为GET路由且不在忽略列表中的URL才会被访问
func (s *Sitemap) ShouldCrawl(ctx context.Context, rawURL string) bool {
	match, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return false
	}
	return !s.filter.Ignored(match.Route.Name)
}

// Add 处理单个URL
// 返回该URL的处理错误,被过滤或重复的URL返回 nil
func (s *Sitemap) Add(ctx context.Context, rawURL string) error {
	keys := s.claim([]string{rawURL})
	if len(keys) == 0 {
		return nil
	}

	result := s.process(ctx, keys[0])
	s.apply(keys[0], result)
	return result.err
}

// AddAll 批量处理URL
// 解析、绑定和过滤在工作池中并发执行,结果按输入顺序追加
func (s *Sitemap) AddAll(ctx context.Context, urls []string) models.RunStats {
	keys := s.claim(urls)
	if len(keys) == 0 {
		return s.Stats()
	}

	results := make([]outcome, len(keys))
	jobs := make(chan int)

	workers := s.opts.Workers
	if workers > len(keys) {
		workers = len(keys)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.process(ctx, keys[i])
				if s.opts.Progress != nil {
					s.opts.Progress()
				}
			}
		}()
	}

	for i := range keys {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, key := range keys {
		s.apply(key, results[i])
	}

	return s.Stats()
}

// MergeURLs 补全钩子的入口
// 追加URL后对全部条目重新分配频率和优先级,重复调用结果不变
func (s *Sitemap) MergeURLs(ctx context.Context, urls []string) error {
	before := s.Len()
	s.AddAll(ctx, urls)
	s.AssignAll()

	s.mu.Lock()
	s.stats.Merged += len(s.entries) - before
	s.mu.Unlock()

	return ctx.Err()
}

// AssignAll 对全部条目重新分配频率和优先级
func (s *Sitemap) AssignAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		s.rules.Assign(entry)
	}
}

// claim 规范化URL并登记为处理中,返回本次需要处理的URL
// 已经出现过的URL(无论最终状态)直接跳过
func (s *Sitemap) claim(urls []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(urls))
	for _, raw := range urls {
		key, err := NormalizeURL(raw)
		if err != nil {
			utils.Debugf("跳过无效URL %q: %v", raw, err)
			continue
		}
		if _, seen := s.states[key]; seen {
			continue
		}
		s.states[key] = models.URLResolving
		s.stats.Discovered++
		keys = append(keys, key)
	}
	return keys
}

// process 执行解析、绑定和过滤,不修改聚合器状态
func (s *Sitemap) process(ctx context.Context, key string) outcome {
	match, err := s.resolver.Resolve(ctx, key)
	if err != nil {
		result := outcome{state: models.URLFailed, err: err}
		if s.opts.Prober != nil && !errors.Is(err, context.Canceled) {
			result.contentType = s.opts.Prober.Probe(ctx, key)
		}
		return result
	}

	route := match.Route
	if s.filter.Ignored(route.Name) {
		return outcome{state: models.URLRejected}
	}

	record, err := s.binder.Bind(ctx, key, route)
	if err != nil {
		return outcome{state: models.URLFailed, err: err}
	}

	if s.filter.HasQuery(key) {
		return outcome{state: models.URLRejected}
	}

	return outcome{
		state: models.URLAccepted,
		entry: &models.Entry{
			URL:          key,
			RouteName:    route.Name,
			LastModified: s.binder.LastModified(key, record),
		},
	}
}

// apply 记录处理结果,追加条目并上报失败
func (s *Sitemap) apply(key string, result outcome) {
	report := false

	s.mu.Lock()
	s.states[key] = result.state

	switch result.state {
	case models.URLAccepted:
		s.rules.Assign(result.entry)
		s.entries = append(s.entries, result.entry)
		s.stats.Accepted++
	case models.URLRejected:
		s.stats.Rejected++
	case models.URLFailed:
		kind := models.KindOf(result.err)
		s.stats.RecordFailure(kind)
		report = ShouldReport(kind, result.contentType)
		if report {
			s.stats.Reported++
		}
	}
	s.mu.Unlock()

	if result.state != models.URLFailed {
		return
	}
	if !report {
		utils.Debugf("忽略非HTML页面的解析失败: %s (%s)", key, result.contentType)
		return
	}
	if s.opts.Reporter != nil {
		s.opts.Reporter.Report(key, result.err, result.contentType)
	}
}

// State 返回URL在本次生成中的状态
func (s *Sitemap) State(rawURL string) (models.URLState, bool) {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return models.URLDiscovered, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[key]
	return state, ok
}

// Len 返回条目数
func (s *Sitemap) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats 返回统计信息副本
func (s *Sitemap) Stats() models.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	if s.stats.FailuresByKind != nil {
		stats.FailuresByKind = make(map[models.ErrorKind]int, len(s.stats.FailuresByKind))
		for k, v := range s.stats.FailuresByKind {
			stats.FailuresByKind[k] = v
		}
	}
	return stats
}

// Entries 按插入顺序返回条目副本,与导出文件中的顺序一致
func (s *Sitemap) Entries() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Entry, len(s.entries))
	for i, e := range s.entries {
		result[i] = *e
	}
	return result
}

// List 按去掉查询串后的路径升序返回条目,用于终端展示
func (s *Sitemap) List() []models.Entry {
	entries := s.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return sortKey(entries[i].URL) < sortKey(entries[j].URL)
	})
	return entries
}

// sortKey 展示排序键
func sortKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Path
}
