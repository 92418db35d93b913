package sitemap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/records"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeStore 内存记录存储
type fakeStore struct {
	mu    sync.Mutex
	rows  map[string]map[string]interface{}
	calls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]map[string]interface{})}
}

func (f *fakeStore) put(recordType, column, value string, row map[string]interface{}) {
	f.rows[recordType+"|"+column+"|"+value] = row
}

func (f *fakeStore) Find(_ context.Context, recordType, column, value string) (*records.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if column == "" {
		column = records.DefaultKeyColumn
	}
	row, ok := f.rows[recordType+"|"+column+"|"+value]
	if !ok {
		return nil, records.ErrRecordNotFound
	}
	return &records.Record{Type: recordType, Key: value, Values: row}, nil
}

// fakeProber 固定内容类型
type fakeProber map[string]string

func (p fakeProber) Probe(_ context.Context, rawURL string) string {
	return p[rawURL]
}

// recordingReporter 记录上报的失败
type recordingReporter struct {
	mu    sync.Mutex
	urls  []string
	kinds []models.ErrorKind
}

func (r *recordingReporter) Report(url string, err error, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls = append(r.urls, url)
	r.kinds = append(r.kinds, models.KindOf(err))
}

type fixture struct {
	sitemap  *Sitemap
	store    *fakeStore
	reporter *recordingReporter
}

func testRoutes() []routing.RouteDefinition {
	return []routing.RouteDefinition{
		{Name: "home", Path: "/"},
		{Name: "about", Path: "/about"},
		{Name: "search", Path: "/search"},
		{Name: "blog.index", Path: "/blog"},
		{Name: "blog.show", Path: "/blog/{post:slug}", Params: map[string]string{"post": "post"}},
		{Name: "blog.comment", Path: "/blog/{post}/comments/{comment}",
			Params: map[string]string{"post": "post", "comment": "comment"}},
		{Name: "admin.dashboard", Path: "/admin"},
		{Name: "admin.users.index", Path: "/admin/users"},
		{Name: "contact.send", Path: "/contact", Methods: []string{"POST"}},
		{Name: "page.show", Path: "/pages/{page}"},
	}
}

func newFixture(t *testing.T, rules RulesConfig, ignore []string, prober fakeProber) *fixture {
	t.Helper()

	table, err := routing.NewGinTable(testRoutes())
	require.NoError(t, err)

	registry, err := records.NewRegistry([]records.RecordType{
		{Name: "post", Table: "posts"},
		{Name: "comment", Table: "comments"},
	})
	require.NoError(t, err)

	store := newFakeStore()
	binder := NewModelBinder(store, registry, []Binding{{Param: "page", Record: "post", Column: "slug"}})
	binder.now = func() time.Time { return fixedNow }

	filter, err := NewEntryFilter(ignore)
	require.NoError(t, err)

	ruleSet, err := NewRuleSet(rules)
	require.NoError(t, err)

	reporter := &recordingReporter{}
	s := New(NewRouteResolver(table), binder, filter, ruleSet, Options{
		Workers:  4,
		Prober:   prober,
		Reporter: reporter,
	})

	return &fixture{sitemap: s, store: store, reporter: reporter}
}

func urlsOf(entries []models.Entry) []string {
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.URL)
	}
	return result
}

func TestSitemap_CrawlScenario(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, fakeProber{
		"https://example.com/missing-page": "text/html; charset=UTF-8",
	})

	stats := fx.sitemap.AddAll(context.Background(), []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/search?q=x",
		"https://example.com/missing-page",
	})

	entries := fx.sitemap.Entries()
	assert.Equal(t, []string{"https://example.com/", "https://example.com/about"}, urlsOf(entries))
	for _, e := range entries {
		assert.Equal(t, models.FrequencyDaily, e.ChangeFrequency)
		assert.Equal(t, models.DefaultPriority, e.Priority)
		assert.Nil(t, e.LastModified, "没有绑定记录的条目不应有最后修改时间")
	}

	assert.Equal(t, 4, stats.Discovered)
	assert.Equal(t, 2, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Reported)

	assert.Equal(t, []string{"https://example.com/missing-page"}, fx.reporter.urls)
	assert.Equal(t, []models.ErrorKind{models.KindRouteNotFound}, fx.reporter.kinds)
}

func TestSitemap_QueryExclusion(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		url      string
		accepted bool
	}{
		{"https://example.com/about?page=2", false},
		{"https://example.com/blog?a=", false},
		{"https://example.com/search?", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			require.NoError(t, fx.sitemap.Add(ctx, tt.url))
			state, ok := fx.sitemap.State(tt.url)
			require.True(t, ok)
			if tt.accepted {
				assert.Equal(t, models.URLAccepted, state)
			} else {
				assert.Equal(t, models.URLRejected, state)
			}
		})
	}

	// 再次添加不会改变结果
	before := fx.sitemap.Entries()
	require.NoError(t, fx.sitemap.Add(ctx, "https://example.com/about?page=2"))
	assert.Equal(t, before, fx.sitemap.Entries())
}

func TestSitemap_IgnoredRoutes(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, []string{"admin.*"}, nil)
	ctx := context.Background()

	fx.sitemap.AddAll(ctx, []string{
		"https://example.com/admin",
		"https://example.com/admin/users",
		"https://example.com/about",
	})

	assert.Equal(t, []string{"https://example.com/about"}, urlsOf(fx.sitemap.Entries()))
	assert.False(t, fx.sitemap.ShouldCrawl(ctx, "https://example.com/admin/users"))
	assert.True(t, fx.sitemap.ShouldCrawl(ctx, "https://example.com/about"))
	assert.False(t, fx.sitemap.ShouldCrawl(ctx, "https://example.com/missing-page"))
	assert.Empty(t, fx.reporter.urls)
}

func TestSitemap_ResolutionFailureReporting(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, fakeProber{
		"https://example.com/contact":          "text/html",
		"https://example.com/missing-image.png": "image/png",
	})

	fx.sitemap.AddAll(context.Background(), []string{
		"https://example.com/contact",
		"https://example.com/missing-image.png",
		"https://example.com/unknown-type",
	})

	assert.Equal(t, []string{"https://example.com/contact"}, fx.reporter.urls)
	assert.Equal(t, []models.ErrorKind{models.KindMethodNotAllowed}, fx.reporter.kinds)

	stats := fx.sitemap.Stats()
	assert.Equal(t, 3, stats.Failed)
	assert.Equal(t, 1, stats.Reported)
	assert.Equal(t, 2, stats.FailuresByKind[models.KindRouteNotFound])
}

func TestSitemap_BindingFailureAlwaysReported(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)

	err := fx.sitemap.Add(context.Background(), "https://example.com/blog/ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRecordBindingFailed))

	var bindErr *models.BindingError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, "post", bindErr.Param)
	assert.Equal(t, "ghost", bindErr.Value)

	assert.Equal(t, []string{"https://example.com/blog/ghost"}, fx.reporter.urls)
	assert.Empty(t, fx.sitemap.Entries())
}

func TestSitemap_LastModified(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)
	ctx := context.Background()

	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	created := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	fx.store.put("post", "slug", "updated", map[string]interface{}{"updated_at": updated, "created_at": created})
	fx.store.put("post", "slug", "created-only", map[string]interface{}{"updated_at": nil, "created_at": "2023-06-01T00:00:00Z"})
	fx.store.put("post", "slug", "no-dates", map[string]interface{}{"title": "x"})
	fx.store.put("post", "slug", "broken", map[string]interface{}{"updated_at": "yesterday-ish"})

	tests := []struct {
		name string
		url  string
		want *time.Time
	}{
		{"优先更新时间", "https://example.com/blog/updated", &updated},
		{"其次创建时间", "https://example.com/blog/created-only", &created},
		{"没有时间列使用当前时间", "https://example.com/blog/no-dates", &fixedNow},
		{"无法解析时不设置", "https://example.com/blog/broken", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, fx.sitemap.Add(ctx, tt.url))
		})
	}

	entries := fx.sitemap.Entries()
	require.Len(t, entries, len(tests))
	for i, tt := range tests {
		if tt.want == nil {
			assert.Nil(t, entries[i].LastModified, tt.name)
			continue
		}
		require.NotNil(t, entries[i].LastModified, tt.name)
		assert.True(t, tt.want.Equal(*entries[i].LastModified), tt.name)
	}
}

func TestSitemap_LastBoundRecordWins(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)

	postTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	commentTime := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	fx.store.put("post", "id", "7", map[string]interface{}{"updated_at": postTime})
	fx.store.put("comment", "id", "42", map[string]interface{}{"updated_at": commentTime})

	require.NoError(t, fx.sitemap.Add(context.Background(), "https://example.com/blog/7/comments/42"))

	entries := fx.sitemap.Entries()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].LastModified)
	assert.True(t, commentTime.Equal(*entries[0].LastModified))
}

func TestSitemap_ExplicitBinding(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)

	pageTime := time.Date(2022, 2, 2, 0, 0, 0, 0, time.UTC)
	fx.store.put("post", "slug", "terms", map[string]interface{}{"updated_at": pageTime})

	require.NoError(t, fx.sitemap.Add(context.Background(), "https://example.com/pages/terms"))
	err := fx.sitemap.Add(context.Background(), "https://example.com/pages/unknown")
	assert.True(t, errors.Is(err, models.ErrRecordBindingFailed))

	entries := fx.sitemap.Entries()
	require.Len(t, entries, 1)
	assert.True(t, pageTime.Equal(*entries[0].LastModified))
}

func TestSitemap_FirstMatchWins(t *testing.T) {
	fx := newFixture(t, RulesConfig{
		Frequencies: []Rule{
			{Pattern: "blog.*", Value: "weekly"},
			{Pattern: "blog.index", Value: "daily"},
		},
		Priorities: []Rule{
			{Pattern: "home", Value: "1.0"},
			{Pattern: "blog.index", Value: "0.8"},
			{Pattern: "blog.*", Value: "0.3"},
		},
	}, nil, nil)

	fx.sitemap.AddAll(context.Background(), []string{
		"https://example.com/",
		"https://example.com/blog",
	})

	entries := fx.sitemap.Entries()
	require.Len(t, entries, 2)

	assert.Equal(t, models.FrequencyDaily, entries[0].ChangeFrequency)
	assert.Equal(t, models.MaxPriority, entries[0].Priority)

	assert.Equal(t, models.FrequencyWeekly, entries[1].ChangeFrequency)
	assert.Equal(t, models.Priority(8), entries[1].Priority)
}

func TestSitemap_MergeURLs(t *testing.T) {
	fx := newFixture(t, RulesConfig{
		Frequencies: []Rule{{Pattern: "blog.*", Value: "weekly"}},
	}, nil, nil)
	ctx := context.Background()

	fx.store.put("post", "slug", "hello", map[string]interface{}{"updated_at": fixedNow})

	fx.sitemap.AddAll(ctx, []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/blog",
	})
	require.Equal(t, 3, fx.sitemap.Len())

	merge := []string{"https://example.com/blog/hello", "https://example.com/about"}
	require.NoError(t, fx.sitemap.MergeURLs(ctx, merge))
	assert.Equal(t, 4, fx.sitemap.Len())

	first := fx.sitemap.Entries()
	require.NoError(t, fx.sitemap.MergeURLs(ctx, merge))
	assert.Equal(t, first, fx.sitemap.Entries())

	assert.Equal(t, "https://example.com/blog/hello", first[3].URL)
	assert.Equal(t, models.FrequencyWeekly, first[3].ChangeFrequency)
	assert.Equal(t, 1, fx.sitemap.Stats().Merged)

	t.Run("合并后按当前规则重新分配全部条目", func(t *testing.T) {
		fx.sitemap.mu.Lock()
		for _, e := range fx.sitemap.entries {
			e.ChangeFrequency = models.FrequencyNever
			e.Priority = models.Priority(0)
		}
		fx.sitemap.mu.Unlock()

		require.NoError(t, fx.sitemap.MergeURLs(ctx, merge))

		want := map[string]models.ChangeFrequency{
			"https://example.com/":           models.FrequencyDaily,
			"https://example.com/about":      models.FrequencyDaily,
			"https://example.com/blog":       models.FrequencyWeekly,
			"https://example.com/blog/hello": models.FrequencyWeekly,
		}
		entries := fx.sitemap.Entries()
		require.Len(t, entries, 4)
		for _, e := range entries {
			assert.Equal(t, want[e.URL], e.ChangeFrequency, e.URL)
			assert.Equal(t, models.DefaultPriority, e.Priority, e.URL)
		}
	})
}

func TestSitemap_LastModifiedOnlyForBoundRecords(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)
	fx.store.put("post", "slug", "hello", map[string]interface{}{"updated_at": time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC)})

	fx.sitemap.AddAll(context.Background(), []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/blog/hello",
	})

	entries := fx.sitemap.Entries()
	require.Len(t, entries, 3)
	assert.Nil(t, entries[0].LastModified)
	assert.Nil(t, entries[1].LastModified)
	require.NotNil(t, entries[2].LastModified)
	assert.Nil(t, fx.sitemap.binder.LastModified("https://example.com/about", nil))

	data, err := fx.sitemap.Render()
	require.NoError(t, err)
	xml := string(data)
	assert.Equal(t, 1, strings.Count(xml, "<lastmod>"))
	assert.Contains(t, xml, "<lastmod>2024-03-07T09:05:00Z</lastmod>")

	home := xml[strings.Index(xml, "<loc>https://example.com/</loc>"):strings.Index(xml, "<loc>https://example.com/blog/hello</loc>")]
	assert.NotContains(t, home, "<lastmod>")
}

func TestSitemap_DuplicatesNotReprocessed(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)
	ctx := context.Background()

	fx.store.put("post", "slug", "hello", map[string]interface{}{})

	fx.sitemap.AddAll(ctx, []string{
		"https://example.com/blog/hello",
		"https://example.com/blog/hello/",
		"https://example.com/blog/hello#comments",
		"https://example.com/blog/hello?",
		"https://example.com/blog/ghost",
		"https://example.com/blog/ghost",
	})

	assert.Equal(t, 2, fx.store.calls)
	assert.Equal(t, []string{"https://example.com/blog/hello"}, urlsOf(fx.sitemap.Entries()))
	assert.Len(t, fx.reporter.urls, 1)

	t.Run("末尾问号不产生新条目", func(t *testing.T) {
		fx := newFixture(t, RulesConfig{}, nil, nil)
		fx.sitemap.AddAll(ctx, []string{"https://example.com/search", "https://example.com/search?"})
		assert.Equal(t, []string{"https://example.com/search"}, urlsOf(fx.sitemap.Entries()))
	})
}

func TestSitemap_DeterministicOrder(t *testing.T) {
	urls := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		urls = append(urls, fmt.Sprintf("https://example.com/blog/post-%02d", i))
	}

	var previous []string
	for run := 0; run < 3; run++ {
		fx := newFixture(t, RulesConfig{}, nil, nil)
		for _, u := range urls {
			fx.store.put("post", "slug", u[strings.LastIndex(u, "/")+1:], map[string]interface{}{})
		}
		fx.sitemap.opts.Workers = 8

		fx.sitemap.AddAll(context.Background(), urls)
		got := urlsOf(fx.sitemap.Entries())
		assert.Equal(t, urls, got)
		if previous != nil {
			assert.Equal(t, previous, got)
		}
		previous = got
	}
}

func TestSitemap_List(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)

	fx.sitemap.AddAll(context.Background(), []string{
		"https://example.com/search",
		"https://example.com/about",
		"https://example.com/",
	})

	assert.Equal(t, []string{
		"https://example.com/search",
		"https://example.com/about",
		"https://example.com/",
	}, urlsOf(fx.sitemap.Entries()))
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/search",
	}, urlsOf(fx.sitemap.List()))
}

func TestSitemap_RenderAndExport(t *testing.T) {
	fx := newFixture(t, RulesConfig{
		Priorities: []Rule{{Pattern: "home", Value: "1"}},
	}, nil, nil)
	fx.sitemap.AddAll(context.Background(), []string{"https://example.com/", "https://example.com/about"})

	data, err := fx.sitemap.Render()
	require.NoError(t, err)

	xml := string(data)
	assert.True(t, strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, xml, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, xml, "<loc>https://example.com/</loc>")
	assert.NotContains(t, xml, "<lastmod>")
	assert.Contains(t, xml, "<changefreq>daily</changefreq>")
	assert.Contains(t, xml, "<priority>1.0</priority>")
	assert.Contains(t, xml, "<priority>0.5</priority>")
	assert.Less(t, strings.Index(xml, "https://example.com/</loc>"), strings.Index(xml, "https://example.com/about</loc>"))

	path := filepath.Join(t.TempDir(), "sitemap.xml")
	require.NoError(t, fx.sitemap.Export(path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestSitemap_ExportFailureKeepsPreviousArtifact(t *testing.T) {
	fx := newFixture(t, RulesConfig{}, nil, nil)
	fx.sitemap.AddAll(context.Background(), []string{"https://example.com/"})

	dir := t.TempDir()

	// 目标路径是非空目录,重命名会失败
	target := filepath.Join(dir, "sitemap.xml")
	require.NoError(t, os.MkdirAll(target, 0755))
	previous := filepath.Join(target, "keep.txt")
	require.NoError(t, os.WriteFile(previous, []byte("previous"), 0644))

	err := fx.sitemap.Export(target)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExportWriteFailed))
	assert.Equal(t, models.KindExportWriteFailed, models.KindOf(err))

	content, err := os.ReadFile(previous)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".sitemap-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	err = fx.sitemap.Export(filepath.Join(dir, "missing", "sitemap.xml"))
	assert.True(t, errors.Is(err, models.ErrExportWriteFailed))
}
