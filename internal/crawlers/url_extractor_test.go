package crawlers

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLExtractor_ExtractFromHTML(t *testing.T) {
	extractor := NewURLExtractor("example.com", false)

	page := `<html><head></head><body>
		<a href="/about">about</a>
		<a href="contact">contact</a>
		<a href="/about#team">team</a>
		<a href="/private" rel="external NoFollow">private</a>
		<a href="https://other.example.com/x">other</a>
		<a href="javascript:void(0)">js</a>
		<a href="mailto:a@example.com">mail</a>
		<a>no href</a>
		<a href="/blog?page=2">page 2</a>
	</body></html>`

	links, err := extractor.ExtractFromHTML(page, "https://example.com/company/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/company/contact",
		"https://example.com/blog?page=2",
	}, links)
}

func TestURLExtractor_BaseHref(t *testing.T) {
	extractor := NewURLExtractor("example.com", false)

	page := `<html><head><base href="https://example.com/docs/"></head>
		<body><a href="intro">intro</a></body></html>`

	links, err := extractor.ExtractFromHTML(page, "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/docs/intro"}, links)
}

func TestURLExtractor_ShouldFollowLink(t *testing.T) {
	tests := []struct {
		name        string
		allowCross  bool
		link        string
		wantFollow  bool
		wantReasons string
	}{
		{"同域链接", false, "https://example.com/a", true, ""},
		{"跨域链接被过滤", false, "https://cdn.example.net/a", false, "跨域链接已过滤"},
		{"允许跨域", true, "https://cdn.example.net/a", true, ""},
		{"不支持的协议", false, "ftp://example.com/a", false, "不支持的协议"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewURLExtractor("example.com", tt.allowCross)
			follow, reason := extractor.ShouldFollowLink(tt.link)
			assert.Equal(t, tt.wantFollow, follow)
			assert.Equal(t, tt.wantReasons, reason)
		})
	}
}

func TestURLQueue(t *testing.T) {
	q := NewURLQueue("example.com", false, 2)
	ctx := context.Background()

	require.NoError(t, q.Push(models.URLItem{URL: "https://example.com/#top", Depth: 1}))
	assert.True(t, q.IsVisited("https://example.com/"))

	t.Run("重复URL不入队", func(t *testing.T) {
		assert.Error(t, q.Push(models.URLItem{URL: "https://example.com/", Depth: 1}))
	})
	t.Run("深度超过限制", func(t *testing.T) {
		assert.Error(t, q.Push(models.URLItem{URL: "https://example.com/deep", Depth: 3}))
	})
	t.Run("跨域过滤", func(t *testing.T) {
		assert.Error(t, q.Push(models.URLItem{URL: "https://other.com/", Depth: 1}))
	})
	t.Run("协议过滤", func(t *testing.T) {
		assert.Error(t, q.Push(models.URLItem{URL: "mailto:a@example.com", Depth: 1}))
	})

	assert.Equal(t, 1, q.PendingCount())
	item, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/", item.URL)
	assert.Equal(t, 1, item.Depth)

	q.MarkVisited("https://example.com/seen")
	assert.Error(t, q.Push(models.URLItem{URL: "https://example.com/seen", Depth: 2}))

	q.Close()
	q.Close()
	_, ok = q.Pop(ctx)
	assert.False(t, ok)
	assert.Error(t, q.Push(models.URLItem{URL: "https://example.com/new", Depth: 1}))
}

func TestURLQueue_PopCancelled(t *testing.T) {
	q := NewURLQueue("example.com", false, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestDiscoverySet(t *testing.T) {
	d := newDiscoverySet()
	assert.True(t, d.Add("https://example.com/b"))
	assert.True(t, d.Add("https://example.com/a"))
	assert.False(t, d.Add("https://example.com/b"))

	assert.Equal(t, []string{"https://example.com/b", "https://example.com/a"}, d.List())
	assert.Equal(t, 2, d.Len())
}

func TestResourceMonitor_CalculateMaxWorkers(t *testing.T) {
	const gb = 1024 * 1024 * 1024

	tests := []struct {
		name      string
		available uint64
		memErr    error
		cpu       float64
		limit     int
		want      func() int
	}{
		{"内存不足时至少1个", 0, nil, 0, 16, func() int { return 1 }},
		{"受配置上限限制", 64 * gb, nil, 0, 2, func() int { return min(2, runtime.NumCPU()) }},
		{"受CPU核数限制", 64 * gb, nil, 0, 1000, func() int { return runtime.NumCPU() }},
		{"内存读取失败按上限计算", 0, errors.New("no mem"), 0, 3, func() int { return min(3, runtime.NumCPU()) }},
		{"CPU负载过高减半", 64 * gb, nil, 99, 4, func() int { return max(1, min(4, runtime.NumCPU())/2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := NewResourceMonitor(ResourceMonitorConfig{MaxWorkersLimit: tt.limit})
			rm.availableMemory = func() (uint64, error) { return tt.available, tt.memErr }
			rm.cpuUsage = func() float64 { return tt.cpu }

			assert.Equal(t, tt.want(), rm.CalculateMaxWorkers())
		})
	}
}

func TestResourceMonitor_Cache(t *testing.T) {
	rm := NewResourceMonitor(ResourceMonitorConfig{MaxWorkersLimit: 1})
	calls := 0
	rm.availableMemory = func() (uint64, error) {
		calls++
		return 0, nil
	}
	rm.cpuUsage = func() float64 { return 0 }

	rm.CalculateMaxWorkers()
	rm.CalculateMaxWorkers()
	assert.Equal(t, 1, calls)

	rm.lastCacheTime = time.Now().Add(-2 * time.Second)
	rm.CalculateMaxWorkers()
	assert.Equal(t, 2, calls)
}

func TestWorkerCount(t *testing.T) {
	opts := normalizeOptions(Options{Config: models.CrawlConfig{MaxWorkers: 7}})
	assert.Equal(t, 7, workerCount(opts))

	opts = normalizeOptions(Options{})
	assert.GreaterOrEqual(t, workerCount(opts), 1)
}
