package crawlers

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本机Chrome,设置 SITEMAP_TEST_CHROME=1 时运行
func TestDynamicCrawler_Crawl(t *testing.T) {
	if os.Getenv("SITEMAP_TEST_CHROME") == "" {
		t.Skip("未设置 SITEMAP_TEST_CHROME,跳过浏览器测试")
	}
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("未找到Chrome")
	}

	site := newTestSite(t)
	crawler := NewDynamicCrawler(Options{
		Config: models.CrawlConfig{
			Depth:            3,
			MaxWorkers:       2,
			WaitTime:         100 * time.Millisecond,
			Headless:         true,
			ChromeBinaryPath: bin,
		},
		ShouldCrawl: func(rawURL string) bool {
			return !strings.HasSuffix(rawURL, "/missing-page")
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	urls, err := crawler.Crawl(ctx, site.url("/"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		site.url("/"),
		site.url("/about"),
		site.url("/blog"),
		site.url("/blog/deep"),
		site.url("/missing-page"),
	}, urls)
	assert.Zero(t, site.hitCount("/missing-page"))
}

func TestDynamicCrawler_RootRejected(t *testing.T) {
	crawler := NewDynamicCrawler(Options{
		Config:      models.CrawlConfig{Depth: 2, ExecuteJavascript: true},
		ShouldCrawl: func(string) bool { return false },
	})

	urls, err := crawler.Crawl(context.Background(), "https://example.com/#top")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/"}, urls)
}
