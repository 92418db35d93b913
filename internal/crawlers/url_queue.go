package crawlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
)

// URLQueue 动态爬取的待访问队列
// 负责深度限制、跨域过滤和去重,Push/Pop 并发安全
type URLQueue struct {
	pendingURLs chan models.URLItem

	// 已入队或已访问的URL
	visitedURLs map[string]bool
	mu          sync.RWMutex

	targetHost       string
	allowCrossDomain bool
	maxDepth         int

	closed bool
}

// NewURLQueue 创建URL队列
func NewURLQueue(targetHost string, allowCrossDomain bool, maxDepth int) *URLQueue {
	return &URLQueue{
		pendingURLs:      make(chan models.URLItem, 1000),
		visitedURLs:      make(map[string]bool),
		targetHost:       targetHost,
		allowCrossDomain: allowCrossDomain,
		maxDepth:         maxDepth,
	}
}

// Push 添加URL到待访问队列
// 已出现过的URL返回错误,不会重复入队
func (q *URLQueue) Push(item models.URLItem) error {
	link, parsed, err := canonicalLink(item.URL)
	if err != nil {
		return err
	}

	if item.Depth > q.maxDepth {
		return fmt.Errorf("深度超过限制: %d > %d", item.Depth, q.maxDepth)
	}
	if !q.allowCrossDomain && parsed.Host != q.targetHost {
		return fmt.Errorf("跨域链接已过滤: %s (目标域名: %s)", parsed.Host, q.targetHost)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("队列已关闭")
	}
	if q.visitedURLs[link] {
		return fmt.Errorf("URL已访问: %s", link)
	}
	q.visitedURLs[link] = true

	item.URL = link
	select {
	case q.pendingURLs <- item:
		return nil
	default:
		delete(q.visitedURLs, link)
		return fmt.Errorf("队列已满,丢弃: %s", link)
	}
}

// Pop 取出下一个待访问URL,队列关闭或 ctx 取消时返回 false
func (q *URLQueue) Pop(ctx context.Context) (models.URLItem, bool) {
	select {
	case <-ctx.Done():
		return models.URLItem{}, false
	case item, ok := <-q.pendingURLs:
		return item, ok
	}
}

// MarkVisited 标记URL为已访问
func (q *URLQueue) MarkVisited(rawURL string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.visitedURLs[rawURL] = true
}

// IsVisited 检查URL是否已出现过
func (q *URLQueue) IsVisited(rawURL string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.visitedURLs[rawURL]
}

// PendingCount 返回待处理URL数量
func (q *URLQueue) PendingCount() int {
	return len(q.pendingURLs)
}

// Close 关闭队列,之后的 Push 返回错误
func (q *URLQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.pendingURLs)
		q.closed = true
	}
}
