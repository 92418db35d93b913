package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var errPoolClosed = errors.New("标签页池已关闭")

// resetPageJS 归还前清掉页面留下的本地存储
const resetPageJS = `() => {
	try { localStorage.clear(); sessionStorage.clear(); } catch (e) {}
	return true;
}`

// PagePool 标签页池
// slots 限制同时借出的标签页数量,idle 保存可复用的标签页
type PagePool struct {
	browser *rod.Browser
	slots   chan struct{}
	idle    chan *rod.Page

	mu     sync.Mutex
	open   map[*rod.Page]struct{}
	closed bool
}

// NewPagePool 创建最多 size 个标签页的池
func NewPagePool(browser *rod.Browser, size int) *PagePool {
	if size < 1 {
		size = 1
	}
	return &PagePool{
		browser: browser,
		slots:   make(chan struct{}, size),
		idle:    make(chan *rod.Page, size),
		open:    make(map[*rod.Page]struct{}, size),
	}
}

// AcquirePage 借出一个标签页,池满时等待归还或 ctx 结束
func (pp *PagePool) AcquirePage(ctx context.Context) (*rod.Page, error) {
	select {
	case pp.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.closed {
		<-pp.slots
		return nil, errPoolClosed
	}

	select {
	case page := <-pp.idle:
		return page, nil
	default:
	}

	page, err := pp.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		<-pp.slots
		return nil, fmt.Errorf("创建标签页失败(浏览器可能已崩溃): %w", err)
	}
	pp.open[page] = struct{}{}
	utils.Debugf("创建新标签页,当前标签页数: %d/%d", len(pp.open), cap(pp.slots))
	return page, nil
}

// ReleasePage 归还标签页,状态清理失败的标签页直接关闭
func (pp *PagePool) ReleasePage(page *rod.Page) {
	if page == nil {
		return
	}
	defer func() { <-pp.slots }()

	if _, err := page.Evaluate(rod.Eval(resetPageJS)); err != nil {
		utils.Warnf("清理标签页状态失败,关闭该标签页: %v", err)
		pp.discard(page)
		return
	}

	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.closed {
		return
	}
	pp.idle <- page
}

// discard 关闭并移除标签页
func (pp *PagePool) discard(page *rod.Page) {
	pp.mu.Lock()
	delete(pp.open, page)
	pp.mu.Unlock()

	if err := page.Close(); err != nil {
		utils.Debugf("关闭标签页失败: %v", err)
	}
}

// CurrentSize 已创建且未关闭的标签页数
func (pp *PagePool) CurrentSize() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.open)
}

// Close 关闭所有标签页,之后的 AcquirePage 返回错误
func (pp *PagePool) Close() error {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.closed {
		return nil
	}
	pp.closed = true

	for page := range pp.open {
		if err := page.Close(); err != nil {
			utils.Debugf("关闭标签页失败: %v", err)
		}
	}
	pp.open = nil
	utils.Debug("标签页池已关闭")
	return nil
}
