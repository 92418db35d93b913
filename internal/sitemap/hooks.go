package sitemap

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
)

// CompletionHook 补全钩子函数
// 在爬取结束后调用,通过 Sitemap.MergeURLs 追加爬虫无法发现的URL
type CompletionHook func(ctx context.Context, s *Sitemap) error

// Complete 实现 Completer 接口
func (h CompletionHook) Complete(ctx context.Context, s *Sitemap) error {
	return h(ctx, s)
}

// Completer 补全钩子接口
type Completer interface {
	Complete(ctx context.Context, s *Sitemap) error
}

// HookRegistry 按名称注册补全钩子
// 注册时不校验类型,Resolve 时校验是否满足钩子约定
type HookRegistry struct {
	mu    sync.RWMutex
	hooks map[string]any
}

// NewHookRegistry 创建钩子注册表
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]any)}
}

// Register 注册钩子
func (r *HookRegistry) Register(name string, hook any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = hook
}

// Names 返回已注册的钩子名称
func (r *HookRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.hooks))
	for name := range r.hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve 按名称取出钩子并校验
// 钩子必须是 CompletionHook、同签名的函数或实现 Completer 的值,否则返回 HookError
func (r *HookRegistry) Resolve(name string) (Completer, error) {
	r.mu.RLock()
	hook, ok := r.hooks[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &models.HookError{Name: name, Reason: fmt.Sprintf("未注册 (可用: %v)", r.Names())}
	}

	switch h := hook.(type) {
	case nil:
		return nil, &models.HookError{Name: name, Reason: "钩子为空"}
	case CompletionHook:
		if h == nil {
			return nil, &models.HookError{Name: name, Reason: "钩子为空"}
		}
		return h, nil
	case func(context.Context, *Sitemap) error:
		if h == nil {
			return nil, &models.HookError{Name: name, Reason: "钩子为空"}
		}
		return CompletionHook(h), nil
	case Completer:
		return h, nil
	default:
		return nil, &models.HookError{
			Name:   name,
			Reason: fmt.Sprintf("类型 %T 不是 func(context.Context, *sitemap.Sitemap) error 且未实现 Completer", hook),
		}
	}
}

// URLsFileHook 内置补全钩子,从文件读取URL列表合并到站点地图
// 文件每行一个URL,# 之后为注释;Base 非空时 / 开头的路径按 Base 解析
type URLsFileHook struct {
	Path string
	Base string
}

// Complete 实现 Completer 接口
func (h *URLsFileHook) Complete(ctx context.Context, s *Sitemap) error {
	urls, err := utils.ReadURLsFromFile(h.Path, h.Base)
	if err != nil {
		return fmt.Errorf("读取补全URL文件失败: %w", err)
	}

	before := s.Len()
	if err := s.MergeURLs(ctx, urls); err != nil {
		return err
	}

	utils.Infof("📎 补全钩子合并了 %d 个新条目 (来源: %s)", s.Len()-before, h.Path)
	return nil
}
