package sitemap

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
)

// RouteResolver 把URL解析为应用中的命名路由
type RouteResolver struct {
	table routing.Table
}

// NewRouteResolver 创建路由解析器
func NewRouteResolver(table routing.Table) *RouteResolver {
	return &RouteResolver{table: table}
}

// NormalizeURL 规范化URL,作为站点地图条目的唯一键
// 去掉片段,路径末尾的斜杠(根路径除外)
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("无效的URL: %w", err)
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	// 末尾单独的 ? 与没有查询串等价
	if parsed.RawQuery == "" {
		parsed.ForceQuery = false
	}
	parsed.Path = trimTrailingSlash(parsed.Path)
	if parsed.RawPath != "" {
		parsed.RawPath = trimTrailingSlash(parsed.RawPath)
	}

	return parsed.String(), nil
}

// trimTrailingSlash 去掉末尾斜杠,根路径保持为 /
func trimTrailingSlash(p string) string {
	if p == "" {
		return "/"
	}
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// Resolve 模拟对URL路径发起GET请求并返回命中的路由
// 路由不存在返回包装 ErrRouteNotFound 的 ResolveError,
// 路径存在但不支持GET返回包装 ErrMethodNotAllowed 的 ResolveError
func (r *RouteResolver) Resolve(ctx context.Context, rawURL string) (models.RouteMatch, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return models.RouteMatch{Status: models.MatchNotFound},
			&models.ResolveError{URL: rawURL, Cause: models.ErrRouteNotFound}
	}

	match, err := r.table.MatchGet(ctx, trimTrailingSlash(parsed.Path))
	if err != nil {
		return match, fmt.Errorf("路由匹配失败 [%s]: %w", rawURL, err)
	}

	switch match.Status {
	case models.MatchFound:
		return match, nil
	case models.MatchMethodNotAllowed:
		return match, &models.ResolveError{URL: rawURL, Cause: models.ErrMethodNotAllowed}
	default:
		return match, &models.ResolveError{URL: rawURL, Cause: models.ErrRouteNotFound}
	}
}
