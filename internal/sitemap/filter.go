package sitemap

import (
	"mime"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
)

// EntryFilter 过滤不应出现在站点地图中的URL
type EntryFilter struct {
	ignore *routing.NameMatcher
}

// NewEntryFilter 创建过滤器
func NewEntryFilter(ignoreRoutes []string) (*EntryFilter, error) {
	matcher, err := routing.NewNameMatcher(ignoreRoutes)
	if err != nil {
		return nil, err
	}
	return &EntryFilter{ignore: matcher}, nil
}

// Ignored 路由名称是否在忽略列表中
func (f *EntryFilter) Ignored(routeName string) bool {
	return f.ignore.Match(routeName)
}

// HasQuery URL是否带有非空查询串
// 只要原始查询串非空就排除,?a= 同样会被排除,单独的 ? 不会
func (f *EntryFilter) HasQuery(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.RawQuery != ""
}

// ShouldReport 失败是否需要上报
//
//	分类                                   内容类型        上报
//	RouteNotFound / MethodNotAllowed       text/html      是
//	RouteNotFound / MethodNotAllowed       其他或未知      否
//	其余分类                               任意           是
func ShouldReport(kind models.ErrorKind, contentType string) bool {
	switch kind {
	case models.KindRouteNotFound, models.KindMethodNotAllowed:
		return isHTML(contentType)
	default:
		return true
	}
}

// isHTML 内容类型是否为HTML,忽略参数
func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "text/html"
}
