// Package routing 提供应用路由表抽象
//
// 站点地图生成时需要把爬取到的URL还原为应用中的命名路由,
// Table 接口屏蔽了具体路由实现,GinTable 是基于 gin 路由树的实现。
package routing

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
)

// Table 路由表
type Table interface {
	// MatchGet 模拟对 path 发起 GET 请求,返回命中的路由
	// 未命中返回 MatchNotFound,路径存在但不接受GET返回 MatchMethodNotAllowed
	MatchGet(ctx context.Context, path string) (models.RouteMatch, error)

	// Routes 返回注册的路由定义,按声明顺序
	Routes() []RouteDefinition
}

// RouteDefinition 路由声明
type RouteDefinition struct {
	Name    string            `mapstructure:"name"`    // 路由名称,如 blog.show
	Path    string            `mapstructure:"path"`    // 路由模板,支持 {post}、{post:slug}、{page?}
	Methods []string          `mapstructure:"methods"` // HTTP方法,默认 GET
	Params  map[string]string `mapstructure:"params"`  // 参数名 -> 记录类型
}

// paramPattern 匹配路径模板中的参数段
var paramPattern = regexp.MustCompile(`^\{([A-Za-z_][A-Za-z0-9_]*)(?::([A-Za-z_][A-Za-z0-9_]*))?(\?)?\}$`)

// compiledRoute 解析后的路由模板
type compiledRoute struct {
	def      RouteDefinition
	params   []models.RouteParam
	paths    []string // 转换后的路由树路径,可选参数会展开为两条
	methods  []string
	template string
}

// compileRoute 解析路由模板
// 执行流程:
//  1. 校验名称和路径
//  2. 逐段把 {param} 转换为 :param
//  3. 末尾的可选参数额外注册一条不带该段的路径
func compileRoute(def RouteDefinition) (*compiledRoute, error) {
	if !strings.HasPrefix(def.Path, "/") {
		return nil, fmt.Errorf("路由 %q 的路径必须以 / 开头: %s", def.Name, def.Path)
	}

	methods := def.Methods
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	for i, m := range methods {
		methods[i] = strings.ToUpper(strings.TrimSpace(m))
	}

	records := make(map[string]string, len(def.Params))
	for name, record := range def.Params {
		records[strings.ToLower(name)] = record
	}

	segments := strings.Split(strings.Trim(def.Path, "/"), "/")
	converted := make([]string, 0, len(segments))
	params := make([]models.RouteParam, 0)
	optional := false

	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if !strings.HasPrefix(seg, "{") {
			if strings.ContainsAny(seg, ":*{}") {
				return nil, fmt.Errorf("路由 %q 包含无法识别的路径段: %s", def.Name, seg)
			}
			converted = append(converted, seg)
			continue
		}

		m := paramPattern.FindStringSubmatch(seg)
		if m == nil {
			return nil, fmt.Errorf("路由 %q 的参数格式错误: %s", def.Name, seg)
		}
		if m[3] == "?" {
			if i != len(segments)-1 {
				return nil, fmt.Errorf("路由 %q 的可选参数只能位于末尾: %s", def.Name, seg)
			}
			optional = true
		}

		params = append(params, models.RouteParam{
			Name:   m[1],
			Record: records[strings.ToLower(m[1])],
			Key:    m[2],
		})
		converted = append(converted, ":"+m[1])
	}

	full := "/" + strings.Join(converted, "/")
	paths := []string{full}
	if optional {
		paths = append(paths, "/"+strings.Join(converted[:len(converted)-1], "/"))
	}

	return &compiledRoute{
		def:      def,
		params:   params,
		paths:    paths,
		methods:  methods,
		template: def.Path,
	}, nil
}
