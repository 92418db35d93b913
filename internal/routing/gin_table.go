package routing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/gin-gonic/gin"
)

// matchResultKey 请求上下文中保存匹配结果的键
type matchResultKey struct{}

// matchResult 单次回放请求的匹配结果
type matchResult struct {
	status models.MatchStatus
	route  *compiledRoute
	params gin.Params
}

// GinTable 基于 gin 路由树的路由表
// 注册的处理函数不执行业务逻辑,只把命中的路由写回请求上下文
type GinTable struct {
	engine *gin.Engine
	routes []RouteDefinition
}

// NewGinTable 根据路由声明构建路由表
// 路径冲突(gin 注册时 panic)会转换为错误返回
func NewGinTable(defs []RouteDefinition) (table *GinTable, err error) {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	engine.NoRoute(func(c *gin.Context) {
		if res := resultFrom(c); res != nil {
			res.status = models.MatchNotFound
		}
	})
	engine.NoMethod(func(c *gin.Context) {
		if res := resultFrom(c); res != nil {
			res.status = models.MatchMethodNotAllowed
		}
	})

	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.Name != "" {
			if names[def.Name] {
				return nil, fmt.Errorf("路由名称重复: %s", def.Name)
			}
			names[def.Name] = true
		}

		compiled, err := compileRoute(def)
		if err != nil {
			return nil, err
		}
		if err := register(engine, compiled); err != nil {
			return nil, err
		}
	}

	utils.Debugf("路由表构建完成: %d 条路由", len(defs))

	return &GinTable{
		engine: engine,
		routes: defs,
	}, nil
}

// register 把路由注册到 gin 路由树
func register(engine *gin.Engine, route *compiledRoute) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("注册路由 %q (%s) 失败: %v", route.def.Name, route.template, r)
		}
	}()

	handler := func(c *gin.Context) {
		if res := resultFrom(c); res != nil {
			res.status = models.MatchFound
			res.route = route
			res.params = append(gin.Params(nil), c.Params...)
		}
	}

	for _, method := range route.methods {
		for _, path := range route.paths {
			engine.Handle(method, path, handler)
		}
	}
	return nil
}

// resultFrom 取出请求上下文中的匹配结果
func resultFrom(c *gin.Context) *matchResult {
	res, _ := c.Request.Context().Value(matchResultKey{}).(*matchResult)
	return res
}

// MatchGet 实现 Table 接口
func (t *GinTable) MatchGet(ctx context.Context, path string) (models.RouteMatch, error) {
	if path == "" {
		path = "/"
	}
	if len(t.routes) == 0 {
		return models.RouteMatch{Status: models.MatchNotFound}, nil
	}

	res := &matchResult{status: models.MatchNotFound}
	req := &http.Request{
		Method:     http.MethodGet,
		URL:        &url.URL{Path: path},
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Host:       "localhost",
	}
	req = req.WithContext(context.WithValue(ctx, matchResultKey{}, res))

	t.engine.ServeHTTP(httptest.NewRecorder(), req)

	if res.status != models.MatchFound {
		return models.RouteMatch{Status: res.status}, nil
	}

	values := make(map[string]string, len(res.params))
	for _, p := range res.params {
		values[p.Key] = p.Value
	}

	return models.RouteMatch{
		Status: models.MatchFound,
		Route: &models.Route{
			Name:   res.route.def.Name,
			Path:   res.route.template,
			Params: append([]models.RouteParam(nil), res.route.params...),
			Values: values,
		},
	}, nil
}

// Routes 实现 Table 接口
func (t *GinTable) Routes() []RouteDefinition {
	return t.routes
}
