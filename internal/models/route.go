package models

// MatchStatus 路由解析结果
type MatchStatus int

const (
	MatchNotFound         MatchStatus = iota // 没有任何路由匹配该路径
	MatchMethodNotAllowed                    // 路径匹配但不支持GET
	MatchFound                               // 命中GET路由
)

// String 返回可读名称
func (s MatchStatus) String() string {
	switch s {
	case MatchFound:
		return "matched"
	case MatchMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "not_found"
	}
}

// RouteParam 路由参数声明
type RouteParam struct {
	Name   string // 参数名,如 post
	Record string // 声明的记录类型,普通标量参数为空
	Key    string // 路径中指定的查找列,如 {post:slug} 中的 slug,为空时使用记录类型的默认键
}

// Route 命中的路由
type Route struct {
	Name   string            // 路由名称,如 blog.show
	Path   string            // 路由模板,如 /blog/{post}
	Params []RouteParam      // 参数签名,按路径中出现的顺序
	Values map[string]string // 实际路径取值
}

// HasRecordParams 是否存在声明了记录类型的参数
func (r *Route) HasRecordParams() bool {
	for _, p := range r.Params {
		if p.Record != "" {
			return true
		}
	}
	return false
}

// RouteMatch 解析结果,只有完整命中或明确失败两种情况
type RouteMatch struct {
	Status MatchStatus
	Route  *Route
}

// URLState URL在一次生成中的状态
type URLState int

const (
	URLDiscovered URLState = iota
	URLResolving
	URLAccepted
	URLRejected
	URLFailed
)

// Terminal 是否为终止状态
func (s URLState) Terminal() bool {
	return s == URLAccepted || s == URLRejected || s == URLFailed
}

// String 返回可读名称
func (s URLState) String() string {
	switch s {
	case URLDiscovered:
		return "discovered"
	case URLResolving:
		return "resolving"
	case URLAccepted:
		return "accepted"
	case URLRejected:
		return "rejected"
	case URLFailed:
		return "failed"
	default:
		return "unknown"
	}
}
