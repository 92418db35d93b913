package sitemap

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/records"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
	"github.com/spf13/cast"
)

// Binding 显式绑定,按参数名把路由参数绑定到记录
type Binding struct {
	Param  string `mapstructure:"param"`  // 路由参数名
	Record string `mapstructure:"record"` // 记录类型
	Column string `mapstructure:"column"` // 查找列,为空时使用记录类型的默认键
}

// ModelBinder 把路由参数绑定到数据记录,并计算最后修改时间
type ModelBinder struct {
	store    records.Store
	registry *records.Registry
	explicit map[string]Binding
	now      func() time.Time
}

// NewModelBinder 创建绑定器
func NewModelBinder(store records.Store, registry *records.Registry, bindings []Binding) *ModelBinder {
	explicit := make(map[string]Binding, len(bindings))
	for _, b := range bindings {
		explicit[b.Param] = b
	}

	return &ModelBinder{
		store:    store,
		registry: registry,
		explicit: explicit,
		now:      time.Now,
	}
}

// boundParam 待绑定的参数
type boundParam struct {
	index  int
	param  models.RouteParam
	record string
	column string
}

// plan 计算参数的绑定方式
// 先处理显式绑定,再处理声明了记录类型的隐式绑定
func (b *ModelBinder) plan(route *models.Route) []boundParam {
	planned := make([]boundParam, 0, len(route.Params))
	handled := make(map[int]bool, len(route.Params))

	for i, p := range route.Params {
		binding, ok := b.explicit[p.Name]
		if !ok {
			continue
		}
		if _, registered := b.registry.Lookup(binding.Record); !registered {
			continue
		}
		column := p.Key
		if column == "" {
			column = binding.Column
		}
		planned = append(planned, boundParam{index: i, param: p, record: binding.Record, column: column})
		handled[i] = true
	}

	for i, p := range route.Params {
		if handled[i] || p.Record == "" {
			continue
		}
		if _, registered := b.registry.Lookup(p.Record); !registered {
			utils.Debugf("路由 %s 参数 %s 的记录类型 %s 未注册,按普通参数处理", route.Name, p.Name, p.Record)
			continue
		}
		planned = append(planned, boundParam{index: i, param: p, record: p.Record, column: p.Key})
	}

	return planned
}

// Bind 绑定路由参数并返回关联记录
// 没有参数需要绑定时返回 nil, nil;
// 有多个记录参数时,按路径从左到右取最后一个绑定的记录
func (b *ModelBinder) Bind(ctx context.Context, rawURL string, route *models.Route) (*records.Record, error) {
	if route == nil {
		return nil, nil
	}

	planned := b.plan(route)
	if len(planned) == 0 {
		return nil, nil
	}

	var concerned *records.Record
	lastIndex := -1

	for _, p := range planned {
		value, ok := route.Values[p.param.Name]
		if !ok {
			continue
		}

		record, err := b.store.Find(ctx, p.record, p.column, value)
		if err != nil {
			bindErr := &models.BindingError{
				URL:       rawURL,
				RouteName: route.Name,
				Param:     p.param.Name,
				Value:     value,
			}
			if !errors.Is(err, records.ErrRecordNotFound) {
				bindErr.Cause = err
			}
			return nil, bindErr
		}

		if p.index > lastIndex {
			lastIndex = p.index
			concerned = record
		}
	}

	return concerned, nil
}

// LastModified 计算最后修改时间
// 没有绑定记录时返回 nil;优先使用更新时间列,其次创建时间列,
// 记录两列都没有时使用当前时间;列值无法解析为时间时记录警告并返回 nil
func (b *ModelBinder) LastModified(rawURL string, record *records.Record) *time.Time {
	if record == nil {
		return nil
	}

	rt, _ := b.registry.Lookup(record.Type)

	value, ok := record.Value(rt.UpdatedColumn)
	if !ok {
		value, ok = record.Value(rt.CreatedColumn)
	}
	if !ok {
		now := b.now()
		return &now
	}

	ts, err := cast.ToTimeE(value)
	if err != nil {
		utils.Warnf("⚠️  无法解析最后修改时间 %v (%s): %v", value, rawURL, err)
		return nil
	}
	return &ts
}
