// Package records 负责把路由参数绑定到数据库记录
package records

import (
	"fmt"
	"regexp"
	"strings"
)

// 默认列名
const (
	DefaultKeyColumn     = "id"
	DefaultUpdatedColumn = "updated_at"
	DefaultCreatedColumn = "created_at"
)

// identPattern SQL标识符,允许 schema.table 形式
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// RecordType 记录类型声明
type RecordType struct {
	Name          string `mapstructure:"name"`           // 记录类型名称,路由参数通过该名称声明
	Table         string `mapstructure:"table"`          // 数据表
	Key           string `mapstructure:"key"`            // 默认查找列 (默认:id)
	UpdatedColumn string `mapstructure:"updated_column"` // 最后修改时间列 (默认:updated_at)
	CreatedColumn string `mapstructure:"created_column"` // 创建时间列 (默认:created_at)
}

// Registry 记录类型注册表
type Registry struct {
	types map[string]RecordType
	names []string
}

// NewRegistry 创建注册表并补全默认列名
// 所有表名和列名都会校验为合法标识符,避免拼接SQL时注入
func NewRegistry(types []RecordType) (*Registry, error) {
	r := &Registry{
		types: make(map[string]RecordType, len(types)),
		names: make([]string, 0, len(types)),
	}

	for _, rt := range types {
		if rt.Name == "" {
			return nil, fmt.Errorf("记录类型缺少名称 (表: %s)", rt.Table)
		}
		if _, exists := r.types[rt.Name]; exists {
			return nil, fmt.Errorf("记录类型重复: %s", rt.Name)
		}
		if rt.Table == "" {
			rt.Table = rt.Name
		}
		if rt.Key == "" {
			rt.Key = DefaultKeyColumn
		}
		if rt.UpdatedColumn == "" {
			rt.UpdatedColumn = DefaultUpdatedColumn
		}
		if rt.CreatedColumn == "" {
			rt.CreatedColumn = DefaultCreatedColumn
		}

		for _, ident := range []string{rt.Table, rt.Key, rt.UpdatedColumn, rt.CreatedColumn} {
			if err := ValidateIdentifier(ident); err != nil {
				return nil, fmt.Errorf("记录类型 %s: %w", rt.Name, err)
			}
		}

		r.types[rt.Name] = rt
		r.names = append(r.names, rt.Name)
	}

	return r, nil
}

// Lookup 查找记录类型
func (r *Registry) Lookup(name string) (RecordType, bool) {
	if r == nil {
		return RecordType{}, false
	}
	rt, ok := r.types[name]
	return rt, ok
}

// Names 按声明顺序返回记录类型名称
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return r.names
}

// ValidateIdentifier 校验SQL标识符
func ValidateIdentifier(ident string) error {
	if !identPattern.MatchString(ident) {
		return fmt.Errorf("非法的SQL标识符: %q", ident)
	}
	return nil
}

// quoteIdentifier 为标识符加双引号,sqlite 和 postgres 均支持
func quoteIdentifier(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}
