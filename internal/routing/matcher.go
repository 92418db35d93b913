package routing

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// NameMatcher 路由名称模式匹配器
// 模式中只有 * 是通配符,可以匹配包含 . 在内的任意字符序列,其余字符按字面匹配
type NameMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// CompilePattern 编译单个路由名称模式
func CompilePattern(pattern string) (glob.Glob, error) {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = glob.QuoteMeta(part)
	}

	g, err := glob.Compile(strings.Join(parts, "*"))
	if err != nil {
		return nil, fmt.Errorf("路由名称模式无效 %q: %w", pattern, err)
	}
	return g, nil
}

// NewNameMatcher 按给定顺序编译一组模式
func NewNameMatcher(patterns []string) (*NameMatcher, error) {
	m := &NameMatcher{
		patterns: make([]string, 0, len(patterns)),
		globs:    make([]glob.Glob, 0, len(patterns)),
	}

	for _, p := range patterns {
		g, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}

	return m, nil
}

// Match 路由名称是否命中任一模式
// 未命名路由不会命中任何模式
func (m *NameMatcher) Match(name string) bool {
	return m.FirstMatch(name) >= 0
}

// FirstMatch 返回第一个命中模式的下标,未命中返回 -1
func (m *NameMatcher) FirstMatch(name string) int {
	if m == nil || name == "" {
		return -1
	}
	for i, g := range m.globs {
		if g.Match(name) {
			return i
		}
	}
	return -1
}

// Patterns 返回模式列表
func (m *NameMatcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}
