package sitemap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/routing"
)

// Rule 路由名称模式与取值
type Rule struct {
	Pattern string `mapstructure:"pattern"`
	Value   string `mapstructure:"value"`
}

// RulesConfig 规则配置
type RulesConfig struct {
	DefaultFrequency string
	DefaultPriority  string
	Frequencies      []Rule
	Priorities       []Rule
}

// RuleSet 更新频率和优先级分配规则
//
// 规则按定义顺序匹配,第一个命中的规则生效,而不是最具体的规则。
// 例如 blog.* => weekly 定义在 blog.index => daily 之前时,blog.index 得到 weekly。
type RuleSet struct {
	defaultFrequency models.ChangeFrequency
	defaultPriority  models.Priority

	frequencyMatcher *routing.NameMatcher
	frequencies      []models.ChangeFrequency

	priorityMatcher *routing.NameMatcher
	priorities      []models.Priority
}

// NewRuleSet 校验并编译规则
// 任何非法取值都会返回 InvalidValueError,应在爬取开始前终止
func NewRuleSet(cfg RulesConfig) (*RuleSet, error) {
	rs := &RuleSet{
		defaultFrequency: models.FrequencyDaily,
		defaultPriority:  models.DefaultPriority,
	}

	if cfg.DefaultFrequency != "" {
		freq, err := models.ParseChangeFrequency(cfg.DefaultFrequency)
		if err != nil {
			return nil, fmt.Errorf("默认更新频率: %w", err)
		}
		rs.defaultFrequency = freq
	}

	if cfg.DefaultPriority != "" {
		prio, err := parsePriority(cfg.DefaultPriority)
		if err != nil {
			return nil, fmt.Errorf("默认优先级: %w", err)
		}
		rs.defaultPriority = prio
	}

	freqPatterns := make([]string, 0, len(cfg.Frequencies))
	for _, rule := range cfg.Frequencies {
		freq, err := models.ParseChangeFrequency(rule.Value)
		if err != nil {
			return nil, fmt.Errorf("更新频率规则 %q: %w", rule.Pattern, err)
		}
		freqPatterns = append(freqPatterns, rule.Pattern)
		rs.frequencies = append(rs.frequencies, freq)
	}

	prioPatterns := make([]string, 0, len(cfg.Priorities))
	for _, rule := range cfg.Priorities {
		prio, err := parsePriority(rule.Value)
		if err != nil {
			return nil, fmt.Errorf("优先级规则 %q: %w", rule.Pattern, err)
		}
		prioPatterns = append(prioPatterns, rule.Pattern)
		rs.priorities = append(rs.priorities, prio)
	}

	var err error
	if rs.frequencyMatcher, err = routing.NewNameMatcher(freqPatterns); err != nil {
		return nil, err
	}
	if rs.priorityMatcher, err = routing.NewNameMatcher(prioPatterns); err != nil {
		return nil, err
	}

	return rs, nil
}

// parsePriority 解析配置中的优先级文本
func parsePriority(value string) (models.Priority, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &models.InvalidValueError{
			Setting:  "priority",
			Value:    value,
			Accepted: models.AcceptedPriorities(),
		}
	}
	return models.ParsePriority(f)
}

// Assign 为条目分配更新频率和优先级
// 先重置为默认值,再分别取第一个命中的频率规则和优先级规则
func (rs *RuleSet) Assign(entry *models.Entry) {
	entry.ChangeFrequency = rs.defaultFrequency
	entry.Priority = rs.defaultPriority

	if i := rs.frequencyMatcher.FirstMatch(entry.RouteName); i >= 0 {
		entry.ChangeFrequency = rs.frequencies[i]
	}
	if i := rs.priorityMatcher.FirstMatch(entry.RouteName); i >= 0 {
		entry.Priority = rs.priorities[i]
	}
}

// Defaults 返回默认频率和优先级
func (rs *RuleSet) Defaults() (models.ChangeFrequency, models.Priority) {
	return rs.defaultFrequency, rs.defaultPriority
}
