package main

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
)

// ValidateFlags 检查 refresh 的命令行参数
// 零值表示未指定,沿用配置文件
func ValidateFlags(targetURL string, depth int, output string) error {
	if targetURL != "" {
		if err := models.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	if depth != 0 && (depth < models.MinDepth || depth > models.MaxDepth) {
		return fmt.Errorf("爬取深度必须在%d-%d之间,当前值: %d", models.MinDepth, models.MaxDepth, depth)
	}

	if output != "" && (strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator))) {
		return fmt.Errorf("输出路径必须是文件: %s", output)
	}
	return nil
}

// NormalizeURL 为没有协议的地址补上 https://
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("无法解析URL %q: %w", raw, err)
	}
	return u.String(), nil
}
