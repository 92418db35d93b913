package utils

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
)

// ReadURLsFromFile 从文件中读取URL列表
// base 非空时,以 / 开头的行按 base 解析为绝对URL
func ReadURLsFromFile(path string, base string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开URL文件失败: %w", err)
	}
	defer file.Close()

	urls, err := ParseURLList(file, base)
	if err != nil {
		return nil, fmt.Errorf("读取URL文件失败 [%s]: %w", path, err)
	}

	Debugf("从 %s 加载了 %d 个URL", path, len(urls))
	return urls, nil
}

// ParseURLList 解析URL列表
// 每行一个URL,# 开始的内容为注释;无效URL记录警告后跳过,重复URL只保留第一次出现
func ParseURLList(r io.Reader, base string) ([]string, error) {
	var baseURL *url.URL
	if base != "" {
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("基准URL无效: %w", err)
		}
		baseURL = parsed
	}

	urls := make([]string, 0)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if baseURL != nil && strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "//") {
			ref, err := url.Parse(line)
			if err == nil {
				line = baseURL.ResolveReference(ref).String()
			}
		}

		if err := models.ValidateURL(line); err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		if seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return urls, nil
}
