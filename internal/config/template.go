// Package config 管理配置文件模板
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
)

const (
	// DefaultConfigFile 默认配置文件路径
	DefaultConfigFile = "configs/config.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed config_template.yaml
var defaultTemplate string

// Template 返回配置文件模板
func Template() string {
	return defaultTemplate
}

// EnsureConfigExists 配置文件不存在时写入模板
// 返回是否新建了文件
func EnsureConfigExists(path string) (bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("无法读取配置文件信息 [%s]: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(defaultTemplate), 0644); err != nil {
		return false, fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
	}
	return true, nil
}

// ValidateFileSize 验证配置文件大小是否在限制内
func ValidateFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &models.ConfigError{FilePath: path, Cause: err}
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: path,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}

	return nil
}
