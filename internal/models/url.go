package models

import (
	"errors"
	"fmt"
	"net/url"
)

// ValidateURL 检查URL是否为带主机名的 http/https 绝对地址
func ValidateURL(raw string) error {
	if raw == "" {
		return errors.New("URL不能为空")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("无效的URL: %w", err)
	}

	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("URL必须是HTTP或HTTPS协议: %q", u.Scheme)
	case u.Host == "":
		return errors.New("URL必须包含主机名")
	case u.Hostname() == "":
		return fmt.Errorf("URL主机名无效: %q", u.Host)
	}
	return nil
}
