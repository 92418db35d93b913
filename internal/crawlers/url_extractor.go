package crawlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// URLExtractor 页面链接提取器
type URLExtractor struct {
	targetHost       string
	allowCrossDomain bool
}

// NewURLExtractor 创建链接提取器
func NewURLExtractor(targetHost string, allowCrossDomain bool) *URLExtractor {
	return &URLExtractor{
		targetHost:       targetHost,
		allowCrossDomain: allowCrossDomain,
	}
}

// ExtractFromHTML 从HTML提取 a[href] 链接
// 相对链接按页面地址(或 <base href>)转换为绝对URL,rel="nofollow" 的链接不提取
func (e *URLExtractor) ExtractFromHTML(htmlContent string, baseURL string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("解析baseURL失败: %w", err)
	}

	var links []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "base":
				if href, ok := attr(n, "href"); ok {
					if ref, err := url.Parse(href); err == nil {
						base = base.ResolveReference(ref)
					}
				}
			case "a":
				if link, ok := e.linkFrom(n, base); ok && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// linkFrom 解析单个 a 元素
func (e *URLExtractor) linkFrom(n *html.Node, base *url.URL) (string, bool) {
	if rel, ok := attr(n, "rel"); ok && isNofollow(rel) {
		return "", false
	}
	href, ok := attr(n, "href")
	if !ok {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}

	link := base.ResolveReference(ref).String()
	if follow, _ := e.ShouldFollowLink(link); !follow {
		return "", false
	}
	canonical, _, err := canonicalLink(link)
	if err != nil {
		return "", false
	}
	return canonical, true
}

// ShouldFollowLink 判断链接是否属于本次爬取范围
func (e *URLExtractor) ShouldFollowLink(linkURL string) (bool, string) {
	parsedURL, err := url.Parse(linkURL)
	if err != nil {
		return false, "URL格式无效"
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, "不支持的协议"
	}

	if !e.allowCrossDomain && parsedURL.Host != e.targetHost {
		log.Debug().Msgf("跨域链接已过滤: %s (目标域: %s)", linkURL, e.targetHost)
		return false, "跨域链接已过滤"
	}

	return true, ""
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func isNofollow(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		if token == "nofollow" {
			return true
		}
	}
	return false
}
