package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/RecoveryAshes/SitemapRefresh/internal/utils"
)

// Namespace sitemaps.org 协议命名空间
const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// urlSet sitemap XML 根节点
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []urlElement `xml:"url"`
}

// urlElement 单个 <url> 节点
type urlElement struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority"`
}

// Render 按插入顺序生成 sitemap XML
func (s *Sitemap) Render() ([]byte, error) {
	entries := s.Entries()

	set := urlSet{
		Xmlns: Namespace,
		URLs:  make([]urlElement, 0, len(entries)),
	}
	for _, e := range entries {
		set.URLs = append(set.URLs, toElement(e))
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "    ")
	if err := encoder.Encode(set); err != nil {
		return nil, fmt.Errorf("生成站点地图XML失败: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// toElement 转换条目为XML节点
func toElement(e models.Entry) urlElement {
	el := urlElement{
		Loc:        e.URL,
		ChangeFreq: string(e.ChangeFrequency),
		Priority:   e.Priority.String(),
	}
	if e.LastModified != nil {
		el.LastMod = e.LastModified.Format(time.RFC3339)
	}
	return el
}

// Export 写入站点地图文件
// 先写入同目录下的临时文件再重命名,写入失败时原文件保持不变
func (s *Sitemap) Export(path string) error {
	data, err := s.Render()
	if err != nil {
		return &models.ExportError{Path: path, Cause: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sitemap-*.xml.tmp")
	if err != nil {
		return &models.ExportError{Path: path, Cause: err}
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &models.ExportError{Path: path, Cause: cause}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &models.ExportError{Path: path, Cause: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &models.ExportError{Path: path, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &models.ExportError{Path: path, Cause: err}
	}

	utils.Debugf("站点地图已写入: %s (%d 字节)", path, len(data))
	return nil
}
