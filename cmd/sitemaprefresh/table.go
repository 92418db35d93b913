package main

import (
	"io"
	"net/url"

	"github.com/RecoveryAshes/SitemapRefresh/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// EntryTableRenderer 以表格形式展示站点地图条目
type EntryTableRenderer struct {
	out io.Writer
}

// NewEntryTableRenderer 创建表格渲染器
func NewEntryTableRenderer(out io.Writer) *EntryTableRenderer {
	return &EntryTableRenderer{out: out}
}

// Render 输出条目表格
// entries 应已按URL路径排序 (Sitemap.List)
func (r *EntryTableRenderer) Render(entries []models.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"URL path", "NAME", "CHANGE", "FREQ", "PRIO"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			displayPath(e.URL),
			e.RouteName,
			e.LastChange(),
			string(e.ChangeFrequency),
			e.Priority.String(),
		})
	}

	t.AppendFooter(table.Row{"", "", "", "TOTAL", len(entries)})
	t.Render()
}

// displayPath 表格中只显示路径部分
func displayPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.RequestURI()
}
