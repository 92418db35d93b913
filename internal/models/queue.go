package models

// URLItem 爬取队列中的一项
type URLItem struct {
	// URL 去掉片段后的完整URL
	URL string

	// Depth 深度层级,入口URL为1
	Depth int

	// SourceURL 发现此URL的页面,入口URL为空
	SourceURL string
}
