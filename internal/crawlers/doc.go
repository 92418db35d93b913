// Package crawlers 发现站点中的页面URL
//
// # 概述
//
// 爬虫从入口URL出发,沿同域 a[href] 链接逐层访问,返回本次发现的页面URL。
// 每个链接在请求前先经过 ShouldCrawl 判断:不需要访问的链接(无法解析为路由或被忽略)
// 不会被请求,但仍作为发现结果返回,由调用方决定是否上报。
//
// # 爬取模式
//
// StaticCrawler 基于Colly,直接解析服务端返回的HTML:
//
//	crawler := NewStaticCrawler(Options{Config: cfg, Headers: headers, ShouldCrawl: predicate})
//	urls, err := crawler.Crawl(ctx, "https://example.com")
//
// DynamicCrawler 基于go-rod,在无头浏览器中渲染后提取链接,
// 配置 crawl.execute_javascript 时由 New 选择。
//
// # 并发
//
// 未配置 max_workers 时由 ResourceMonitor 按可用内存和CPU核数计算并发数。
// 动态模式下并发数即标签页池(PagePool)大小。
//
// # 响应处理
//
// 响应体上限默认3MB;带 Content-Encoding 的响应(gzip/deflate/br)在提取链接前解压。
// 调试模式下两种爬虫都跳过TLS证书验证。
package crawlers
