package models

import "net/http"

// IdentityProvider 请求身份提供者
// 向抓取策略提供当前客户端身份(User-Agent、Cookie、Referer),
// 并接收响应侧的会话状态回写
type IdentityProvider interface {
	// HeadersFor 为目标URL构建请求头
	// attempt>0 表示重试请求,可能触发User-Agent轮换
	HeadersFor(targetURL string, attempt int) http.Header

	// RecordCookies 从响应的Set-Cookie值记录会话Cookie
	// 仅记录 name=value 部分,指令部分被剥离
	RecordCookies(hostname string, setCookieValues []string)

	// PushReferer 成功请求后追加Referer历史(FIFO窗口,最多10条)
	PushReferer(targetURL string)

	// CurrentAgent 返回当前User-Agent
	CurrentAgent() string

	// CustomHeaders 返回用户自定义头部的副本
	CustomHeaders() map[string]string
}
