package fetcher

import (
	"errors"
	"fmt"
)

// FailureKind 抓取失败分类
type FailureKind string

const (
	KindTransport FailureKind = "transport" // 网络/超时失败,可重试
	KindAntiBot   FailureKind = "anti_bot"  // HTTP 403或反爬特征,可重试,耗尽后可降级浏览器
	KindRateLimit FailureKind = "rate_limit" // HTTP 429,可重试
	KindNotFound  FailureKind = "not_found" // HTTP 404,不可重试(页面不会因重试而出现)
	KindHTTP      FailureKind = "http"      // 其他>=400,可重试
	KindBrowser   FailureKind = "browser"   // 浏览器导航/运行时失败,可重试,不再降级
)

// ErrMaxRetriesReached 已达最大重试次数
var ErrMaxRetriesReached = errors.New("已达最大重试次数")

// FetchError 抓取失败
// 携带失败分类和HTTP状态码(如适用),供编排器决定是否降级到浏览器策略
type FetchError struct {
	Kind       FailureKind
	URL        string
	StatusCode int
	Cause      error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("抓取失败 [%s] (HTTP %d, 类别=%s): %v", e.URL, e.StatusCode, e.Kind, e.Cause)
	}
	return fmt.Sprintf("抓取失败 [%s] (类别=%s): %v", e.URL, e.Kind, e.Cause)
}

// Unwrap 支持errors.Is/As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Retryable 该失败类别是否可重试
func (e *FetchError) Retryable() bool {
	return e.Kind != KindNotFound
}

// IsAntiBot 是否为反爬类失败(可降级浏览器策略)
func IsAntiBot(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindAntiBot
	}
	return false
}

// classifyStatus 按HTTP状态码分类失败
// 状态码<400不属于失败,调用方不应传入
func classifyStatus(url string, status int) *FetchError {
	switch {
	case status == 403:
		return &FetchError{Kind: KindAntiBot, URL: url, StatusCode: status,
			Cause: errors.New("访问被拒绝 - 检测到反爬保护")}
	case status == 404:
		return &FetchError{Kind: KindNotFound, URL: url, StatusCode: status,
			Cause: errors.New("页面不存在")}
	case status == 429:
		return &FetchError{Kind: KindRateLimit, URL: url, StatusCode: status,
			Cause: errors.New("请求过于频繁 - 已被限流")}
	default:
		return &FetchError{Kind: KindHTTP, URL: url, StatusCode: status,
			Cause: fmt.Errorf("HTTP %d", status)}
	}
}
