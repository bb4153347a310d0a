package fetcher

import (
	"math"
	"math/rand"
	"time"
)

const (
	// HTTPBackoffBase HTTP策略的退避基数
	HTTPBackoffBase = 2000 * time.Millisecond

	// BrowserBackoffBase 浏览器策略的退避基数(单次尝试成本更高)
	BrowserBackoffBase = 3000 * time.Millisecond
)

// ShouldRetry 判断是否还有重试额度
func ShouldRetry(attempt, maxRetries int) bool {
	return attempt < maxRetries
}

// BackoffWait 计算第attempt次失败后的等待时间
// 带抖动的指数退避: 2^attempt * base + uniform(0, base)
// 不设上限,重试次数由maxRetries约束
func BackoffWait(attempt int, base time.Duration) time.Duration {
	floor := time.Duration(math.Pow(2, float64(attempt))) * base
	jitter := time.Duration(rand.Int63n(int64(base)))
	return floor + jitter
}

// RandomDelay 成功抓取后的页面间随机延迟,取 base..2*base
func RandomDelay(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return base + time.Duration(rand.Int63n(int64(base)))
}
