package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

const (
	// httpRequestTimeout 单次HTTP请求超时
	httpRequestTimeout = 20 * time.Second

	// maxRedirects 最大重定向次数
	maxRedirects = 5
)

// HTTPFetcher HTTP抓取策略
// 每次调用发起一个单独请求,带身份头部、状态分类和有界重试
type HTTPFetcher struct {
	config   models.ScrapeConfig
	identity models.IdentityProvider
	client   *http.Client
}

// NewHTTPFetcher 创建HTTP抓取策略
func NewHTTPFetcher(config models.ScrapeConfig, identity models.IdentityProvider) *HTTPFetcher {
	client := &http.Client{
		Timeout: httpRequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("重定向次数超过限制(%d)", maxRedirects)
			}
			return nil
		},
	}

	return &HTTPFetcher{
		config:   config,
		identity: identity,
		client:   client,
	}
}

// Fetch 抓取单个页面,返回HTML
// 重试为显式有界循环,attempt为循环状态;不可重试的失败立即终止
func (hf *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		utils.Infof("🌐 抓取: %s (尝试 %d)", targetURL, attempt+1)

		html, ferr := hf.fetchOnce(targetURL, attempt)
		if ferr == nil {
			// 成功后的页面间随机延迟
			delay := RandomDelay(time.Duration(hf.config.BaseDelayMs) * time.Millisecond)
			utils.Debugf("页面间延迟: %.1f秒", delay.Seconds())
			if err := sleepCtx(ctx, delay); err != nil {
				return "", err
			}
			return html, nil
		}

		lastErr = ferr
		utils.Warnf("⚠️  抓取失败 [%s]: %v", targetURL, ferr)

		if !ferr.Retryable() {
			return "", ferr
		}
		if !ShouldRetry(attempt, hf.config.MaxRetries) {
			utils.Errorf("已达最大重试次数 (%d): %s", hf.config.MaxRetries, targetURL)
			return "", lastErr
		}

		wait := BackoffWait(attempt, HTTPBackoffBase)
		utils.Infof("   重试 %d/%d, 等待 %.1f秒...", attempt+1, hf.config.MaxRetries, wait.Seconds())
		if err := sleepCtx(ctx, wait); err != nil {
			return "", err
		}
	}
}

// fetchOnce 发起一次请求并分类响应
func (hf *HTTPFetcher) fetchOnce(targetURL string, attempt int) (string, *FetchError) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return "", &FetchError{Kind: KindTransport, URL: targetURL, Cause: err}
	}

	// Colly的访问历史无法清空,每次尝试重建collector
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetClient(hf.client)
	c.SetRequestTimeout(httpRequestTimeout)

	headers := hf.identity.HeadersFor(targetURL, attempt)

	c.OnRequest(func(r *colly.Request) {
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	var html string
	var ferr *FetchError

	c.OnResponse(func(r *colly.Response) {
		status := r.StatusCode

		// >=500 视为传输层失败,可重试
		if status >= 500 {
			ferr = &FetchError{Kind: KindTransport, URL: targetURL, StatusCode: status,
				Cause: fmt.Errorf("HTTP %d", status)}
			return
		}
		if status >= 400 {
			ferr = classifyStatus(targetURL, status)
			return
		}

		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decompressed, derr := decompressResponse(encoding, r.Body)
			if derr != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", targetURL, encoding, derr)
			} else {
				body = decompressed
			}
		}

		// 成功: 回写会话状态
		hf.identity.RecordCookies(parsed.Hostname(), r.Headers.Values("Set-Cookie"))
		hf.identity.PushReferer(targetURL)

		html = string(body)
		utils.Infof("✅ 抓取成功: %d (%d bytes)", status, len(body))
	})

	if err := c.Visit(targetURL); err != nil {
		if ferr != nil {
			return "", ferr
		}
		return "", &FetchError{Kind: KindTransport, URL: targetURL, Cause: err}
	}

	if ferr != nil {
		return "", ferr
	}
	return html, nil
}

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip, deflate, br (Brotli) 三种压缩格式
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}

// sleepCtx 可取消的延迟等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
