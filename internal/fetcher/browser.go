package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// 导航超时范围: 15-25秒随机,避免固定超时形成指纹
const (
	navTimeoutMin = 15 * time.Second
	navTimeoutMax = 25 * time.Second

	// 网络空闲判定窗口与等待上限
	requestIdleWindow  = 1 * time.Second
	requestIdleTimeout = 15 * time.Second
)

// viewportPool 常见桌面分辨率池,每次初始化随机选取一个
var viewportPool = []models.Viewport{
	{Width: 1920, Height: 1080},
	{Width: 1366, Height: 768},
	{Width: 1536, Height: 864},
	{Width: 1440, Height: 900},
	{Width: 1280, Height: 720},
}

// BrowserFetcher 浏览器抓取器(使用Rod)
// 浏览器实例延迟启动,同一实例复用单个标签页以保留会话状态
type BrowserFetcher struct {
	config   models.ScrapeConfig
	identity models.IdentityProvider
	behavior *Behavior

	browser *rod.Browser
	page    *rod.Page
	mu      sync.Mutex // 保护browser/page的延迟初始化与关闭
}

// NewBrowserFetcher 创建浏览器抓取器(不立即启动浏览器)
func NewBrowserFetcher(config models.ScrapeConfig, identity models.IdentityProvider) *BrowserFetcher {
	return &BrowserFetcher{
		config:   config,
		identity: identity,
		behavior: NewBehavior(nil),
	}
}

// ensureBrowser 延迟启动浏览器并创建标签页,重复调用幂等
func (bf *BrowserFetcher) ensureBrowser() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.browser != nil && bf.page != nil {
		return nil
	}

	// 配置launcher
	l := launcher.New().Headless(bf.config.Headless)

	// 禁用自动化特征相关开关,降低被识别为无头浏览器的概率
	l = l.Set("disable-blink-features", "AutomationControlled")
	l = l.Set("no-sandbox")
	l = l.Set("disable-dev-shm-usage")
	l = l.Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return fmt.Errorf("创建标签页失败: %w", err)
	}

	// 视口: 优先使用自定义配置,否则从分辨率池随机选取
	vp := bf.pickViewport()
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		utils.Warnf("设置视口失败: %v", err)
	}

	// 与HTTP策略共用同一身份,保持User-Agent一致
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: bf.identity.CurrentAgent(),
	}); err != nil {
		utils.Warnf("设置User-Agent失败: %v", err)
	}

	// 自定义头部通过请求拦截注入每个请求
	if custom := bf.identity.CustomHeaders(); len(custom) > 0 {
		router := page.HijackRequests()
		router.MustAdd("*", func(hctx *rod.Hijack) {
			for name, value := range custom {
				hctx.Request.Req().Header.Set(name, value)
			}
			hctx.ContinueRequest(&proto.FetchContinueRequest{})
		})
		go router.Run()
	}

	bf.browser = browser
	bf.page = page
	utils.Debugf("浏览器已启动: %s (视口: %dx%d)", controlURL, vp.Width, vp.Height)
	return nil
}

func (bf *BrowserFetcher) pickViewport() models.Viewport {
	if bf.config.CustomViewport != nil {
		return *bf.config.CustomViewport
	}
	return viewportPool[rand.Intn(len(viewportPool))]
}

// Fetch 使用浏览器抓取页面,带指数退避重试
// 返回渲染后的完整HTML
func (bf *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	if err := bf.ensureBrowser(); err != nil {
		return "", &FetchError{Kind: KindBrowser, URL: targetURL, Cause: err}
	}

	maxRetries := bf.config.MaxRetries
	var lastErr error

	for attempt := 0; ; attempt++ {
		html, err := bf.fetchOnce(ctx, targetURL)
		if err == nil {
			// 成功后随机延迟,避免固定节奏
			if waitErr := sleepCtx(ctx, RandomDelay(time.Duration(bf.config.BaseDelayMs)*time.Millisecond)); waitErr != nil {
				return html, nil
			}
			return html, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}

		var fe *FetchError
		if errors.As(err, &fe) && !fe.Retryable() {
			return "", lastErr
		}

		if !ShouldRetry(attempt, maxRetries) {
			utils.Errorf("❌ 浏览器抓取失败,已达最大重试次数 [%s]: %v", targetURL, lastErr)
			return "", fmt.Errorf("%w: %v", ErrMaxRetriesReached, lastErr)
		}

		wait := BackoffWait(attempt, BrowserBackoffBase)
		utils.Warnf("⚠️ 浏览器抓取失败 [%s] (尝试 %d/%d),%v后重试: %v",
			targetURL, attempt+1, maxRetries, wait.Round(time.Millisecond), lastErr)
		if waitErr := sleepCtx(ctx, wait); waitErr != nil {
			return "", lastErr
		}
	}
}

// fetchOnce 单次浏览器抓取: 导航、等待加载、模拟行为、提取HTML
func (bf *BrowserFetcher) fetchOnce(ctx context.Context, targetURL string) (string, error) {
	page := bf.page

	// 随机化导航超时
	navTimeout := navTimeoutMin + time.Duration(rand.Int63n(int64(navTimeoutMax-navTimeoutMin)))
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	utils.Debugf("🌐 浏览器导航: %s (超时: %v)", targetURL, navTimeout.Round(time.Second))

	// 在goroutine中执行Navigate,超时则强制返回
	navErrCh := make(chan error, 1)
	go func() {
		navErrCh <- page.Navigate(targetURL)
	}()
	select {
	case navErr := <-navErrCh:
		if navErr != nil {
			return "", &FetchError{Kind: KindBrowser, URL: targetURL, Cause: fmt.Errorf("导航失败: %w", navErr)}
		}
	case <-navCtx.Done():
		return "", &FetchError{Kind: KindBrowser, URL: targetURL, Cause: fmt.Errorf("导航超时: %w", navCtx.Err())}
	}

	// 等待DOM与资源加载
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return "", &FetchError{Kind: KindBrowser, URL: targetURL, Cause: fmt.Errorf("等待页面加载失败: %w", err)}
	}

	// 等待网络空闲(动态内容加载完成)
	// WaitRequestIdle返回等待函数,调用阻塞直到网络空闲
	waitIdle := page.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	idleCtx, idleCancel := context.WithTimeout(ctx, requestIdleTimeout)
	defer idleCancel()
	idleDone := make(chan struct{})
	go func() {
		waitIdle()
		close(idleDone)
	}()
	select {
	case <-idleDone:
	case <-idleCtx.Done():
		utils.Debugf("等待网络空闲超时,继续处理: %s", targetURL)
	}

	// 模拟人类浏览行为
	if err := bf.simulateBehavior(ctx, page); err != nil {
		utils.Debugf("行为模拟中断: %v", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", &FetchError{Kind: KindBrowser, URL: targetURL, Cause: fmt.Errorf("提取HTML失败: %w", err)}
	}

	// 同步Cookie与Referer到身份状态,便于后续HTTP请求复用会话
	bf.recordSession(targetURL)

	utils.Infof("✅ 浏览器抓取成功: %s (%d 字节)", targetURL, len(html))
	return html, nil
}

// simulateBehavior 执行行为计划
// 普通模式: 指针移动→滚动→阅读停留
// 拟人模式: 阅读延迟→指针移动→滚动→深度探索,整体更慢更完整
func (bf *BrowserFetcher) simulateBehavior(ctx context.Context, page *rod.Page) error {
	if bf.config.HumanMode {
		if err := sleepCtx(ctx, bf.behavior.ReadingDelay(ComplexityMedium)); err != nil {
			return err
		}
		if err := applyReading(ctx, page, bf.behavior.ReadingPlan()); err != nil {
			return err
		}
		if err := applyPointer(ctx, page, bf.behavior.PointerPlan()); err != nil {
			return err
		}
		if err := applyScrolling(ctx, page, bf.behavior.NewScrollPlan()); err != nil {
			return err
		}
		return applyExploration(ctx, page, bf.behavior.NewExplorationPlan())
	}

	if err := applyPointer(ctx, page, bf.behavior.PointerPlan()); err != nil {
		return err
	}
	if err := applyScrolling(ctx, page, bf.behavior.NewScrollPlan()); err != nil {
		return err
	}
	return applyReading(ctx, page, bf.behavior.ReadingPlan())
}

// recordSession 将浏览器会话的Cookie和访问记录写回身份状态
func (bf *BrowserFetcher) recordSession(targetURL string) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return
	}

	cookies, err := bf.page.Cookies(nil)
	if err != nil {
		utils.Debugf("读取浏览器Cookie失败: %v", err)
	} else if len(cookies) > 0 {
		values := make([]string, 0, len(cookies))
		for _, c := range cookies {
			values = append(values, fmt.Sprintf("%s=%s", c.Name, c.Value))
		}
		bf.identity.RecordCookies(parsed.Hostname(), values)
	}

	bf.identity.PushReferer(targetURL)
}

// Close 关闭浏览器,释放资源;未启动时为空操作
func (bf *BrowserFetcher) Close() {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.browser != nil {
		bf.browser.MustClose()
		bf.browser = nil
		bf.page = nil
		utils.Debugf("浏览器已关闭")
	}
}
