package core

import (
	"context"

	"github.com/RecoveryAshes/PageHarvest/internal/extract"
	"github.com/RecoveryAshes/PageHarvest/internal/fetcher"
	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
)

// 抓取方式标识,写入结果元数据
const (
	MethodHTTP             = "HTTP"
	MethodBrowser          = "Browser"
	MethodBrowserHumanMode = "Browser (Human Mode)"
)

// Fetcher 页面抓取策略
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (string, error)
}

// Scraper 单页抓取编排器
// 策略选择: 拟人模式直接走浏览器;否则先HTTP,仅在反爬拦截时降级到浏览器一次
type Scraper struct {
	config    models.ScrapeConfig
	identity  *Identity
	http      Fetcher
	browser   Fetcher
	extractor *extract.Extractor

	// 关闭回调,持有浏览器资源时非nil
	closeFn func()
}

// NewScraper 创建抓取编排器,HTTP与浏览器策略共享同一身份状态
func NewScraper(config models.ScrapeConfig, profile extract.SiteProfile) *Scraper {
	identity := NewIdentity(nil)
	browser := fetcher.NewBrowserFetcher(config, identity)

	return &Scraper{
		config:    config,
		identity:  identity,
		http:      fetcher.NewHTTPFetcher(config, identity),
		browser:   browser,
		extractor: extract.NewExtractor(profile),
		closeFn:   browser.Close,
	}
}

// Retrieve 获取页面HTML,返回实际使用的抓取方式
func (s *Scraper) Retrieve(ctx context.Context, targetURL string) (string, string, error) {
	// 拟人模式直接使用浏览器
	if s.config.HumanMode {
		utils.Infof("👤 拟人模式: 直接使用浏览器抓取 %s", targetURL)
		html, err := s.browser.Fetch(ctx, targetURL)
		return html, MethodBrowserHumanMode, err
	}

	if !s.config.UseBrowser {
		html, err := s.http.Fetch(ctx, targetURL)
		if err == nil {
			return html, MethodHTTP, nil
		}

		// 仅反爬拦截触发浏览器降级,且只降级一次
		if !fetcher.IsAntiBot(err) {
			return "", MethodHTTP, err
		}
		utils.Warnf("⚠️ HTTP被拦截,切换到浏览器模拟: %s", targetURL)
	}

	html, err := s.browser.Fetch(ctx, targetURL)
	return html, MethodBrowser, err
}

// Scrape 抓取并提取单个页面
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*models.PageRecord, error) {
	if err := models.ValidateURL(targetURL); err != nil {
		return nil, err
	}

	html, method, err := s.Retrieve(ctx, targetURL)
	if err != nil {
		utils.Errorf("❌ 抓取失败 [%s]: %v", targetURL, err)
		return nil, err
	}

	record, err := s.extractor.Extract(html, targetURL)
	if err != nil {
		return nil, err
	}
	record.Metadata.ScrapingMethod = method

	utils.Infof("📄 提取完成 (%s): %q (%d 词, %d 章节)",
		method, record.Title, record.Metadata.WordCount, record.Metadata.SectionCount)
	return record, nil
}

// SetCustomHeaders 注入用户自定义请求头,两种抓取策略同时生效
func (s *Scraper) SetCustomHeaders(headers map[string]string) error {
	return s.identity.SetCustomHeaders(headers)
}

// IdentityStats 返回当前身份状态快照
func (s *Scraper) IdentityStats() IdentityStats {
	return s.identity.Stats()
}

// Close 释放浏览器资源
func (s *Scraper) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}
