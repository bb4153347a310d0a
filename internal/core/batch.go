package core

import (
	"context"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
)

// PageScraper 单页抓取接口
type PageScraper interface {
	Scrape(ctx context.Context, targetURL string) (*models.PageRecord, error)
}

// ResultSink 结果写出接口
type ResultSink interface {
	SaveRecord(record *models.PageRecord) ([]string, error)
	SaveConsolidated(records []*models.PageRecord) (int, error)
	SaveSummary(summary *models.BatchSummary) error
	ProgressPath() string
}

// BatchRunner 批量抓取调度器
// MaxConcurrent=1时严格顺序处理(隐蔽性最好),>1时按固定大小并发分批
type BatchRunner struct {
	scraper PageScraper
	sink    ResultSink
	opts    models.BatchOptions

	// 测试中关闭进度条输出
	showProgress bool
}

// NewBatchRunner 创建批量调度器
// 并发数会按当前系统资源收紧,不会超过调用方给定的值
func NewBatchRunner(scraper PageScraper, sink ResultSink, opts models.BatchOptions) *BatchRunner {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	opts.MaxConcurrent = ClampConcurrency(opts.MaxConcurrent)

	return &BatchRunner{
		scraper:      scraper,
		sink:         sink,
		opts:         opts,
		showProgress: true,
	}
}

// Run 批量抓取URL列表
// 返回的摘要区分整体失败和部分失败,仅在抓取完全没有产出时返回error
func (br *BatchRunner) Run(ctx context.Context, urls []string) (*models.BatchSummary, error) {
	utils.Infof("🚀 开始批量抓取: %d个URL", len(urls))
	if br.opts.BatchDelayMs > 0 {
		utils.Infof("⏰ 批次延迟: %dms", br.opts.BatchDelayMs)
	}
	if br.opts.MaxConcurrent > 1 {
		utils.Warnf("⚠️ 并发模式 (%d路): 可能触发反爬保护", br.opts.MaxConcurrent)
	}

	summary := &models.BatchSummary{
		RunID:     models.NewID(),
		TotalURLs: len(urls),
		Results:   make([]models.BatchResult, 0, len(urls)),
	}

	var bar interface{ Add(int) error }
	if br.showProgress {
		bar = utils.NewProgressBar(len(urls), "抓取进度")
	}

	startTime := time.Now()

	if br.opts.MaxConcurrent == 1 {
		br.runSequential(ctx, urls, summary, bar)
	} else {
		br.runConcurrent(ctx, urls, summary, bar)
	}

	summary.TotalDuration = time.Since(startTime).Seconds()
	br.finalize(summary)
	return summary, nil
}

// runSequential 顺序处理,逐URL写进度快照
func (br *BatchRunner) runSequential(ctx context.Context, urls []string, summary *models.BatchSummary, bar interface{ Add(int) error }) {
	for i, targetURL := range urls {
		utils.Infof("[%d/%d] 处理: %s", i+1, len(urls), targetURL)

		result := br.scrapeOne(ctx, targetURL)
		br.collect(summary, result)
		if bar != nil {
			_ = bar.Add(1)
		}
		br.snapshotProgress(summary)

		if !result.Success && !br.opts.ContinueOnError {
			utils.Warn("🛑 批量抓取中止 (--continue-on-error=false)")
			break
		}
		if ctx.Err() != nil {
			utils.Warn("批量抓取被取消")
			break
		}

		// 批次间追加延迟,最后一个URL后不等待
		if i < len(urls)-1 && br.opts.BatchDelayMs > 0 {
			select {
			case <-time.After(time.Duration(br.opts.BatchDelayMs) * time.Millisecond):
			case <-ctx.Done():
			}
		}
	}
}

// runConcurrent 固定大小并发分批,批内全部完成后再进入下一批
func (br *BatchRunner) runConcurrent(ctx context.Context, urls []string, summary *models.BatchSummary, bar interface{ Add(int) error }) {
	size := br.opts.MaxConcurrent

	for start := 0; start < len(urls); start += size {
		end := start + size
		if end > len(urls) {
			end = len(urls)
		}
		wave := urls[start:end]

		results := make([]models.BatchResult, len(wave))
		done := make(chan int, len(wave))
		for i, targetURL := range wave {
			go func(i int, targetURL string) {
				utils.Infof("[%d/%d] 处理: %s", start+i+1, len(urls), targetURL)
				results[i] = br.scrapeOne(ctx, targetURL)
				done <- i
			}(i, targetURL)
		}
		for range wave {
			<-done
		}

		aborted := false
		for _, result := range results {
			br.collect(summary, result)
			if bar != nil {
				_ = bar.Add(1)
			}
			if !result.Success && !br.opts.ContinueOnError {
				aborted = true
			}
		}
		br.snapshotProgress(summary)

		if aborted {
			utils.Warn("🛑 批量抓取中止 (--continue-on-error=false)")
			break
		}
		if ctx.Err() != nil {
			break
		}

		if end < len(urls) && br.opts.BatchDelayMs > 0 {
			select {
			case <-time.After(time.Duration(br.opts.BatchDelayMs) * time.Millisecond):
			case <-ctx.Done():
			}
		}
	}
}

// scrapeOne 抓取单个URL并保存结果
func (br *BatchRunner) scrapeOne(ctx context.Context, targetURL string) models.BatchResult {
	result := models.BatchResult{
		ID:          models.NewID(),
		URL:         targetURL,
		ProcessedAt: time.Now(),
	}
	start := time.Now()

	record, err := br.scraper.Scrape(ctx, targetURL)
	result.Duration = time.Since(start).Seconds()

	if err != nil {
		result.Error = err.Error()
		return result
	}
	if record == nil {
		result.Error = "抓取结果为空"
		return result
	}

	if _, saveErr := br.sink.SaveRecord(record); saveErr != nil {
		utils.Warnf("保存结果失败 [%s]: %v", targetURL, saveErr)
	}

	result.Success = true
	result.Record = record
	utils.Infof("✅ 抓取成功: %s", record.Title)
	return result
}

// collect 合并单URL结果到摘要
func (br *BatchRunner) collect(summary *models.BatchSummary, result models.BatchResult) {
	summary.Results = append(summary.Results, result)
	if result.Success {
		summary.SuccessCount++
		summary.TotalWords += result.Record.Metadata.WordCount
		summary.TotalSections += result.Record.Metadata.SectionCount
	} else {
		summary.FailCount++
		summary.FailedURLs = append(summary.FailedURLs, result.URL)
		utils.Errorf("❌ 抓取失败 [%s]: %s", result.URL, result.Error)
	}
}

// snapshotProgress 写出进度快照,供外部续跑判断
func (br *BatchRunner) snapshotProgress(summary *models.BatchSummary) {
	processed := make([]string, 0, summary.SuccessCount)
	for _, result := range summary.Results {
		if result.Success {
			processed = append(processed, result.URL)
		}
	}

	progress := models.NewBatchProgress(processed, summary.FailedURLs, summary.TotalURLs)
	if err := progress.SaveToFile(br.sink.ProgressPath()); err != nil {
		utils.Debugf("写入进度快照失败: %v", err)
	}
}

// finalize 写合并输出与摘要,打印结果统计
func (br *BatchRunner) finalize(summary *models.BatchSummary) {
	records := make([]*models.PageRecord, 0, summary.SuccessCount)
	for _, result := range summary.Results {
		if result.Success && result.Record != nil {
			records = append(records, result.Record)
		}
	}

	if len(records) > 0 {
		utils.Info("💾 保存合并数据...")
		if _, err := br.sink.SaveConsolidated(records); err != nil {
			utils.Errorf("保存合并数据失败: %v", err)
		}
	}
	if err := br.sink.SaveSummary(summary); err != nil {
		utils.Warnf("保存摘要失败: %v", err)
	}

	utils.Info("==================================================")
	utils.Info("📊 批量抓取摘要")
	utils.Info("==================================================")
	utils.Infof("总URL数: %d", summary.TotalURLs)
	utils.Infof("✅ 成功: %d", summary.SuccessCount)
	utils.Infof("❌ 失败: %d", summary.FailCount)
	utils.Infof("📝 总词数: %d", summary.TotalWords)
	utils.Infof("📑 总章节数: %d", summary.TotalSections)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	if summary.FailCount > 0 {
		utils.Warn("失败的URL:")
		for _, failed := range summary.FailedURLs {
			utils.Warnf("  - %s", failed)
		}
	}
}
