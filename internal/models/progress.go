package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// BatchProgress 批量抓取进度快照
// 批次结束后写入磁盘,供外部调用方决定是否续跑(核心不做自动恢复)
type BatchProgress struct {
	Timestamp     time.Time `json:"timestamp"`      // 快照时间
	TotalURLs     int       `json:"total_urls"`     // 总URL数
	ProcessedURLs []string  `json:"processed_urls"` // 已成功URL列表
	FailedURLs    []string  `json:"failed_urls"`    // 失败URL列表
	Remaining     int       `json:"remaining"`      // 剩余未处理数
	SuccessRate   string    `json:"success_rate"`   // 成功率(百分比,1位小数)
}

// NewBatchProgress 构建进度快照
func NewBatchProgress(processed, failed []string, total int) *BatchProgress {
	rate := 0.0
	if total > 0 {
		rate = float64(len(processed)) / float64(total) * 100
	}
	return &BatchProgress{
		Timestamp:     time.Now(),
		TotalURLs:     total,
		ProcessedURLs: processed,
		FailedURLs:    failed,
		Remaining:     total - len(processed) - len(failed),
		SuccessRate:   fmt.Sprintf("%.1f", rate),
	}
}

// SaveToFile 保存到文件
func (p *BatchProgress) SaveToFile(filepath string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadProgressFromFile 从文件加载进度快照
func LoadProgressFromFile(filepath string) (*BatchProgress, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	var p BatchProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// BatchResult 单URL抓取结果
type BatchResult struct {
	ID          string      `json:"id"`           // 结果唯一ID
	URL         string      `json:"url"`          // 目标URL
	Success     bool        `json:"success"`      // 是否成功
	Error       string      `json:"error"`        // 失败原因(成功时为空)
	Record      *PageRecord `json:"-"`            // 抓取结果(失败时为nil)
	ProcessedAt time.Time   `json:"processed_at"` // 处理时间
	Duration    float64     `json:"duration"`     // 耗时(秒)
}

// BatchSummary 批量抓取摘要
type BatchSummary struct {
	RunID         string        `json:"run_id"`         // 本次批量运行ID
	TotalURLs     int           `json:"total_urls"`     // 总URL数
	SuccessCount  int           `json:"success_count"`  // 成功数
	FailCount     int           `json:"fail_count"`     // 失败数
	TotalWords    int           `json:"total_words"`    // 总词数
	TotalSections int           `json:"total_sections"` // 总章节数
	TotalDuration float64       `json:"total_duration"` // 总耗时(秒)
	Results       []BatchResult `json:"results"`        // 逐URL结果
	FailedURLs    []string      `json:"failed_urls"`    // 失败URL列表
}
