package utils

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/kennygrant/sanitize"
	"github.com/schollz/progressbar/v3"
)

// 输出格式
const (
	FormatAll  = "all"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// CSV单元格中正文的截断上限,避免超长字段
const csvContentLimit = 32000

// Reporter 抓取结果写出器
// 目录布局: outputDir/{json,csv,text}/ 存放单页文件,根目录存放合并文件与训练数据
type Reporter struct {
	outputDir string
	format    string
}

// NewReporter 创建写出器并准备输出目录
func NewReporter(outputDir string, format string) (*Reporter, error) {
	if format == "" {
		format = FormatAll
	}

	r := &Reporter{outputDir: outputDir, format: format}
	for _, sub := range []string{"json", "csv", "text"} {
		if !r.want(sub) {
			continue
		}
		if err := os.MkdirAll(filepath.Join(outputDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	return r, nil
}

func (r *Reporter) want(format string) bool {
	return r.format == FormatAll || r.format == format
}

// SaveRecord 保存单页结果,返回写入的文件路径
func (r *Reporter) SaveRecord(record *models.PageRecord) ([]string, error) {
	title := sanitize.BaseName(record.Title)
	if title == "" {
		title = "untitled"
	}
	stamp := timestampSlug()
	base := fmt.Sprintf("%s_%s", title, stamp)

	var paths []string

	if r.want(FormatJSON) {
		p := filepath.Join(r.outputDir, "json", base+".json")
		if err := writeJSONFile(p, record); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	if r.want(FormatCSV) {
		p := filepath.Join(r.outputDir, "csv", base+".csv")
		if err := writeCSVFile(p, []*models.PageRecord{record}); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	if r.want(FormatText) {
		p := filepath.Join(r.outputDir, "text", base+".txt")
		if err := os.WriteFile(p, []byte(formatAsText(record)), 0644); err != nil {
			return paths, fmt.Errorf("写入文本文件失败: %w", err)
		}
		paths = append(paths, p)
	}

	Debugf("💾 已保存: %s", record.Title)
	return paths, nil
}

// SaveConsolidated 保存合并结果与训练数据集
// 返回写入的训练样本数(内容过短的页面被过滤)
func (r *Reporter) SaveConsolidated(records []*models.PageRecord) (int, error) {
	stamp := timestampSlug()

	if r.want(FormatJSON) {
		p := filepath.Join(r.outputDir, fmt.Sprintf("consolidated_%s.json", stamp))
		if err := writeJSONFile(p, records); err != nil {
			return 0, err
		}
	}

	if r.want(FormatCSV) {
		p := filepath.Join(r.outputDir, fmt.Sprintf("consolidated_%s.csv", stamp))
		if err := writeCSVFile(p, records); err != nil {
			return 0, err
		}
	}

	if r.want(FormatText) {
		parts := make([]string, 0, len(records))
		for _, record := range records {
			parts = append(parts, formatAsText(record))
		}
		divider := "\n\n" + strings.Repeat("=", 80) + "\n\n"
		p := filepath.Join(r.outputDir, fmt.Sprintf("consolidated_%s.txt", stamp))
		if err := os.WriteFile(p, []byte(strings.Join(parts, divider)), 0644); err != nil {
			return 0, fmt.Errorf("写入合并文本失败: %w", err)
		}
	}

	// 训练数据集始终输出,与格式选项无关
	count, err := r.saveTrainingData(records, stamp)
	if err != nil {
		return 0, err
	}

	Infof("✅ 合并数据已保存: %s (%d 页, %d 条训练样本)", r.outputDir, len(records), count)
	return count, nil
}

// saveTrainingData 输出JSONL格式训练数据
func (r *Reporter) saveTrainingData(records []*models.PageRecord, stamp string) (int, error) {
	var lines []string
	for _, record := range records {
		pair := record.ToTrainingPair()
		if pair == nil {
			continue
		}
		data, err := json.Marshal(pair)
		if err != nil {
			return 0, fmt.Errorf("序列化训练样本失败: %w", err)
		}
		lines = append(lines, string(data))
	}

	p := filepath.Join(r.outputDir, fmt.Sprintf("training_dataset_%s.jsonl", stamp))
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return 0, fmt.Errorf("写入训练数据失败: %w", err)
	}
	return len(lines), nil
}

// SaveSummary 保存批量抓取摘要
func (r *Reporter) SaveSummary(summary *models.BatchSummary) error {
	p := filepath.Join(r.outputDir, fmt.Sprintf("batch_summary_%s.json", timestampSlug()))
	return writeJSONFile(p, summary)
}

// ProgressPath 进度快照文件路径
func (r *Reporter) ProgressPath() string {
	return filepath.Join(r.outputDir, "batch_progress.json")
}

// timestampSlug 文件名用时间戳,替换非法字符
func timestampSlug() string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339))
}

// writeJSONFile 写出带缩进的JSON文件
func writeJSONFile(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入JSON文件失败: %w", err)
	}
	Debugf("保存文件: %s", path)
	return nil
}

// csvHeader CSV列定义,与flattenRecord的顺序一致
var csvHeader = []string{
	"url", "title", "summary", "content",
	"word_count", "section_count", "image_count", "table_count", "link_count",
	"sections", "scraped_at",
}

// writeCSVFile 写出扁平化CSV文件
func writeCSVFile(path string, records []*models.PageRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}
	for _, record := range records {
		if err := w.Write(flattenRecord(record)); err != nil {
			return fmt.Errorf("写入CSV行失败: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// flattenRecord 将页面记录扁平化为CSV行
func flattenRecord(record *models.PageRecord) []string {
	content := record.Content
	if len(content) > csvContentLimit {
		content = content[:csvContentLimit]
	}

	sectionTitles := make([]string, 0, len(record.Sections))
	for _, s := range record.Sections {
		sectionTitles = append(sectionTitles, s.Title)
	}

	return []string{
		record.URL,
		record.Title,
		record.Summary,
		content,
		strconv.Itoa(record.Metadata.WordCount),
		strconv.Itoa(record.Metadata.SectionCount),
		strconv.Itoa(record.Metadata.ImageCount),
		strconv.Itoa(record.Metadata.TableCount),
		strconv.Itoa(record.Metadata.LinkCount),
		strings.Join(sectionTitles, "; "),
		record.Metadata.ScrapedAt,
	}
}

// formatAsText 将页面记录格式化为可读文本
func formatAsText(record *models.PageRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", record.Title)
	fmt.Fprintf(&b, "URL: %s\n", record.URL)
	fmt.Fprintf(&b, "Scraped: %s\n", record.Metadata.ScrapedAt)
	fmt.Fprintf(&b, "Word Count: %d\n\n", record.Metadata.WordCount)

	if record.Summary != "" {
		fmt.Fprintf(&b, "Summary:\n%s\n\n", record.Summary)
	}

	fmt.Fprintf(&b, "Content:\n%s\n\n", record.Content)

	if len(record.Sections) > 0 {
		b.WriteString("Sections:\n")
		for _, s := range record.Sections {
			fmt.Fprintf(&b, "%s %s\n", strings.Repeat("#", s.Level), s.Title)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
