package models

import "strings"

// PageRecord 单个页面的结构化抓取结果
// 由提取引擎产出,产出后不可变
type PageRecord struct {
	URL     string `json:"url"`     // 来源URL
	Title   string `json:"title"`   // 页面标题(无匹配时为空字符串,不是错误)
	Summary string `json:"summary"` // 摘要(正文首段)
	Content string `json:"content"` // 正文(段落文本,空行分隔)

	Sections []Section         `json:"sections"` // 章节标题列表(文档顺序)
	Infobox  map[string]string `json:"infobox"`  // 信息框键值对(后出现的键覆盖先出现的)
	Images   []Image           `json:"images"`   // 图片列表
	Tables   []Table           `json:"tables"`   // 表格列表
	Links    []Link            `json:"links"`    // 站内链接列表

	Metadata Metadata `json:"metadata"` // 派生元数据
}

// Section 章节标题
type Section struct {
	Level int    `json:"level"` // 标题级别 1-6
	Title string `json:"title"` // 标题文本(已去除[edit]等编辑标记)
	ID    string `json:"id"`    // 元素id属性(可为空)
}

// Image 页面图片
type Image struct {
	Src     string `json:"src"`     // 绝对URL
	Alt     string `json:"alt"`     // alt属性
	Title   string `json:"title"`   // title属性
	Caption string `json:"caption"` // 图注(来自figure/thumb容器)
}

// Table 页面表格
type Table struct {
	Index   int        `json:"index"`   // 文档顺序索引
	Rows    [][]string `json:"rows"`    // 行优先的单元格文本矩阵
	Caption string     `json:"caption"` // 表格标题
}

// Link 站内链接
type Link struct {
	URL  string `json:"url"`  // 绝对URL
	Text string `json:"text"` // 链接文本
}

// Metadata 页面派生元数据
// 各计数字段在所有字段最终确定后统一计算,不做增量更新
type Metadata struct {
	ScrapedAt      string `json:"scraped_at"`      // 抓取时间(UTC, RFC3339)
	WordCount      int    `json:"word_count"`      // 正文词数(空白分隔的非空token)
	SectionCount   int    `json:"section_count"`   // 章节数
	ImageCount     int    `json:"image_count"`     // 图片数
	TableCount     int    `json:"table_count"`     // 表格数
	LinkCount      int    `json:"link_count"`      // 链接数
	ScrapingMethod string `json:"scraping_method"` // 抓取方式标签(HTTP/Browser/Browser (Human Mode))
}

// TrainingMinContentLength 训练样本投影的最小正文长度
const TrainingMinContentLength = 100

// TrainingPair AI训练格式投影
type TrainingPair struct {
	Instruction string           `json:"instruction"`
	Input       string           `json:"input"`
	Output      string           `json:"output"`
	Metadata    TrainingMetadata `json:"metadata"`
}

// TrainingMetadata 训练样本元数据
type TrainingMetadata struct {
	Source    string   `json:"source"`
	Title     string   `json:"title"`
	WordCount int      `json:"word_count"`
	Sections  []string `json:"sections"`
}

// ToTrainingPair 生成训练样本投影
// 正文不足100字符时返回nil(被过滤,不是错误)
func (r *PageRecord) ToTrainingPair() *TrainingPair {
	if len(r.Content) < TrainingMinContentLength {
		return nil
	}

	input := r.Summary
	if input == "" {
		if len(r.Content) > 500 {
			input = r.Content[:500]
		} else {
			input = r.Content
		}
	}

	sectionTitles := make([]string, 0, len(r.Sections))
	for _, s := range r.Sections {
		sectionTitles = append(sectionTitles, s.Title)
	}

	return &TrainingPair{
		Instruction: "Provide information about " + r.Title,
		Input:       input,
		Output:      r.Content,
		Metadata: TrainingMetadata{
			Source:    r.URL,
			Title:     r.Title,
			WordCount: r.Metadata.WordCount,
			Sections:  sectionTitles,
		},
	}
}

// CountWords 统计空白分隔的非空词数
func CountWords(content string) int {
	return len(strings.Fields(content))
}
