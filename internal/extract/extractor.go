package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"golang.org/x/net/html"
)

// boilerplateSections 不计入章节的样板标题
var boilerplateSections = regexp.MustCompile(`(?i)^(references|external links|see also|notes)$`)

// editMarker 章节标题中的编辑标记
var editMarker = regexp.MustCompile(`\[edit\]`)

// Extractor 结构化内容提取器
type Extractor struct {
	profile SiteProfile
}

// NewExtractor 创建提取器,profile零值字段回落到默认级联
func NewExtractor(profile SiteProfile) *Extractor {
	return &Extractor{profile: profile.normalize()}
}

// Extract 从HTML中提取结构化页面记录
// 提取尽力而为: 单项缺失不报错,只留空;仅HTML解析失败返回error
func (e *Extractor) Extract(rawHTML string, sourceURL string) (*models.PageRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	record := &models.PageRecord{
		URL:     sourceURL,
		Infobox: make(map[string]string),
	}

	record.Title = e.extractTitle(doc)
	e.extractContent(doc, record)
	record.Sections = e.extractSections(doc)
	e.extractInfobox(doc, record)
	record.Images = e.extractImages(doc)
	record.Tables = e.extractTables(doc)
	record.Links = e.extractLinks(doc, sourceURL)

	record.Metadata = models.Metadata{
		ScrapedAt:    time.Now().UTC().Format(time.RFC3339),
		WordCount:    models.CountWords(record.Content),
		SectionCount: len(record.Sections),
		ImageCount:   len(record.Images),
		TableCount:   len(record.Tables),
		LinkCount:    len(record.Links),
	}

	return record, nil
}

// extractTitle 按级联顺序取第一个非空标题
func (e *Extractor) extractTitle(doc *goquery.Document) string {
	for _, selector := range e.profile.TitleSelectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// extractContent 提取正文与摘要
// 正文为容器内段落/列表文本,排除导航框与信息框内的段落,双换行连接
func (e *Extractor) extractContent(doc *goquery.Document, record *models.PageRecord) {
	var container *goquery.Selection
	for _, selector := range e.profile.ContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			container = sel
			break
		}
	}
	if container == nil {
		return
	}

	var blocks []string
	container.Find("p, ul, ol, dl").Not(".navbox p, .infobox p").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})
	record.Content = strings.Join(blocks, "\n\n")

	// 摘要取第一个段落
	record.Summary = strings.TrimSpace(container.Find("p").First().Text())
}

// extractSections 提取标题层级,过滤编辑标记与样板章节
// 导航框与信息框内的标题不属于正文章节,与正文提取使用相同的容器排除
func (e *Extractor) extractSections(doc *goquery.Document) []models.Section {
	var sections []models.Section
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if s.Closest(".navbox, .infobox").Length() > 0 {
			return
		}
		title := strings.TrimSpace(editMarker.ReplaceAllString(s.Text(), ""))
		if title == "" || boilerplateSections.MatchString(title) {
			return
		}
		id, _ := s.Attr("id")
		sections = append(sections, models.Section{
			Level: headingLevel(s),
			Title: title,
			ID:    id,
		})
	})
	return sections
}

// headingLevel 从标签名解析层级,h2 -> 2
func headingLevel(s *goquery.Selection) int {
	if len(s.Nodes) == 0 || s.Nodes[0].Type != html.ElementNode {
		return 0
	}
	tag := s.Nodes[0].Data
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// extractInfobox 提取信息框键值对,同键后出现者覆盖先出现者
func (e *Extractor) extractInfobox(doc *goquery.Document, record *models.PageRecord) {
	doc.Find(e.profile.InfoboxSelectors).Each(func(_ int, box *goquery.Selection) {
		box.Find("tr").Each(func(_ int, row *goquery.Selection) {
			key := strings.TrimSpace(row.Find("th, .label").First().Text())
			value := strings.TrimSpace(row.Find("td, .value").First().Text())
			if key != "" && value != "" {
				record.Infobox[key] = value
			}
		})
	})
}

// extractImages 提取内容图片,跳过站点装饰图,协议相对地址补全为https
func (e *Extractor) extractImages(doc *goquery.Document) []models.Image {
	var images []models.Image
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		if strings.Contains(src, "logo") || strings.Contains(src, "icon") || strings.Contains(src, "ui-") {
			return
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}

		alt, _ := img.Attr("alt")
		title, _ := img.Attr("title")
		caption := strings.TrimSpace(img.Closest("figure, .thumb").Find(".caption, figcaption").Text())

		images = append(images, models.Image{
			Src:     src,
			Alt:     alt,
			Title:   title,
			Caption: caption,
		})
	})
	return images
}

// extractTables 提取数据表格,排除导航框,丢弃全空行
// Index为排除后的文档顺序号,全空而被整体丢弃的表格仍占用序号
func (e *Extractor) extractTables(doc *goquery.Document) []models.Table {
	var tables []models.Table
	doc.Find("table").Not(".navbox, .metadata").Each(func(i int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			var cells []string
			hasContent := false
			row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				text := strings.TrimSpace(cell.Text())
				if text != "" {
					hasContent = true
				}
				cells = append(cells, text)
			})
			if len(cells) > 0 && hasContent {
				rows = append(rows, cells)
			}
		})
		if len(rows) == 0 {
			return
		}
		tables = append(tables, models.Table{
			Index:   i,
			Rows:    rows,
			Caption: strings.TrimSpace(table.Find("caption").Text()),
		})
	})
	return tables
}

// extractLinks 提取站内链接,排除特殊页与文件页,相对地址以来源URL补全
func (e *Extractor) extractLinks(doc *goquery.Document, sourceURL string) []models.Link {
	base, baseErr := url.Parse(sourceURL)

	var links []models.Link
	doc.Find(e.profile.LinkSelectors).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		text := strings.TrimSpace(a.Text())
		if !ok || href == "" || text == "" {
			return
		}
		if strings.Contains(href, "Special:") || strings.Contains(href, "File:") {
			return
		}

		full := href
		switch {
		case strings.HasPrefix(href, "//"):
			full = "https:" + href
		case strings.HasPrefix(href, "/"):
			if baseErr != nil {
				return
			}
			full = fmt.Sprintf("%s://%s%s", base.Scheme, base.Host, href)
		}

		links = append(links, models.Link{URL: full, Text: text})
	})
	return links
}
