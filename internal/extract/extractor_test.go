package extract

import (
	"strings"
	"testing"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head><title>ignored</title></head>
<body>
  <h1 class="firstHeading" id="top">Example Company</h1>
  <div class="mw-parser-output">
    <p>A.</p>
    <p>B.</p>
    <ul><li>要点一</li></ul>
    <div class="infobox">
      <table>
        <tr><th>Founded</th><td>1985</td></tr>
        <tr><th>Founded</th><td>1990</td></tr>
        <tr><th>Industry</th><td>Software</td></tr>
      </table>
      <p>信息框内的段落不应计入正文</p>
    </div>
    <h2 id="history">History<span>[edit]</span></h2>
    <h3>Early years</h3>
    <h2>References</h2>
    <table class="wikitable">
      <caption>营收表</caption>
      <tr><th>年份</th><th>营收</th></tr>
      <tr><td>2020</td><td>100</td></tr>
      <tr><td></td><td></td></tr>
    </table>
    <table class="navbox"><tr><td>导航</td></tr></table>
    <img src="//cdn.example.com/photo.png" alt="产品照片">
    <img src="/images/site-logo.png" alt="logo">
    <figure>
      <img src="https://cdn.example.com/chart.png" alt="图表">
      <figcaption>年度图表</figcaption>
    </figure>
    <a href="/wiki/Related_Page">相关页面</a>
    <a href="/wiki/Special:Search">特殊页</a>
    <a href="/wiki/File:Photo.png">文件页</a>
    <a href="https://other.example.com/wiki/External">外部wiki</a>
  </div>
</body>
</html>`

func TestExtract(t *testing.T) {
	e := NewExtractor(SiteProfile{})
	record, err := e.Extract(sampleHTML, "https://example.wiki/wiki/Example_Company")
	if err != nil {
		t.Fatalf("提取失败: %v", err)
	}

	t.Run("标题级联", func(t *testing.T) {
		if record.Title != "Example Company" {
			t.Errorf("标题 = %q, 期望 %q", record.Title, "Example Company")
		}
	})

	t.Run("正文与摘要", func(t *testing.T) {
		if !strings.HasPrefix(record.Content, "A.\n\nB.") {
			t.Errorf("正文段落连接错误: %q", record.Content)
		}
		if strings.Contains(record.Content, "信息框内的段落") {
			t.Error("信息框内段落不应计入正文")
		}
		if record.Summary != "A." {
			t.Errorf("摘要 = %q, 期望第一个段落 %q", record.Summary, "A.")
		}
	})

	t.Run("章节过滤", func(t *testing.T) {
		var titles []string
		for _, s := range record.Sections {
			titles = append(titles, s.Title)
		}

		for _, title := range titles {
			if strings.Contains(title, "[edit]") {
				t.Errorf("章节标题未清除编辑标记: %q", title)
			}
			if strings.EqualFold(title, "References") {
				t.Error("样板章节References不应计入")
			}
		}

		// h1 + h2(History) + h3(Early years)
		if len(record.Sections) != 3 {
			t.Fatalf("章节数 = %d, 期望 3 (%v)", len(record.Sections), titles)
		}
		if record.Sections[1].Title != "History" || record.Sections[1].Level != 2 {
			t.Errorf("History章节错误: %+v", record.Sections[1])
		}
		if record.Sections[1].ID != "history" {
			t.Errorf("章节ID = %q, 期望 %q", record.Sections[1].ID, "history")
		}
		if record.Sections[2].Level != 3 {
			t.Errorf("Early years层级 = %d, 期望 3", record.Sections[2].Level)
		}
	})

	t.Run("信息框后值覆盖", func(t *testing.T) {
		if record.Infobox["Founded"] != "1990" {
			t.Errorf("Founded = %q, 期望后出现的值 %q", record.Infobox["Founded"], "1990")
		}
		if record.Infobox["Industry"] != "Software" {
			t.Errorf("Industry = %q", record.Infobox["Industry"])
		}
	})

	t.Run("图片过滤与协议补全", func(t *testing.T) {
		if len(record.Images) != 2 {
			t.Fatalf("图片数 = %d, 期望 2 (logo应被过滤)", len(record.Images))
		}
		if record.Images[0].Src != "https://cdn.example.com/photo.png" {
			t.Errorf("协议相对地址未补全: %q", record.Images[0].Src)
		}
		if record.Images[1].Caption != "年度图表" {
			t.Errorf("图片说明 = %q", record.Images[1].Caption)
		}
	})

	t.Run("表格排除与空行丢弃", func(t *testing.T) {
		// wikitable + infobox内的表格;navbox被排除
		var wikitable *models.Table
		for i := range record.Tables {
			table := record.Tables[i]
			if table.Caption == "营收表" {
				wikitable = &record.Tables[i]
			}
			for _, row := range table.Rows {
				empty := true
				for _, cell := range row {
					if cell != "" {
						empty = false
					}
				}
				if empty {
					t.Error("全空行未丢弃")
				}
			}
		}
		if wikitable == nil {
			t.Fatal("未提取到营收表")
		}
		if len(wikitable.Rows) != 2 {
			t.Errorf("营收表行数 = %d, 期望 2 (表头+数据行,空行丢弃)", len(wikitable.Rows))
		}
		if wikitable.Index != 1 {
			t.Errorf("营收表序号 = %d, 期望文档顺序号 1 (信息框内表格占0)", wikitable.Index)
		}
	})

	t.Run("链接过滤与补全", func(t *testing.T) {
		var urls []string
		for _, link := range record.Links {
			urls = append(urls, link.URL)
		}
		for _, u := range urls {
			if strings.Contains(u, "Special:") || strings.Contains(u, "File:") {
				t.Errorf("特殊页/文件页链接未过滤: %q", u)
			}
		}

		found := false
		for _, link := range record.Links {
			if link.URL == "https://example.wiki/wiki/Related_Page" && link.Text == "相关页面" {
				found = true
			}
		}
		if !found {
			t.Errorf("相对链接未以来源URL补全: %v", urls)
		}
	})

	t.Run("元数据计数", func(t *testing.T) {
		if record.Metadata.WordCount != 3 {
			t.Errorf("词数 = %d, 期望 3 (A. B. 要点一)", record.Metadata.WordCount)
		}
		if record.Metadata.SectionCount != len(record.Sections) {
			t.Error("章节计数与实际不符")
		}
		if record.Metadata.ImageCount != len(record.Images) {
			t.Error("图片计数与实际不符")
		}
		if record.Metadata.TableCount != len(record.Tables) {
			t.Error("表格计数与实际不符")
		}
		if record.Metadata.LinkCount != len(record.Links) {
			t.Error("链接计数与实际不符")
		}
		if record.Metadata.ScrapedAt == "" {
			t.Error("抓取时间未设置")
		}
	})
}

func TestExtractSectionsSkipContainerHeadings(t *testing.T) {
	// 导航框/信息框内的标题不计入章节
	html := `<html><body>
	  <h2>Real Section</h2>
	  <div class="infobox"><h3>Infobox Heading</h3></div>
	  <div class="navbox"><h2>Navbox Heading</h2></div>
	</body></html>`

	e := NewExtractor(SiteProfile{})
	record, err := e.Extract(html, "https://example.wiki/page")
	if err != nil {
		t.Fatal(err)
	}

	if len(record.Sections) != 1 {
		var titles []string
		for _, s := range record.Sections {
			titles = append(titles, s.Title)
		}
		t.Fatalf("章节数 = %d, 期望 1: %v", len(record.Sections), titles)
	}
	if record.Sections[0].Title != "Real Section" {
		t.Errorf("章节 = %q", record.Sections[0].Title)
	}
	if record.Metadata.SectionCount != 1 {
		t.Errorf("章节计数 = %d", record.Metadata.SectionCount)
	}
}

func TestExtractTableIndexDocumentOrder(t *testing.T) {
	// 全空表格被整体丢弃但仍占用文档顺序号
	html := `<html><body>
	  <table><tr><td></td><td></td></tr></table>
	  <table><tr><td>数据</td></tr></table>
	</body></html>`

	e := NewExtractor(SiteProfile{})
	record, err := e.Extract(html, "https://example.wiki/page")
	if err != nil {
		t.Fatal(err)
	}

	if len(record.Tables) != 1 {
		t.Fatalf("表格数 = %d, 期望 1 (全空表格被丢弃)", len(record.Tables))
	}
	if record.Tables[0].Index != 1 {
		t.Errorf("表格序号 = %d, 期望文档顺序号 1", record.Tables[0].Index)
	}
}

func TestExtractIdempotent(t *testing.T) {
	e := NewExtractor(SiteProfile{})

	first, err := e.Extract(sampleHTML, "https://example.wiki/wiki/Example_Company")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Extract(sampleHTML, "https://example.wiki/wiki/Example_Company")
	if err != nil {
		t.Fatal(err)
	}

	if first.Title != second.Title || first.Content != second.Content {
		t.Error("相同输入两次提取结果不同")
	}
	if len(first.Sections) != len(second.Sections) || len(first.Links) != len(second.Links) {
		t.Error("相同输入两次提取计数不同")
	}
}

func TestExtractTitleCascade(t *testing.T) {
	// 第一优先级缺失时命中第二优先级
	html := `<html><body>
	  <span class="mw-page-title-main">Cascade Title</span>
	  <h1>Fallback H1</h1>
	</body></html>`

	e := NewExtractor(SiteProfile{})
	record, err := e.Extract(html, "https://example.wiki/page")
	if err != nil {
		t.Fatal(err)
	}
	if record.Title != "Cascade Title" {
		t.Errorf("标题 = %q, 期望按级联顺序命中 %q", record.Title, "Cascade Title")
	}
}

func TestExtractEmptyPage(t *testing.T) {
	e := NewExtractor(SiteProfile{})
	record, err := e.Extract("<html><body></body></html>", "https://example.wiki/empty")
	if err != nil {
		t.Fatalf("空页面不应报错: %v", err)
	}
	if record.Title != "" || record.Content != "" {
		t.Error("空页面应产出空字段")
	}
	if record.Metadata.WordCount != 0 {
		t.Errorf("空页面词数 = %d", record.Metadata.WordCount)
	}
}

func TestCustomProfile(t *testing.T) {
	html := `<html><body>
	  <div class="article-title">Custom Layout</div>
	  <div class="article-body"><p>正文内容。</p></div>
	</body></html>`

	profile := SiteProfile{
		TitleSelectors:   []string{".article-title"},
		ContentSelectors: []string{".article-body"},
	}
	record, err := NewExtractor(profile).Extract(html, "https://example.com/article")
	if err != nil {
		t.Fatal(err)
	}
	if record.Title != "Custom Layout" {
		t.Errorf("自定义标题选择器未生效: %q", record.Title)
	}
	if record.Content != "正文内容。" {
		t.Errorf("自定义正文选择器未生效: %q", record.Content)
	}
}
