package extract

// SiteProfile 站点选择器配置
// 按优先级排列的级联选择器,命中第一个非空结果即停止
// 零值字段使用DefaultProfile中的对应级联
type SiteProfile struct {
	// TitleSelectors 标题级联
	TitleSelectors []string
	// ContentSelectors 正文容器级联
	ContentSelectors []string
	// InfoboxSelectors 信息框选择器
	InfoboxSelectors string
	// LinkSelectors 站内链接选择器
	LinkSelectors string
}

// DefaultProfile 默认配置,适配MediaWiki及常见wiki站点布局
func DefaultProfile() SiteProfile {
	return SiteProfile{
		TitleSelectors: []string{
			"h1.page-header__title",
			".mw-page-title-main",
			"h1.firstHeading",
			"#firstHeading",
			"h1",
			".page-title",
		},
		ContentSelectors: []string{
			".mw-parser-output",
			".page-content",
			".wiki-content",
			".content",
			"#mw-content-text",
		},
		InfoboxSelectors: ".infobox, .info-box, .data-box",
		LinkSelectors:    `a[href*="/wiki/"], a[href^="/"], a[href*="wiki"]`,
	}
}

// normalize 补齐零值字段
func (p SiteProfile) normalize() SiteProfile {
	def := DefaultProfile()
	if len(p.TitleSelectors) == 0 {
		p.TitleSelectors = def.TitleSelectors
	}
	if len(p.ContentSelectors) == 0 {
		p.ContentSelectors = def.ContentSelectors
	}
	if p.InfoboxSelectors == "" {
		p.InfoboxSelectors = def.InfoboxSelectors
	}
	if p.LinkSelectors == "" {
		p.LinkSelectors = def.LinkSelectors
	}
	return p
}
