package models

// Viewport 浏览器视口尺寸
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScrapeConfig 抓取配置
type ScrapeConfig struct {
	// 基础延迟(毫秒),成功抓取后的随机延迟取 base..2*base
	BaseDelayMs int `mapstructure:"base_delay_ms"`

	// 单策略内最大重试次数
	MaxRetries int `mapstructure:"max_retries"`

	// 直接使用浏览器策略(跳过HTTP尝试)
	UseBrowser bool `mapstructure:"use_browser"`

	// 人类行为模拟模式(直接走浏览器策略,附加完整行为序列)
	HumanMode bool `mapstructure:"human_mode"`

	// 无头浏览器模式
	Headless bool `mapstructure:"headless"`

	// 自定义视口(nil则从内置视口池随机选取)
	CustomViewport *Viewport `mapstructure:"-"`
}

// BatchOptions 批量抓取选项
type BatchOptions struct {
	// 每个URL处理完后追加的固定延迟(毫秒),叠加在自然的页面间延迟上
	BatchDelayMs int

	// 单URL失败时是否继续处理剩余URL
	ContinueOnError bool

	// 最大并发数,1为严格顺序,>1为固定大小的并发批次
	MaxConcurrent int
}
