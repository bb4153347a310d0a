package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RecoveryAshes/PageHarvest/internal/core"
	"github.com/RecoveryAshes/PageHarvest/internal/extract"
	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headerFlags []string // 自定义HTTP请求头

	// 抓取参数
	urlList     []string
	urlFile     string
	outputDir   string
	format      string
	delayMs     int
	useBrowser  bool
	stealthMode bool
	humanMode   bool
	headless    bool
	viewport    string
	maxRetries  int

	// 批量处理参数
	batchDelayMs    int
	continueOnError bool
	maxConcurrent   int
)

// 拟人模式的节奏下限
const (
	humanModeMinDelayMs      = 5000
	humanModeMinBatchDelayMs = 3000
)

var rootCmd = &cobra.Command{
	Use:   "pageharvest",
	Short: "带反爬规避的结构化网页抓取工具",
	Long: `PageHarvest - 带反爬规避的结构化网页抓取工具

专门用于从wiki类站点批量抓取结构化内容,支持:
  • HTTP与浏览器双抓取策略,被拦截时自动降级
  • User-Agent轮换与会话Cookie保持
  • 人类浏览行为模拟(指针移动、滚动、阅读停留)
  • 结构化提取: 标题、正文、章节、信息框、图片、表格、链接
  • JSON/CSV/文本多格式输出 + AI训练数据集(JSONL)
  • 批量URL处理与进度快照

使用示例:
  # 单URL抓取
  pageharvest --urls https://example.wiki/Page

  # 批量抓取,最大隐蔽
  pageharvest --file urls.txt --stealth --batch-delay 5000

  # 完整拟人模式
  pageharvest --file urls.txt --human

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	// 信号处理(Ctrl+C优雅退出)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, err := core.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 收集目标URL
	urls, err := collectURLs()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return cmd.Help()
	}

	if err := ValidateFlags(format, delayMs, maxRetries, maxConcurrent); err != nil {
		return err
	}

	// 拟人模式: 抬高节奏下限,强制浏览器策略
	effectiveDelay := delayMs
	effectiveBatchDelay := batchDelayMs
	if humanMode {
		if effectiveDelay < humanModeMinDelayMs {
			effectiveDelay = humanModeMinDelayMs
		}
		if !cmd.Flags().Changed("batch-delay") {
			effectiveBatchDelay = humanModeMinBatchDelayMs
		}
		utils.Info("👤 拟人模式已启用:")
		utils.Info("   🧠 增强延迟,模拟自然浏览节奏")
		utils.Info("   🖱️  完整行为序列(阅读、指针、滚动、探索)")
	} else if stealthMode {
		utils.Info("🥷 最大隐蔽模式已启用")
	} else if useBrowser {
		utils.Info("🌐 浏览器模式已启用")
	}

	scrapeConfig := models.ScrapeConfig{
		BaseDelayMs: effectiveDelay,
		MaxRetries:  maxRetries,
		UseBrowser:  useBrowser || stealthMode || humanMode,
		HumanMode:   humanMode,
		Headless:    headless,
	}

	// 解析自定义视口
	if viewport != "" {
		vp, parseErr := ParseViewport(viewport)
		if parseErr != nil {
			utils.Warnf("⚠️ 无效的视口格式 %q,应为 宽x高 (如 1920x1080)", viewport)
		} else {
			scrapeConfig.CustomViewport = vp
		}
	}

	// 创建抓取器
	scraper := core.NewScraper(scrapeConfig, extract.DefaultProfile())
	defer scraper.Close()

	// 应用自定义HTTP头部: 配置文件先载入,命令行-H参数覆盖
	custom := make(map[string]string, len(appConfig.Headers)+len(headerFlags))
	for name, value := range appConfig.Headers {
		custom[name] = value
	}
	if len(headerFlags) > 0 {
		fromFlags, parseErr := ParseHeaderFlags(headerFlags)
		if parseErr != nil {
			return parseErr
		}
		for name, value := range fromFlags {
			custom[name] = value
		}
	}
	if len(custom) > 0 {
		if err := scraper.SetCustomHeaders(custom); err != nil {
			return fmt.Errorf("应用自定义头部失败: %w", err)
		}
		utils.Infof("已应用 %d 个自定义HTTP头部", len(custom))
	}

	// 创建结果写出器
	if outputDir == "" {
		outputDir = appConfig.Output.BaseDir
	}
	reporter, err := utils.NewReporter(outputDir, format)
	if err != nil {
		return err
	}

	opts := models.BatchOptions{
		BatchDelayMs:    effectiveBatchDelay,
		ContinueOnError: continueOnError,
		MaxConcurrent:   maxConcurrent,
	}

	runner := core.NewBatchRunner(scraper, reporter, opts)
	summary, err := runner.Run(ctx, urls)
	if err != nil {
		return fmt.Errorf("批量抓取失败: %w", err)
	}

	utils.Infof("📁 输出目录: %s", outputDir)
	if summary.SuccessCount == 0 {
		return fmt.Errorf("所有URL抓取失败 (%d个)", summary.FailCount)
	}
	utils.Info("✨ 抓取任务完成!")
	return nil
}

// collectURLs 合并--urls与--file两个来源的URL
func collectURLs() ([]string, error) {
	urls := make([]string, 0, len(urlList))
	for _, raw := range urlList {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if err := models.ValidateURL(u); err != nil {
			return nil, fmt.Errorf("无效的URL %q: %w", u, err)
		}
		urls = append(urls, u)
	}

	if urlFile != "" {
		fromFile, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return nil, fmt.Errorf("读取URL文件失败: %w", err)
		}
		urls = append(urls, fromFile...)
	}

	return urls, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("PageHarvest %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringSliceVarP(&headerFlags, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 抓取参数
	rootCmd.Flags().StringSliceVarP(&urlList, "urls", "u", []string{}, "目标URL,逗号分隔或多次指定")
	rootCmd.Flags().StringVarP(&urlFile, "file", "f", "", "包含URL列表的文件路径(每行一个,#开头为注释)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "./scraped_data", "输出目录")
	rootCmd.Flags().StringVar(&format, "format", "all", "输出格式 (json|csv|text|all)")
	rootCmd.Flags().IntVarP(&delayMs, "delay", "d", 3000, "请求间基础延迟(毫秒)")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "单URL最大重试次数")
	rootCmd.Flags().BoolVar(&useBrowser, "browser", false, "启用浏览器模拟模式")
	rootCmd.Flags().BoolVar(&stealthMode, "stealth", false, "最大隐蔽模式(强制浏览器模拟)")
	rootCmd.Flags().BoolVar(&humanMode, "human", false, "拟人模式(浏览器+增强延迟+完整行为模拟)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&viewport, "viewport", "", "自定义视口尺寸 (如 1920x1080)")

	// 批量处理参数
	rootCmd.Flags().IntVar(&batchDelayMs, "batch-delay", 0, "批量处理URL间附加延迟(毫秒)")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理剩余URL")
	rootCmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 1, "最大并发数(1为顺序处理,隐蔽性最好)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
