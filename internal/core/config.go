package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Scrape  models.ScrapeConfig `mapstructure:"scrape"`
	Batch   BatchConfig         `mapstructure:"batch"`
	Logging LoggingConfig       `mapstructure:"logging"`
	Output  OutputConfig        `mapstructure:"output"`

	// Headers 配置文件中的自定义HTTP头部,命令行-H参数优先
	Headers map[string]string `mapstructure:"headers"`
}

// BatchConfig 批量抓取配置
type BatchConfig struct {
	DelayMs         int  `mapstructure:"delay_ms"`
	ContinueOnError bool `mapstructure:"continue_on_error"`
	MaxConcurrent   int  `mapstructure:"max_concurrent"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
	Format  string `mapstructure:"format"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pageharvest"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 抓取配置默认值
	v.SetDefault("scrape.base_delay_ms", 3000)
	v.SetDefault("scrape.max_retries", 3)
	v.SetDefault("scrape.use_browser", false)
	v.SetDefault("scrape.human_mode", false)
	v.SetDefault("scrape.headless", true)

	// 批量配置默认值
	v.SetDefault("batch.delay_ms", 0)
	v.SetDefault("batch.continue_on_error", true)
	v.SetDefault("batch.max_concurrent", 1)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "scraped_data")
	v.SetDefault("output.format", "all")
}

// BatchOptions 转换为批量抓取选项
func (c *Config) BatchOptions() models.BatchOptions {
	return models.BatchOptions{
		BatchDelayMs:    c.Batch.DelayMs,
		ContinueOnError: c.Batch.ContinueOnError,
		MaxConcurrent:   c.Batch.MaxConcurrent,
	}
}
