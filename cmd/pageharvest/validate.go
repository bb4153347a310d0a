package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/PageHarvest/internal/models"
	"github.com/RecoveryAshes/PageHarvest/internal/utils"
)

// ValidateFlags 验证命令行标志
func ValidateFlags(format string, delayMs, maxRetries, maxConcurrent int) error {
	validFormats := map[string]bool{
		utils.FormatAll:  true,
		utils.FormatJSON: true,
		utils.FormatCSV:  true,
		utils.FormatText: true,
	}
	if !validFormats[format] {
		return fmt.Errorf("无效的输出格式: %s (有效值: json, csv, text, all)", format)
	}

	if delayMs < 0 {
		return fmt.Errorf("延迟不能为负数,当前值: %d", delayMs)
	}

	if maxRetries < 0 || maxRetries > 10 {
		return fmt.Errorf("重试次数必须在0-10之间,当前值: %d", maxRetries)
	}

	if maxConcurrent < 1 || maxConcurrent > 20 {
		return fmt.Errorf("并发数必须在1-20之间,当前值: %d", maxConcurrent)
	}

	return nil
}

// ParseViewport 解析 宽x高 格式的视口参数
func ParseViewport(s string) (*models.Viewport, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("视口格式应为 宽x高: %q", s)
	}

	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("视口宽度无效: %q", parts[0])
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("视口高度无效: %q", parts[1])
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("视口尺寸必须为正数: %dx%d", width, height)
	}

	return &models.Viewport{Width: width, Height: height}, nil
}

// ParseHeaderFlags 解析 'Name: Value' 格式的头部参数
func ParseHeaderFlags(flags []string) (map[string]string, error) {
	headers := make(map[string]string, len(flags))
	for _, raw := range flags {
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("头部格式应为 'Name: Value': %q", raw)
		}
		name := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if name == "" {
			return nil, fmt.Errorf("头部名称不能为空: %q", raw)
		}
		headers[name] = value
	}
	return headers, nil
}
