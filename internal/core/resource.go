package core

import (
	"time"

	"github.com/RecoveryAshes/PageHarvest/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// 资源守护参数
const (
	// 单路并发预估内存消耗(浏览器标签页+解析缓冲)
	perWorkerMemory = 200 * 1024 * 1024
	// 可用内存安全保留
	memorySafetyReserve = 512 * 1024 * 1024
	// CPU负载超过该阈值时强制降为顺序处理
	cpuLoadThreshold = 85.0
)

// ClampConcurrency 按当前系统资源收紧并发数
// 批量开始前调用一次,只收紧不放大;采样失败时保持原值
func ClampConcurrency(requested int) int {
	if requested <= 1 {
		return requested
	}

	clamped := requested

	vmStat, err := mem.VirtualMemory()
	if err != nil {
		utils.Warnf("获取系统内存失败,跳过内存限制: %v", err)
	} else {
		available := int64(vmStat.Available) - memorySafetyReserve
		memoryLimit := int(available / perWorkerMemory)
		if memoryLimit < 1 {
			memoryLimit = 1
		}
		if memoryLimit < clamped {
			utils.Warnf("⚠️ 可用内存不足 (%.2f GB),并发数 %d -> %d",
				float64(vmStat.Available)/(1024*1024*1024), clamped, memoryLimit)
			clamped = memoryLimit
		}
	}

	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		utils.Debugf("获取CPU使用率失败,跳过CPU限制")
	} else if percentages[0] > cpuLoadThreshold {
		utils.Warnf("⚠️ CPU负载过高 (%.1f%%),并发数 %d -> 1", percentages[0], clamped)
		clamped = 1
	}

	return clamped
}
