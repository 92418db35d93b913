package crawlers

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// maxWorkerLimit 自动计算时的并发上限
const maxWorkerLimit = 16

// ResourceMonitor 系统资源监控器
// 未配置并发数时,根据可用内存和CPU负载计算爬取/处理的并发数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 结果缓存一秒
	cachedWorkers int
	lastCacheTime time.Time
	cacheMu       sync.Mutex

	// 测试时替换
	availableMemory func() (uint64, error)
	cpuUsage        func() float64
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	WorkerMemoryUsage   int64 // 单个并发的平均内存消耗(字节)
	CPULoadThreshold    int   // CPU负载阈值(%),超过时并发减半;>=200 表示不检查
	MaxWorkersLimit     int   // 绝对最大并发数
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage == 0 {
		config.WorkerMemoryUsage = 100 * 1024 * 1024 // 100MB
	}
	if config.SafetyReserveMemory == 0 {
		config.SafetyReserveMemory = 512 * 1024 * 1024
	}
	if config.CPULoadThreshold == 0 {
		config.CPULoadThreshold = 90
	}
	if config.MaxWorkersLimit <= 0 {
		config.MaxWorkersLimit = maxWorkerLimit
	}

	return &ResourceMonitor{
		config:          config,
		availableMemory: systemAvailableMemory,
		cpuUsage:        systemCPUUsage,
	}
}

// systemAvailableMemory 系统可用内存
func systemAvailableMemory() (uint64, error) {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmStat.Available, nil
}

// systemCPUUsage 所有核心的平均使用率
func systemCPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
		return 0
	}
	if len(percentages) == 0 {
		return 0
	}
	return percentages[0]
}

// CalculateMaxWorkers 计算当前允许的并发数
// 取内存上限、CPU核数与配置上限三者的最小值,至少为1
func (rm *ResourceMonitor) CalculateMaxWorkers() int {
	rm.cacheMu.Lock()
	defer rm.cacheMu.Unlock()

	if rm.cachedWorkers > 0 && time.Since(rm.lastCacheTime) < time.Second {
		return rm.cachedWorkers
	}

	byMemory := rm.config.MaxWorkersLimit
	available, err := rm.availableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,按配置上限计算")
	} else {
		surplus := int64(available) - rm.config.SafetyReserveMemory
		byMemory = int(surplus / rm.config.WorkerMemoryUsage)
	}

	result := byMemory
	if cpus := runtime.NumCPU(); cpus < result {
		result = cpus
	}
	if rm.config.MaxWorkersLimit < result {
		result = rm.config.MaxWorkersLimit
	}

	if rm.config.CPULoadThreshold < 200 {
		if usage := rm.cpuUsage(); usage > float64(rm.config.CPULoadThreshold) {
			log.Warn().Msgf("CPU负载过高(当前%.1f%%),并发减半", usage)
			result /= 2
		}
	}

	if result < 1 {
		result = 1
	}

	rm.cachedWorkers = result
	rm.lastCacheTime = time.Now()

	log.Debug().Msgf("并发数计算结果: %d (内存上限=%d, CPU核数=%d)", result, byMemory, runtime.NumCPU())
	return result
}
