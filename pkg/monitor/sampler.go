package monitor

import (
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"cxdaemon/pkg/common"
)

// Sampler reads raw host measurements. Every method is best-effort and
// degrades to zero/empty instead of failing, so health reporting keeps
// working in degraded environments. The flip side is that callers
// cannot tell "healthy" from "could not measure".
type Sampler interface {
	MemoryUsagePercent() float64
	DiskUsagePercent(path string) float64
	FailedServices() []string
}

// HostSampler measures the local host via gopsutil and systemctl.
type HostSampler struct{}

func (HostSampler) MemoryUsagePercent() float64 {
	vmem, err := mem.VirtualMemory()
	if err != nil {
		common.GetLoggerWith(
			common.LoggerNameMonitor,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryHealth),
		).Warn("Failed to read memory usage", zap.Error(err))
		return 0.0
	}
	return vmem.UsedPercent
}

func (HostSampler) DiskUsagePercent(path string) float64 {
	usage, err := disk.Usage(path)
	if err != nil {
		common.GetLoggerWith(
			common.LoggerNameMonitor,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryHealth),
		).Warn("Failed to read disk usage", zap.String("path", path), zap.Error(err))
		return 0.0
	}
	return usage.UsedPercent
}

// FailedServices lists systemd units currently in the failed state.
// Hosts without systemctl report no failed services.
func (HostSampler) FailedServices() []string {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return []string{}
	}

	out, err := exec.Command("systemctl", "--failed", "--no-pager", "--no-legend").Output()
	if err != nil {
		return []string{}
	}

	failed := []string{}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 {
			failed = append(failed, fields[0])
		}
	}
	return failed
}
