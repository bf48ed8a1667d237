package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cxdaemon/pkg/common"
	"cxdaemon/pkg/models"
)

// AlertSink is the slice of the alert store the monitoring service
// needs.
type AlertSink interface {
	Insert(alert *models.Alert) error
	CleanupOlderThan(days int) (int64, error)
}

// Service samples host health on a fixed interval, evaluates
// thresholds and writes alerts into the store. GetHealth is safe to
// call from any goroutine; CheckAndAlert is only ever driven by the
// Run loop.
type Service struct {
	Config  models.MonitoringConfig
	Sink    AlertSink
	Sampler Sampler

	startTime   time.Time
	lastAlertAt map[string]time.Time
	lastCleanup time.Time
}

func NewService(config models.MonitoringConfig, sink AlertSink, sampler Sampler) *Service {
	return &Service{
		Config:      config,
		Sink:        sink,
		Sampler:     sampler,
		startTime:   time.Now(),
		lastAlertAt: make(map[string]time.Time),
	}
}

// GetHealth always succeeds; unmeasurable values degrade to zeros.
func (s *Service) GetHealth() models.SystemHealth {
	return models.SystemHealth{
		MemoryUsagePercent: s.Sampler.MemoryUsagePercent(),
		DiskUsagePercent:   s.Sampler.DiskUsagePercent(s.Config.DiskPath),
		FailedServices:     s.Sampler.FailedServices(),
		UptimeSecs:         uint64(time.Since(s.startTime).Seconds()),
	}
}

// CheckAndAlert runs one monitoring tick. A failed insert is logged
// and never aborts the remaining checks.
func (s *Service) CheckAndAlert() {
	health := s.GetHealth()

	if health.MemoryUsagePercent >= s.Config.MemoryCriticalThreshold {
		s.emit(
			models.AlertSeverityCritical,
			models.AlertSourceMemory,
			"Critical Memory Usage",
			fmt.Sprintf("Memory usage is at %.1f%% (critical threshold: %.1f%%)",
				health.MemoryUsagePercent, s.Config.MemoryCriticalThreshold),
		)
	} else if health.MemoryUsagePercent >= s.Config.MemoryWarningThreshold {
		s.emit(
			models.AlertSeverityWarning,
			models.AlertSourceMemory,
			"High Memory Usage",
			fmt.Sprintf("Memory usage is at %.1f%% (warning threshold: %.1f%%)",
				health.MemoryUsagePercent, s.Config.MemoryWarningThreshold),
		)
	}

	if health.DiskUsagePercent >= s.Config.DiskCriticalThreshold {
		s.emit(
			models.AlertSeverityCritical,
			models.AlertSourceDisk,
			"Critical Disk Space",
			fmt.Sprintf("Disk usage is at %.1f%% (critical threshold: %.1f%%)",
				health.DiskUsagePercent, s.Config.DiskCriticalThreshold),
		)
	} else if health.DiskUsagePercent >= s.Config.DiskWarningThreshold {
		s.emit(
			models.AlertSeverityWarning,
			models.AlertSourceDisk,
			"Low Disk Space",
			fmt.Sprintf("Disk usage is at %.1f%% (warning threshold: %.1f%%)",
				health.DiskUsagePercent, s.Config.DiskWarningThreshold),
		)
	}

	if len(health.FailedServices) > 0 {
		s.emit(
			models.AlertSeverityError,
			models.AlertSourceService,
			"Failed Services Detected",
			fmt.Sprintf("The following services have failed: %s",
				strings.Join(health.FailedServices, ", ")),
		)
	}
}

// emit stores one alert unless the source+severity pair is inside the
// cooldown window. Cooldown 0 means every breach alerts, every tick.
func (s *Service) emit(severity models.AlertSeverity, source, title, description string) {
	logger := common.GetLoggerWith(
		common.LoggerNameMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)

	if s.Config.AlertCooldownSecs > 0 {
		key := source + "/" + string(severity)
		cooldown := time.Duration(s.Config.AlertCooldownSecs) * time.Second
		if last, seen := s.lastAlertAt[key]; seen && time.Since(last) < cooldown {
			logger.Debug("Alert suppressed by cooldown",
				zap.String("source", source), zap.String("severity", string(severity)))
			return
		}
		s.lastAlertAt[key] = time.Now()
	}

	alert := models.NewAlert(severity, source, title, description)

	logger.Info("Alert found", zap.Reflect("alert", alert))

	if err := s.Sink.Insert(&alert); err != nil {
		logger.Error("Failed to save alert", zap.String("source", source), zap.Error(err))
		return
	}

	logger.Info("Alert saved", zap.Reflect("alert", alert))
}

// Run drives the tick loop until ctx is cancelled. The sleep is a
// fixed interval, so the effective period is interval plus the time
// spent sampling.
func (s *Service) Run(ctx context.Context) {
	logger := common.GetLoggerWith(
		common.LoggerNameMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryHealth),
	)
	logger.Info("Monitoring loop started",
		zap.Int("check_interval_secs", s.Config.CheckIntervalSecs))

	interval := time.Duration(s.Config.CheckIntervalSecs) * time.Second
	for {
		s.CheckAndAlert()
		s.cleanupIfDue()

		select {
		case <-ctx.Done():
			logger.Info("Monitoring loop stopped")
			return
		case <-time.After(interval):
		}
	}
}

// cleanupIfDue sweeps old dismissed alerts at most once per day.
func (s *Service) cleanupIfDue() {
	if s.Config.RetentionDays <= 0 {
		return
	}
	if !s.lastCleanup.IsZero() && time.Since(s.lastCleanup) < 24*time.Hour {
		return
	}
	s.lastCleanup = time.Now()

	logger := common.GetLoggerWith(
		common.LoggerNameMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryRetention),
	)

	count, err := s.Sink.CleanupOlderThan(s.Config.RetentionDays)
	if err != nil {
		logger.Error("Retention cleanup failed", zap.Error(err))
		return
	}
	logger.Info("Retention cleanup completed",
		zap.Int64("deleted", count), zap.Int("retention_days", s.Config.RetentionDays))
}
