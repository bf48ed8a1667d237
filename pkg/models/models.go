package models

import (
	"time"

	"github.com/google/uuid"
)

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityError    AlertSeverity = "error"
	AlertSeverityCritical AlertSeverity = "critical"
)

func ParseAlertSeverity(s string) (AlertSeverity, bool) {
	switch AlertSeverity(s) {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityError, AlertSeverityCritical:
		return AlertSeverity(s), true
	}
	return "", false
}

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusDismissed    AlertStatus = "dismissed"
)

func ParseAlertStatus(s string) (AlertStatus, bool) {
	switch AlertStatus(s) {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusDismissed:
		return AlertStatus(s), true
	}
	return "", false
}

// Alert source identifiers used by the monitoring service.
const (
	AlertSourceMemory  string = "memory_monitor"
	AlertSourceDisk    string = "disk_monitor"
	AlertSourceService string = "service_monitor"
)

// Alert is the durable unit of monitoring output. Only Status and
// UpdatedAt change after insertion.
type Alert struct {
	ID          string        `json:"id"`
	Severity    AlertSeverity `json:"severity"`
	Source      string        `json:"source"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      AlertStatus   `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewAlert constructs an active alert with a fresh id and both
// timestamps set to the same instant.
func NewAlert(severity AlertSeverity, source, title, description string) Alert {
	now := time.Now().UTC()
	return Alert{
		ID:          uuid.NewString(),
		Severity:    severity,
		Source:      source,
		Title:       title,
		Description: description,
		Status:      AlertStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SystemHealth is a point-in-time snapshot, never persisted.
type SystemHealth struct {
	MemoryUsagePercent float64  `json:"memory_usage_percent"`
	DiskUsagePercent   float64  `json:"disk_usage_percent"`
	FailedServices     []string `json:"failed_services"`
	UptimeSecs         uint64   `json:"uptime_secs"`
}
