package models

import (
	z "github.com/Oudwins/zog"
)

// MonitoringConfig is read-only after daemon start; changing it
// requires a restart.
type MonitoringConfig struct {
	MemoryWarningThreshold  float64
	MemoryCriticalThreshold float64
	DiskWarningThreshold    float64
	DiskCriticalThreshold   float64
	CheckIntervalSecs       int
	// AlertCooldownSecs suppresses repeat alerts from the same
	// source+severity inside the window. 0 keeps the one-alert-per-
	// breach-per-tick behavior.
	AlertCooldownSecs int
	RetentionDays     int
	DiskPath          string
}

func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		MemoryWarningThreshold:  80.0,
		MemoryCriticalThreshold: 95.0,
		DiskWarningThreshold:    85.0,
		DiskCriticalThreshold:   95.0,
		CheckIntervalSecs:       300,
		AlertCooldownSecs:       0,
		RetentionDays:           30,
		DiskPath:                "/",
	}
}

var monitoringConfigSchema = z.Struct(z.Shape{
	"MemoryWarningThreshold":  z.Float64().GTE(0).LTE(100),
	"MemoryCriticalThreshold": z.Float64().GTE(0).LTE(100),
	"DiskWarningThreshold":    z.Float64().GTE(0).LTE(100),
	"DiskCriticalThreshold":   z.Float64().GTE(0).LTE(100),
	"CheckIntervalSecs":       z.Int().GTE(1),
	"AlertCooldownSecs":       z.Int().GTE(0),
	"RetentionDays":           z.Int().GTE(0),
	"DiskPath":                z.String().Min(1),
})

// Validate reports threshold/interval issues keyed by field name.
func (c *MonitoringConfig) Validate() z.ZogIssueMap {
	return monitoringConfigSchema.Validate(c)
}
