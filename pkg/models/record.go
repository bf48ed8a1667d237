package models

import (
	"time"
)

// AlertRecord is the persisted shape of an Alert. Enum and timestamp
// columns stay TEXT so a corrupt row can still be scanned and coerced
// instead of failing the whole query.
type AlertRecord struct {
	ID          string `gorm:"primaryKey"`
	Severity    string `gorm:"index"`
	Source      string
	Title       string
	Description string
	Status      string `gorm:"index"`
	CreatedAt   string `gorm:"index"`
	UpdatedAt   string
}

func (AlertRecord) TableName() string {
	return "alerts"
}

func NewAlertRecord(a *Alert) AlertRecord {
	return AlertRecord{
		ID:          a.ID,
		Severity:    string(a.Severity),
		Source:      a.Source,
		Title:       a.Title,
		Description: a.Description,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
}

// ToAlert converts a stored row back to the domain type. Unknown
// severity/status strings coerce to info/active and unparseable
// timestamps coerce to now; the second return reports whether any
// field needed coercion.
func (r *AlertRecord) ToAlert() (Alert, bool) {
	coerced := false

	severity, ok := ParseAlertSeverity(r.Severity)
	if !ok {
		severity = AlertSeverityInfo
		coerced = true
	}

	status, ok := ParseAlertStatus(r.Status)
	if !ok {
		status = AlertStatusActive
		coerced = true
	}

	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
		coerced = true
	}

	updatedAt, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		updatedAt = time.Now().UTC()
		coerced = true
	}

	return Alert{
		ID:          r.ID,
		Severity:    severity,
		Source:      r.Source,
		Title:       r.Title,
		Description: r.Description,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, coerced
}
