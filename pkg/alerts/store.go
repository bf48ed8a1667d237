package alerts

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cxdaemon/pkg/common"
	"cxdaemon/pkg/db"
	"cxdaemon/pkg/models"
)

// StorageError marks a failure in the persistence layer, as opposed to
// a domain outcome like "not found".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("alert storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// AlertStore is the only state shared between the monitoring loop and
// the connection handlers. One mutex guards the whole store; every
// operation holds it for the duration of the call and never across
// network I/O.
type AlertStore struct {
	Db *db.DB

	mu          sync.Mutex
	coercedRows atomic.Uint64
}

func NewAlertStore(dbInstance *db.DB) *AlertStore {
	return &AlertStore{Db: dbInstance}
}

// Insert appends a new alert. The id must be unique for the lifetime
// of the database file.
func (s *AlertStore) Insert(alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := models.NewAlertRecord(alert)
	return storageErr("insert", s.Db.Conn.Create(&record).Error)
}

// Get returns nil without error when no alert has the id.
func (s *AlertStore) Get(id string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record models.AlertRecord
	err := s.Db.Conn.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get", err)
	}

	alert := s.normalize(&record)
	return &alert, nil
}

// List returns alerts matching every supplied filter, newest first.
// Filters always travel as bound parameters.
func (s *AlertStore) List(status *models.AlertStatus, severity *models.AlertSeverity) ([]models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.Db.Conn.Model(&models.AlertRecord{})
	if status != nil {
		query = query.Where("status = ?", string(*status))
	}
	if severity != nil {
		query = query.Where("severity = ?", string(*severity))
	}

	var records []models.AlertRecord
	if err := query.Order("created_at desc").Find(&records).Error; err != nil {
		return nil, storageErr("list", err)
	}

	return common.Mapper(records, func(r models.AlertRecord) models.Alert {
		return s.normalize(&r)
	}), nil
}

// UpdateStatus sets the status and refreshes updated_at. Any status
// may be set to any other status; callers own the transition policy.
// Returns whether a row was matched.
func (s *AlertStore) UpdateStatus(id string, status models.AlertStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.Db.Conn.Model(&models.AlertRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		})
	if result.Error != nil {
		return false, storageErr("update_status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *AlertStore) Acknowledge(id string) (bool, error) {
	return s.UpdateStatus(id, models.AlertStatusAcknowledged)
}

func (s *AlertStore) Dismiss(id string) (bool, error) {
	return s.UpdateStatus(id, models.AlertStatusDismissed)
}

// AcknowledgeAll transitions every currently active alert to
// acknowledged in one statement and returns how many rows changed.
func (s *AlertStore) AcknowledgeAll() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.Db.Conn.Model(&models.AlertRecord{}).
		Where("status = ?", string(models.AlertStatusActive)).
		Updates(map[string]any{
			"status":     string(models.AlertStatusAcknowledged),
			"updated_at": time.Now().UTC().Format(time.RFC3339),
		})
	if result.Error != nil {
		return 0, storageErr("acknowledge_all", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupOlderThan permanently deletes dismissed alerts whose
// updated_at precedes now - days. Active and acknowledged alerts are
// never touched.
func (s *AlertStore) CleanupOlderThan(days int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	result := s.Db.Conn.
		Where("status = ? AND updated_at < ?", string(models.AlertStatusDismissed), cutoff).
		Delete(&models.AlertRecord{})
	if result.Error != nil {
		return 0, storageErr("cleanup", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *AlertStore) CountActive() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.Db.Conn.Model(&models.AlertRecord{}).
		Where("status = ?", string(models.AlertStatusActive)).
		Count(&count).Error
	if err != nil {
		return 0, storageErr("count_active", err)
	}
	return count, nil
}

// CoercedRowCount reports how many stored rows needed fallback
// coercion while being read, so silent data corruption stays visible.
func (s *AlertStore) CoercedRowCount() uint64 {
	return s.coercedRows.Load()
}

func (s *AlertStore) normalize(record *models.AlertRecord) models.Alert {
	alert, coerced := record.ToAlert()
	if coerced {
		s.coercedRows.Add(1)
		common.GetLoggerWith(
			common.LoggerNameAlertStore,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryCorruptData),
		).Warn("Coerced corrupt alert row to fallback values", zap.String("id", record.ID))
	}
	return alert
}
