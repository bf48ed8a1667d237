package alerts

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"cxdaemon/pkg/db"
	"cxdaemon/pkg/models"
)

func GetTestStore(t *testing.T) *AlertStore {
	dialector := db.UseNamedMemorySqliteDialector(uuid.NewString())
	dbInstance, err := db.Open(dialector)
	require.NoError(t, err)
	return NewAlertStore(dbInstance)
}

// seedAlert inserts an alert with a chosen status and timestamps.
func seedAlert(t *testing.T, store *AlertStore, severity models.AlertSeverity, status models.AlertStatus, at time.Time) models.Alert {
	alert := models.NewAlert(severity, "memory_monitor", "Test Alert", "test description")
	alert.Status = status
	alert.CreatedAt = at
	alert.UpdatedAt = at
	require.NoError(t, store.Insert(&alert))
	return alert
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
