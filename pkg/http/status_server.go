package http

import (
	"net/http"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"

	"cxdaemon/pkg/alerts"
	"cxdaemon/pkg/common"
	"cxdaemon/pkg/models"
	"cxdaemon/pkg/monitor"
)

// StatusServer is a read-only HTTP view of the daemon, intended for
// loopback dashboards. It exposes no mutations and no shutdown; the
// unix socket stays the only control surface.
type StatusServer struct {
	Server  *gin.Engine
	Store   *alerts.AlertStore
	Monitor *monitor.Service

	startTime time.Time
}

func (ss *StatusServer) Setup() {
	ss.startTime = time.Now()

	ss.Server.GET("/healthz", ss.HealthCheck)
	ss.Server.GET("/statusz", ss.GetStatus)
	ss.Server.GET("/alerts", ss.GetAlerts)
}

func (ss *StatusServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (ss *StatusServer) GetStatus(c *gin.Context) {
	alertCount, err := ss.Store.CountActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version":            common.Version,
		"uptime_secs":        uint64(time.Since(ss.startTime).Seconds()),
		"monitoring_enabled": ss.Monitor != nil,
		"alert_count":        alertCount,
	})
}

type AlertsQuery struct {
	Status   string `query:"status"`
	Severity string `query:"severity"`
}

var alertsQuerySchema = z.Struct(z.Shape{
	"Status":   z.String(),
	"Severity": z.String(),
})

func (ss *StatusServer) GetAlerts(c *gin.Context) {
	var query AlertsQuery
	if err := alertsQuerySchema.Parse(zhttp.Request(c.Request), &query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	// Same filter semantics as the IPC surface: unrecognized strings
	// mean no filter.
	var statusFilter *models.AlertStatus
	if status, ok := models.ParseAlertStatus(query.Status); ok {
		statusFilter = &status
	}
	var severityFilter *models.AlertSeverity
	if severity, ok := models.ParseAlertSeverity(query.Severity); ok {
		severityFilter = &severity
	}

	result, err := ss.Store.List(statusFilter, severityFilter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
