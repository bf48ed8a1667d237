package ipc

//go:generate mockgen -source=handler.go -destination=mocks/mock_ipc.go -package=mocks

import (
	"time"

	"cxdaemon/pkg/common"
	"cxdaemon/pkg/models"
)

// AlertStore is the slice of the alert store the dispatcher needs.
type AlertStore interface {
	List(status *models.AlertStatus, severity *models.AlertSeverity) ([]models.Alert, error)
	Acknowledge(id string) (bool, error)
	Dismiss(id string) (bool, error)
	AcknowledgeAll() (int64, error)
	CountActive() (int64, error)
}

// HealthProvider answers live health queries.
type HealthProvider interface {
	GetHealth() models.SystemHealth
}

// RequestHandler maps decoded requests to store/monitor calls. It has
// no transport knowledge; malformed frames never reach it.
type RequestHandler struct {
	Store   AlertStore
	Monitor HealthProvider

	startTime time.Time
}

func NewRequestHandler(store AlertStore, monitor HealthProvider) *RequestHandler {
	return &RequestHandler{
		Store:     store,
		Monitor:   monitor,
		startTime: time.Now(),
	}
}

// Handle produces exactly one response for a decoded request. Domain
// failures come back as Error responses, never as panics.
func (h *RequestHandler) Handle(req *Request) Response {
	switch req.Type {
	case RequestPing:
		return h.handlePing()
	case RequestVersion:
		return Response{Type: ResponseVersion, Data: VersionData{Version: common.Version}}
	case RequestStatus:
		return h.handleStatus()
	case RequestHealth:
		return h.handleHealth()
	case RequestAlerts:
		return h.handleListAlerts(req)
	case RequestAcknowledgeAlert:
		return h.handleAcknowledgeAlert(req)
	case RequestDismissAlert:
		return h.handleDismissAlert(req)
	case RequestAcknowledgeAllAlerts:
		return h.handleAcknowledgeAllAlerts()
	case RequestShutdown:
		// The server owns the actual process exit.
		return SuccessResponse("Shutdown requested")
	}
	return ErrorResponse("unknown request type %q", req.Type)
}

func (h *RequestHandler) uptimeSecs() uint64 {
	return uint64(time.Since(h.startTime).Seconds())
}

func (h *RequestHandler) handlePing() Response {
	return Response{Type: ResponsePong, Data: PongData{
		Version:    common.Version,
		UptimeSecs: h.uptimeSecs(),
	}}
}

func (h *RequestHandler) handleStatus() Response {
	alertCount, err := h.Store.CountActive()
	if err != nil {
		alertCount = 0
	}

	return Response{Type: ResponseStatus, Data: StatusData{
		Version:           common.Version,
		UptimeSecs:        h.uptimeSecs(),
		MonitoringEnabled: h.Monitor != nil,
		AlertCount:        alertCount,
	}}
}

func (h *RequestHandler) handleHealth() Response {
	if h.Monitor == nil {
		return ErrorResponse("monitoring is not enabled")
	}
	return Response{Type: ResponseHealth, Data: h.Monitor.GetHealth()}
}

func (h *RequestHandler) handleListAlerts(req *Request) Response {
	filter, err := req.AlertsFilter()
	if err != nil {
		return ErrorResponse("Invalid alerts filter: %v", err)
	}

	// An unrecognized filter string falls through to "no filter".
	var statusFilter *models.AlertStatus
	if filter.Status != nil {
		if status, ok := models.ParseAlertStatus(*filter.Status); ok {
			statusFilter = &status
		}
	}
	var severityFilter *models.AlertSeverity
	if filter.Severity != nil {
		if severity, ok := models.ParseAlertSeverity(*filter.Severity); ok {
			severityFilter = &severity
		}
	}

	alerts, err := h.Store.List(statusFilter, severityFilter)
	if err != nil {
		return ErrorResponse("Failed to list alerts: %v", err)
	}

	return Response{Type: ResponseAlerts, Data: AlertsData{
		Alerts: common.Mapper(alerts, AlertInfoFrom),
	}}
}

func (h *RequestHandler) handleAcknowledgeAlert(req *Request) Response {
	id, err := req.AlertID()
	if err != nil {
		return ErrorResponse("Invalid request: %v", err)
	}

	matched, err := h.Store.Acknowledge(id)
	if err != nil {
		return ErrorResponse("Failed to acknowledge alert: %v", err)
	}
	if !matched {
		return ErrorResponse("Alert %s not found", id)
	}
	return SuccessResponse("Alert %s acknowledged", id)
}

func (h *RequestHandler) handleDismissAlert(req *Request) Response {
	id, err := req.AlertID()
	if err != nil {
		return ErrorResponse("Invalid request: %v", err)
	}

	matched, err := h.Store.Dismiss(id)
	if err != nil {
		return ErrorResponse("Failed to dismiss alert: %v", err)
	}
	if !matched {
		return ErrorResponse("Alert %s not found", id)
	}
	return SuccessResponse("Alert %s dismissed", id)
}

func (h *RequestHandler) handleAcknowledgeAllAlerts() Response {
	count, err := h.Store.AcknowledgeAll()
	if err != nil {
		return ErrorResponse("Failed to acknowledge alerts: %v", err)
	}
	return SuccessResponse("Acknowledged %d alert(s)", count)
}
