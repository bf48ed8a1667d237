package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"cxdaemon/pkg/models"
)

// Request kinds accepted on the socket. The set is closed; anything
// else is a protocol error.
const (
	RequestPing                 string = "Ping"
	RequestVersion              string = "Version"
	RequestStatus               string = "Status"
	RequestHealth               string = "Health"
	RequestAlerts               string = "Alerts"
	RequestAcknowledgeAlert     string = "AcknowledgeAlert"
	RequestDismissAlert         string = "DismissAlert"
	RequestAcknowledgeAllAlerts string = "AcknowledgeAllAlerts"
	RequestShutdown             string = "Shutdown"
)

// Response kinds written back. Every request produces exactly one.
const (
	ResponseSuccess string = "Success"
	ResponseError   string = "Error"
	ResponsePong    string = "Pong"
	ResponseVersion string = "Version"
	ResponseStatus  string = "Status"
	ResponseHealth  string = "Health"
	ResponseAlerts  string = "Alerts"
)

// Request is one decoded frame. Data stays raw until the handler for
// the concrete type picks it apart.
type Request struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AlertsFilter carries the optional status/severity filter strings of
// an Alerts request. Nil means "match any".
type AlertsFilter struct {
	Status   *string `json:"status"`
	Severity *string `json:"severity"`
}

type alertIDData struct {
	ID string `json:"id"`
}

// ParseRequest decodes and checks one frame. Unknown types are
// rejected here so they never reach the dispatcher.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, err
	}

	switch req.Type {
	case RequestPing, RequestVersion, RequestStatus, RequestHealth,
		RequestAlerts, RequestAcknowledgeAlert, RequestDismissAlert,
		RequestAcknowledgeAllAlerts, RequestShutdown:
		return &req, nil
	}
	return nil, fmt.Errorf("unknown request type %q", req.Type)
}

// AlertsFilter decodes the filter payload; a missing payload means no
// filters at all.
func (r *Request) AlertsFilter() (AlertsFilter, error) {
	var filter AlertsFilter
	if len(r.Data) == 0 {
		return filter, nil
	}
	err := json.Unmarshal(r.Data, &filter)
	return filter, err
}

// AlertID decodes the id payload of an acknowledge/dismiss request.
func (r *Request) AlertID() (string, error) {
	var data alertIDData
	if len(r.Data) == 0 {
		return "", fmt.Errorf("missing alert id")
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return "", err
	}
	if data.ID == "" {
		return "", fmt.Errorf("missing alert id")
	}
	return data.ID, nil
}

type Response struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (r *Response) ToJSON() (string, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

type MessageData struct {
	Message string `json:"message"`
}

type PongData struct {
	Version    string `json:"version"`
	UptimeSecs uint64 `json:"uptime_secs"`
}

type VersionData struct {
	Version string `json:"version"`
}

type StatusData struct {
	Version           string `json:"version"`
	UptimeSecs        uint64 `json:"uptime_secs"`
	MonitoringEnabled bool   `json:"monitoring_enabled"`
	AlertCount        int64  `json:"alert_count"`
}

type AlertsData struct {
	Alerts []AlertInfo `json:"alerts"`
}

// AlertInfo is the wire shape of one alert: plain strings, RFC3339
// timestamps.
type AlertInfo struct {
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func AlertInfoFrom(a models.Alert) AlertInfo {
	return AlertInfo{
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

func SuccessResponse(format string, args ...any) Response {
	return Response{Type: ResponseSuccess, Data: MessageData{Message: fmt.Sprintf(format, args...)}}
}

func ErrorResponse(format string, args ...any) Response {
	return Response{Type: ResponseError, Data: MessageData{Message: fmt.Sprintf(format, args...)}}
}
