package ipc

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cxdaemon/pkg/common"
	"cxdaemon/pkg/ipc/mocks"
	"cxdaemon/pkg/models"
	_ "cxdaemon/pkg/testing"
)

func getMockHandler(t *testing.T) (*gomock.Controller, *RequestHandler, *mocks.MockAlertStore, *mocks.MockHealthProvider) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockAlertStore(ctrl)
	mockMonitor := mocks.NewMockHealthProvider(ctrl)
	return ctrl, NewRequestHandler(mockStore, mockMonitor), mockStore, mockMonitor
}

func mustRequest(t *testing.T, line string) *Request {
	req, err := ParseRequest([]byte(line))
	require.NoError(t, err)
	return req
}

func TestHandlePing(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, _, _ := getMockHandler(t)
	defer ctrl.Finish()

	resp := handler.Handle(mustRequest(t, `{"type":"Ping"}`))
	assert.Equal(t, ResponsePong, resp.Type)

	pong := resp.Data.(PongData)
	assert.Equal(t, common.Version, pong.Version)
}

func TestHandleVersion(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, _, _ := getMockHandler(t)
	defer ctrl.Finish()

	resp := handler.Handle(mustRequest(t, `{"type":"Version"}`))
	assert.Equal(t, ResponseVersion, resp.Type)
	assert.Equal(t, common.Version, resp.Data.(VersionData).Version)
}

func TestHandleStatus(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().CountActive().Return(int64(3), nil)

	resp := handler.Handle(mustRequest(t, `{"type":"Status"}`))
	assert.Equal(t, ResponseStatus, resp.Type)

	status := resp.Data.(StatusData)
	assert.Equal(t, common.Version, status.Version)
	assert.True(t, status.MonitoringEnabled)
	assert.Equal(t, int64(3), status.AlertCount)
}

func TestHandleStatusCountFailureDegradesToZero(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().CountActive().Return(int64(0), fmt.Errorf("db gone"))

	resp := handler.Handle(mustRequest(t, `{"type":"Status"}`))
	assert.Equal(t, ResponseStatus, resp.Type)
	assert.Equal(t, int64(0), resp.Data.(StatusData).AlertCount)
}

func TestHandleHealth(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, _, mockMonitor := getMockHandler(t)
	defer ctrl.Finish()

	mockMonitor.EXPECT().GetHealth().Return(models.SystemHealth{
		MemoryUsagePercent: 55.5,
		FailedServices:     []string{},
		UptimeSecs:         10,
	})

	resp := handler.Handle(mustRequest(t, `{"type":"Health"}`))
	assert.Equal(t, ResponseHealth, resp.Type)
	assert.Equal(t, 55.5, resp.Data.(models.SystemHealth).MemoryUsagePercent)
}

func TestHandleListAlerts(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	now := time.Now().UTC().Truncate(time.Second)
	stored := models.Alert{
		ID: "abc", Severity: models.AlertSeverityCritical, Source: models.AlertSourceMemory,
		Title: "t", Description: "d", Status: models.AlertStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}

	mockStore.EXPECT().
		List(gomock.Not(gomock.Nil()), gomock.Nil()).
		Return([]models.Alert{stored}, nil)

	resp := handler.Handle(mustRequest(t, `{"type":"Alerts","data":{"status":"active","severity":null}}`))
	assert.Equal(t, ResponseAlerts, resp.Type)

	listed := resp.Data.(AlertsData)
	require.Len(t, listed.Alerts, 1)
	assert.Equal(t, "abc", listed.Alerts[0].ID)
	assert.Equal(t, "critical", listed.Alerts[0].Severity)
}

func TestHandleListAlertsUnknownFilterMeansNoFilter(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().
		List(gomock.Nil(), gomock.Nil()).
		Return([]models.Alert{}, nil)

	resp := handler.Handle(mustRequest(t, `{"type":"Alerts","data":{"status":"bogus","severity":"worse"}}`))
	assert.Equal(t, ResponseAlerts, resp.Type)
	assert.Len(t, resp.Data.(AlertsData).Alerts, 0)
}

func TestHandleAcknowledgeAlert(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().Acknowledge("abc").Return(true, nil)

	resp := handler.Handle(mustRequest(t, `{"type":"AcknowledgeAlert","data":{"id":"abc"}}`))
	assert.Equal(t, ResponseSuccess, resp.Type)
	assert.Equal(t, "Alert abc acknowledged", resp.Data.(MessageData).Message)
}

func TestHandleAcknowledgeAlertNotFound(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().Acknowledge("missing").Return(false, nil)

	resp := handler.Handle(mustRequest(t, `{"type":"AcknowledgeAlert","data":{"id":"missing"}}`))
	assert.Equal(t, ResponseError, resp.Type)
	assert.Equal(t, "Alert missing not found", resp.Data.(MessageData).Message)
}

func TestHandleDismissAlertStoreFailure(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().Dismiss("abc").Return(false, fmt.Errorf("disk full"))

	resp := handler.Handle(mustRequest(t, `{"type":"DismissAlert","data":{"id":"abc"}}`))
	assert.Equal(t, ResponseError, resp.Type)
	assert.Contains(t, resp.Data.(MessageData).Message, "disk full")
}

func TestHandleAcknowledgeAllAlerts(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, mockStore, _ := getMockHandler(t)
	defer ctrl.Finish()

	mockStore.EXPECT().AcknowledgeAll().Return(int64(5), nil)

	resp := handler.Handle(mustRequest(t, `{"type":"AcknowledgeAllAlerts"}`))
	assert.Equal(t, ResponseSuccess, resp.Type)
	assert.Equal(t, "Acknowledged 5 alert(s)", resp.Data.(MessageData).Message)
}

func TestHandleShutdown(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, handler, _, _ := getMockHandler(t)
	defer ctrl.Finish()

	resp := handler.Handle(mustRequest(t, `{"type":"Shutdown"}`))
	assert.Equal(t, ResponseSuccess, resp.Type)
	assert.Equal(t, "Shutdown requested", resp.Data.(MessageData).Message)
}
