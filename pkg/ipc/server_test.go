package ipc

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"cxdaemon/pkg/alerts"
	"cxdaemon/pkg/common"
	"cxdaemon/pkg/db"
	"cxdaemon/pkg/models"
	"cxdaemon/pkg/monitor"
	_ "cxdaemon/pkg/testing"
)

type stubSampler struct {
	memory float64
	disk   float64
	failed []string
}

func (s stubSampler) MemoryUsagePercent() float64          { return s.memory }
func (s stubSampler) DiskUsagePercent(path string) float64 { return s.disk }
func (s stubSampler) FailedServices() []string             { return s.failed }

type testDaemon struct {
	store   *alerts.AlertStore
	service *monitor.Service
	server  *Server
	done    chan struct{}
}

func startTestDaemon(t *testing.T, sampler monitor.Sampler) *testDaemon {
	common.SetTestLoggerNop()

	dbInstance, err := db.Open(db.UseNamedMemorySqliteDialector(uuid.NewString()))
	require.NoError(t, err)
	store := alerts.NewAlertStore(dbInstance)

	config := models.DefaultMonitoringConfig()
	config.MemoryCriticalThreshold = 1.0
	service := monitor.NewService(config, store, sampler)

	done := make(chan struct{})
	server := &Server{
		SocketPath:   filepath.Join(t.TempDir(), "daemon.sock"),
		Handler:      NewRequestHandler(store, service),
		RequestRate:  rate.Limit(1000),
		RequestBurst: 1000,
	}
	server.OnShutdown = func() {
		server.Close()
		close(done)
	}

	require.NoError(t, server.Listen())
	go server.Serve()
	t.Cleanup(server.Close)

	return &testDaemon{store: store, service: service, server: server, done: done}
}

func dialDaemon(t *testing.T, d *testDaemon) (net.Conn, *bufio.Reader) {
	conn, err := net.Dial("unix", d.server.SocketPath)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendRecv(t *testing.T, conn net.Conn, reader *bufio.Reader, request string) map[string]any {
	_, err := conn.Write([]byte(request + "\n"))
	require.NoError(t, err)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	return resp
}

func TestServerPingAndVersion(t *testing.T) {
	d := startTestDaemon(t, stubSampler{})
	conn, reader := dialDaemon(t, d)

	resp := sendRecv(t, conn, reader, `{"type":"Ping"}`)
	assert.Equal(t, "Pong", resp["type"])
	assert.Equal(t, common.Version, resp["data"].(map[string]any)["version"])

	resp = sendRecv(t, conn, reader, `{"type":"Version"}`)
	assert.Equal(t, "Version", resp["type"])
}

func TestServerRecoversFromGarbageLine(t *testing.T) {
	d := startTestDaemon(t, stubSampler{})
	conn, reader := dialDaemon(t, d)

	resp := sendRecv(t, conn, reader, `this is not json`)
	assert.Equal(t, "Error", resp["type"])
	assert.Contains(t, resp["data"].(map[string]any)["message"], "Invalid request")

	// the connection stays usable
	resp = sendRecv(t, conn, reader, `{"type":"Ping"}`)
	assert.Equal(t, "Pong", resp["type"])
}

func TestServerIgnoresEmptyLines(t *testing.T) {
	d := startTestDaemon(t, stubSampler{})
	conn, reader := dialDaemon(t, d)

	_, err := conn.Write([]byte("\n\n"))
	require.NoError(t, err)

	resp := sendRecv(t, conn, reader, `{"type":"Ping"}`)
	assert.Equal(t, "Pong", resp["type"])
}

func TestServerAlertFlow(t *testing.T) {
	d := startTestDaemon(t, stubSampler{memory: 96.0})
	conn, reader := dialDaemon(t, d)

	// one tick against a breached threshold
	d.service.CheckAndAlert()

	resp := sendRecv(t, conn, reader, `{"type":"Alerts","data":{"status":"active","severity":"critical"}}`)
	require.Equal(t, "Alerts", resp["type"])

	listed := resp["data"].(map[string]any)["alerts"].([]any)
	require.NotEmpty(t, listed)

	first := listed[0].(map[string]any)
	assert.Equal(t, "memory_monitor", first["source"])
	assert.Equal(t, "critical", first["severity"])
	id := first["id"].(string)

	resp = sendRecv(t, conn, reader, `{"type":"AcknowledgeAlert","data":{"id":"`+id+`"}}`)
	require.Equal(t, "Success", resp["type"])

	got, err := d.store.Get(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.AlertStatusAcknowledged, got.Status)

	resp = sendRecv(t, conn, reader, `{"type":"AcknowledgeAlert","data":{"id":"no-such-id"}}`)
	assert.Equal(t, "Error", resp["type"])
}

func TestServerStatusAndHealth(t *testing.T) {
	d := startTestDaemon(t, stubSampler{memory: 42.5, failed: []string{"nginx.service"}})
	conn, reader := dialDaemon(t, d)

	resp := sendRecv(t, conn, reader, `{"type":"Status"}`)
	require.Equal(t, "Status", resp["type"])
	status := resp["data"].(map[string]any)
	assert.Equal(t, true, status["monitoring_enabled"])

	resp = sendRecv(t, conn, reader, `{"type":"Health"}`)
	require.Equal(t, "Health", resp["type"])
	health := resp["data"].(map[string]any)
	assert.Equal(t, 42.5, health["memory_usage_percent"])
	assert.Equal(t, []any{"nginx.service"}, health["failed_services"])

	uptimeFirst := health["uptime_secs"].(float64)

	resp = sendRecv(t, conn, reader, `{"type":"Health"}`)
	uptimeSecond := resp["data"].(map[string]any)["uptime_secs"].(float64)
	assert.GreaterOrEqual(t, uptimeSecond, uptimeFirst)
}

func TestServerShutdownRespondsThenStops(t *testing.T) {
	d := startTestDaemon(t, stubSampler{})
	conn, reader := dialDaemon(t, d)

	resp := sendRecv(t, conn, reader, `{"type":"Shutdown"}`)
	assert.Equal(t, "Success", resp["type"])

	<-d.done

	// listener is gone, new connections are refused
	_, err := net.Dial("unix", d.server.SocketPath)
	assert.Error(t, err)
}

func TestServerConcurrentConnections(t *testing.T) {
	d := startTestDaemon(t, stubSampler{})

	for i := 0; i < 5; i++ {
		conn, reader := dialDaemon(t, d)
		resp := sendRecv(t, conn, reader, `{"type":"Ping"}`)
		assert.Equal(t, "Pong", resp["type"])
	}
}
