package ipc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cxdaemon/pkg/common"
	"cxdaemon/pkg/monitor"
	_ "cxdaemon/pkg/testing"
)

// End-to-end against the real host: with the critical threshold forced
// to 1%, a single tick must raise a critical memory alert.
func TestServerAgainstRealHost(t *testing.T) {
	common.SetTestLoggerNop()

	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}

	d := startTestDaemon(t, monitor.HostSampler{})
	conn, reader := dialDaemon(t, d)

	d.service.CheckAndAlert()

	resp := sendRecv(t, conn, reader, `{"type":"Alerts","data":{"status":"active","severity":"critical"}}`)
	require.Equal(t, "Alerts", resp["type"])

	listed := resp["data"].(map[string]any)["alerts"].([]any)
	require.NotEmpty(t, listed)

	first := listed[0].(map[string]any)
	assert.Equal(t, "memory_monitor", first["source"])

	id := first["id"].(string)
	resp = sendRecv(t, conn, reader, `{"type":"AcknowledgeAlert","data":{"id":"`+id+`"}}`)
	assert.Equal(t, "Success", resp["type"])
}
