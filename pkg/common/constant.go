package common

const (
	Version string = "0.3.1"

	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyCXSocketPath string = "CX_SOCKET_PATH"
	EnvKeyCXDbPath     string = "CX_DB_PATH"
	EnvKeyCXLogDir     string = "CX_LOG_DIR"

	EnvKeyCXIPCRate  string = "CX_IPC_RATE"
	EnvKeyCXIPCBurst string = "CX_IPC_BURST"

	LoggerNameAlertStore   string = "alert_store"
	LoggerNameMonitor      string = "monitor"
	LoggerNameIPCServer    string = "ipc_server"
	LoggerNameStatusServer string = "status_server"
	LoggerNameDaemon       string = "daemon"

	LoggerFieldCategory       string = "category"
	LoggerCategoryAlert       string = "alert"
	LoggerCategoryHealth      string = "health"
	LoggerCategoryRetention   string = "retention"
	LoggerCategoryConnection  string = "connection"
	LoggerCategoryCorruptData string = "corrupt_data"
)
