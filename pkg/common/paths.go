package common

import (
	"os"
	"path/filepath"
)

// DaemonSocketPath resolves the unix socket path for the daemon.
//
// Priority order:
//  1. $XDG_RUNTIME_DIR/cx/daemon.sock (session-scoped)
//  2. $HOME/.cx/daemon.sock
//  3. /var/run/cx/daemon.sock (system-wide fallback)
func DaemonSocketPath() string {
	if runtimeDir, found := os.LookupEnv("XDG_RUNTIME_DIR"); found && runtimeDir != "" {
		return filepath.Join(runtimeDir, "cx", "daemon.sock")
	}
	if home, found := os.LookupEnv("HOME"); found && home != "" {
		return filepath.Join(home, ".cx", "daemon.sock")
	}
	return "/var/run/cx/daemon.sock"
}

// AlertDbPath resolves the alert database path.
//
// Priority order:
//  1. $HOME/.cx/alerts.db
//  2. /var/lib/cx/alerts.db (system-wide fallback)
func AlertDbPath() string {
	if home, found := os.LookupEnv("HOME"); found && home != "" {
		return filepath.Join(home, ".cx", "alerts.db")
	}
	return "/var/lib/cx/alerts.db"
}

// LogDir resolves where rotated log files go. CX_LOG_DIR wins, then the
// cx state dir next to the alert database.
func LogDir() string {
	if dir, found := os.LookupEnv(EnvKeyCXLogDir); found && dir != "" {
		return dir
	}
	if IsTestEnv() {
		return "logs"
	}
	if home, found := os.LookupEnv("HOME"); found && home != "" {
		return filepath.Join(home, ".cx", "logs")
	}
	return "/var/lib/cx/logs"
}
