// Package config loads go-arstage experience files and applies environment
// overrides.
package config

import (
	"os"
	"strconv"
)

// Environment variables honoured by the commands.
const (
	EnvConfigPath = "ARSTAGE_CONFIG"
	EnvPort       = "ARSTAGE_PORT"
	EnvLogLevel   = "LOG_LEVEL"
)

// DefaultPort is the HTTP port when neither the file nor the environment set one.
const DefaultPort = 8080

// ConfigPath returns the experience file from ARSTAGE_CONFIG.
// Falls back to the provided default if not set.
func ConfigPath(defaultPath string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return defaultPath
}

// LogLevel returns the level from LOG_LEVEL or "info".
func LogLevel() string {
	if l := os.Getenv(EnvLogLevel); l != "" {
		return l
	}
	return "info"
}

// portOverride returns ARSTAGE_PORT if it is a valid port number.
func portOverride() (int, bool) {
	v := os.Getenv(EnvPort)
	if v == "" {
		return 0, false
	}
	p, err := strconv.Atoi(v)
	if err != nil || p <= 0 || p > 65535 {
		return 0, false
	}
	return p, true
}
