// Package config provides process-level settings for the accounts service: name and version,
// log level, storage and log folders. Application settings for the remote backend and the
// reset schedule live in AppConfig (see app.go).
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed version
var version string

//go:embed name
var name string

type LogLevel string

const (
	Debug  LogLevel = "debug"
	Info   LogLevel = "info"
	Notice LogLevel = "notice"
	Warn   LogLevel = "warn"
	Error  LogLevel = "error"
)

func GetVersion() string {
	return strings.TrimSpace(version)
}

func GetName() string {
	return strings.TrimSpace(name)
}

func GetLogLevel() LogLevel {
	if IsDebug() {
		return Debug
	}
	logLevel := os.Getenv("ACC_LOG_LEVEL")
	if logLevel == "" {
		return Info
	}
	return LogLevel(logLevel)
}

func IsDebug() bool {
	return os.Getenv("ACC_DEBUG") == "true"
}

// GetDBFolderPath honours DATABASE_DIR for compatibility with older deployments.
func GetDBFolderPath() string {
	dbFolderPath := os.Getenv("ACC_DB_FOLDER")
	if dbFolderPath == "" {
		dbFolderPath = os.Getenv("DATABASE_DIR")
	}
	if dbFolderPath == "" {
		dbFolderPath = "/etc/3x-accounts"
	}
	return dbFolderPath
}

func GetDBPath() string {
	return fmt.Sprintf("%s/%s.db", GetDBFolderPath(), GetName())
}

func GetLogFolder() string {
	logFolderPath := os.Getenv("ACC_LOG_FOLDER")
	if logFolderPath == "" {
		logFolderPath = "/var/log"
	}
	return logFolderPath
}

func GetConfigPath() string {
	configPath := os.Getenv("ACC_CONFIG")
	if configPath == "" {
		configPath = fmt.Sprintf("%s/config.yaml", GetDBFolderPath())
	}
	return configPath
}
