package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Gateway GatewayConfig
	Api     APIConfig
}

type AppConfig struct {
	Environment     string
	LogFilePath     string
	SocketLogPath   string
	CredentialsPath string
}

type GatewayConfig struct {
	WsURL string

	// Reconnect backoff (milliseconds) and attempt cap
	ReconnectInitialDelayMs int
	ReconnectMaxDelayMs     int
	MaxReconnectAttempts    int

	HandshakeTimeoutSec int
}

type APIConfig struct {
	BaseURL           string
	RequestTimeoutSec int
	CacheTTLSec       int
	CachePurgeSec     int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment:     getEnv("GO_ENV", "development"),
			LogFilePath:     getEnv("LOG_FILE_PATH", "chat-client.log"),
			SocketLogPath:   getEnv("SOCKET_LOG_FILE_PATH", "chat-socket.log"),
			CredentialsPath: getEnv("CREDENTIALS_PATH", defaultCredentialsPath()),
		},
		Gateway: GatewayConfig{
			WsURL:                   getEnv("GATEWAY_WS_URL", "ws://localhost:3000/ws/chat"),
			ReconnectInitialDelayMs: getEnvAsInt("WS_RECONNECT_INITIAL_DELAY_MS", 1000),
			ReconnectMaxDelayMs:     getEnvAsInt("WS_RECONNECT_MAX_DELAY_MS", 30000),
			MaxReconnectAttempts:    getEnvAsInt("WS_MAX_RECONNECT_ATTEMPTS", 10),
			HandshakeTimeoutSec:     getEnvAsInt("WS_HANDSHAKE_TIMEOUT_SEC", 10),
		},
		Api: APIConfig{
			BaseURL:           getEnv("API_BASE_URL", "http://localhost:3000/api"),
			RequestTimeoutSec: getEnvAsInt("API_REQUEST_TIMEOUT_SEC", 15),
			CacheTTLSec:       getEnvAsInt("API_CACHE_TTL_SEC", 300),
			CachePurgeSec:     getEnvAsInt("API_CACHE_PURGE_SEC", 600),
		},
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".confhub-credentials.json"
	}
	return home + "/.confhub/credentials.json"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
