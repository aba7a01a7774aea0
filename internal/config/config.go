package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chat     ChatConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	// URL is the Postgres connection string. Empty selects the in-memory
	// store, which keeps the chat core usable without a database at the
	// cost of durability.
	URL string
}

type RedisConfig struct {
	// Addr enables the cross-instance broadcast bridge when set. Empty
	// keeps all fan-out local to this process.
	Addr string
}

type ChatConfig struct {
	// AdminRoom is the fixed room that receives new_user_message
	// notifications for the staff dashboard.
	AdminRoom string
	// SendBuffer is the per-connection outbound queue depth. A full queue
	// marks the connection failed instead of blocking the broadcast.
	SendBuffer int
	// PongTimeout bounds how long a connection may stay silent before its
	// read deadline expires; pings go out at a fraction of it.
	PongTimeout time.Duration
	// WriteTimeout bounds a single frame write to a peer.
	WriteTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":8080"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Chat: ChatConfig{
			AdminRoom:    getEnvOrDefault("ADMIN_ROOM", "admin_dashboard"),
			SendBuffer:   getIntOrDefault("SEND_BUFFER", 256),
			PongTimeout:  getDurationOrDefault("PONG_TIMEOUT", "60s"),
			WriteTimeout: getDurationOrDefault("WS_WRITE_TIMEOUT", "10s"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}
