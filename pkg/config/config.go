package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Camera Configuration
	CameraIndex int
	EnableAudio bool

	// Movement Detection Thresholds
	Sensitivity  float64
	MinArea      int
	WarmupFrames int
	LearningRate float64
	HistorySize  int

	// AI Throttling
	AnalysisInterval      time.Duration
	TranscriptionInterval time.Duration
	TranscribeDuration    time.Duration

	// Privacy / Encryption
	PrivacyPassword string
	PrivacySalt     string

	// AI Services
	OllamaURL      string
	OllamaModel    string
	TranscriberURL string

	// MQTT Configuration (optional external summaries + remote control)
	MQTTEnabled       bool
	MQTTBroker        string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTTopicMovement string
	MQTTTopicAnalysis string
	MQTTTopicControl  string

	// ClickHouse Configuration (optional summary persistence)
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		// Camera Configuration
		CameraIndex: getEnvInt("CAMERA_INDEX", 0),
		EnableAudio: getEnvBool("ENABLE_AUDIO", true),

		// Movement Detection Thresholds
		Sensitivity:  getEnvFloat("DETECTION_SENSITIVITY", 25.0),
		MinArea:      getEnvInt("DETECTION_MIN_AREA", 500),
		WarmupFrames: getEnvInt("DETECTION_WARMUP_FRAMES", 5),
		LearningRate: getEnvFloat("DETECTION_LEARNING_RATE", 0.05),
		HistorySize:  getEnvInt("DETECTION_HISTORY_SIZE", 100),

		// AI Throttling
		AnalysisInterval:      getEnvDuration("ANALYSIS_INTERVAL", 2*time.Second),
		TranscriptionInterval: getEnvDuration("TRANSCRIPTION_INTERVAL", 5*time.Second),
		TranscribeDuration:    getEnvDuration("TRANSCRIBE_DURATION", 5*time.Second),

		// Privacy / Encryption
		PrivacyPassword: getEnv("PRIVACY_PASSWORD", "building_secure_2026"),
		PrivacySalt:     getEnv("PRIVACY_SALT", ""),

		// AI Services
		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llama3.1:8b"),
		TranscriberURL: getEnv("TRANSCRIBER_URL", "http://localhost:9000/transcribe"),

		// MQTT Configuration
		MQTTEnabled:       getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:        getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", "vision-backend"),
		MQTTUsername:      getEnv("MQTT_USERNAME", ""),
		MQTTPassword:      getEnv("MQTT_PASSWORD", ""),
		MQTTTopicMovement: getEnv("MQTT_TOPIC_MOVEMENT", "monitor/{session_id}/movement"),
		MQTTTopicAnalysis: getEnv("MQTT_TOPIC_ANALYSIS", "monitor/{session_id}/analysis"),
		MQTTTopicControl:  getEnv("MQTT_TOPIC_CONTROL", "monitor/control/#"),

		// ClickHouse Configuration
		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "monitoring"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
