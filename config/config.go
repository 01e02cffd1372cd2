package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port       string
	Env        string
	Database   DatabaseConfig
	JWT        JWTConfig
	Kafka      KafkaConfig
	MinIO      MinIOConfig
	Submission SubmissionConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret     []byte
	Expiration time.Duration
}

type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
}

type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
}

// SubmissionConfig holds the moderation guardrails and the sweep settings.
type SubmissionConfig struct {
	OpenLimit          int
	MaxNewVersions     int
	MaxFilesPerVersion int
	SweepSchedule      string
	Retention          time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     []byte(getEnv("JWT_SECRET", "your-secret-key-change-this-in-production")),
			Expiration: time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(os.Getenv("KAFKA_BROKERS")),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "material-submission-events"),
		},
		MinIO: MinIOConfig{
			Endpoint:        os.Getenv("MINIO_ENDPOINT"),
			AccessKeyID:     os.Getenv("MINIO_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:          getEnvBool("MINIO_USE_SSL", false),
			BucketName:      os.Getenv("MINIO_BUCKET"),
		},
		Submission: DefaultSubmissionConfig(),
	}
}

// DefaultSubmissionConfig reads the SUBMISSION_* keys, falling back to the
// production limits.
func DefaultSubmissionConfig() SubmissionConfig {
	return SubmissionConfig{
		OpenLimit:          getEnvInt("SUBMISSION_OPEN_LIMIT", 5),
		MaxNewVersions:     getEnvInt("SUBMISSION_MAX_NEW_VERSIONS", 1),
		MaxFilesPerVersion: getEnvInt("SUBMISSION_MAX_FILES_PER_VERSION", 3),
		SweepSchedule:      getEnv("SUBMISSION_SWEEP_SCHEDULE", "0 3 * * *"),
		Retention:          time.Duration(getEnvInt("SUBMISSION_RETENTION_HOURS", 14*24)) * time.Hour,
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
