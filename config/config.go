package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Elastic  ElasticsearchConfig
	Remote   RemoteConfig
	Sync     SyncConfig
	Temporal TemporalConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPPort string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers         []string
	SyncEventsTopic string
	InventoryTopic  string
	GroupID         string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
}

// RemoteConfig points at the POS cloud API the merchants are synced from.
type RemoteConfig struct {
	BaseURL     string
	PageSize    int
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type SyncConfig struct {
	// Enabled is the deployment kill switch. It is handed to every sync
	// invocation explicitly.
	Enabled          bool
	LockTTL          time.Duration
	AutoSyncInterval time.Duration
	PruneOnAutoSync  bool
	DispatchWorkers  int
}

type TemporalConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			HTTPPort: getEnv("HTTP_PORT", ":8080"),
			GRPCPort: getEnv("GRPC_PORT", ":8082"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_pos_sync"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			AutoMigrate:     getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:         getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			SyncEventsTopic: getEnv("KAFKA_TOPIC_SYNC_EVENTS", "possync.events"),
			InventoryTopic:  getEnv("KAFKA_TOPIC_INVENTORY", "inventory.events"),
			GroupID:         getEnv("KAFKA_GROUP_INVENTORY", "possync-inventory"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Remote: RemoteConfig{
			BaseURL:     getEnv("REMOTE_BASE_URL", "https://api.clover.com"),
			PageSize:    getEnvInt("REMOTE_PAGE_SIZE", 100),
			Timeout:     getEnvDuration("REMOTE_TIMEOUT", 30*time.Second),
			MaxAttempts: getEnvInt("REMOTE_MAX_ATTEMPTS", 4),
			BaseDelay:   getEnvDuration("REMOTE_BASE_DELAY", 250*time.Millisecond),
			MaxDelay:    getEnvDuration("REMOTE_MAX_DELAY", 4*time.Second),
		},
		Sync: SyncConfig{
			Enabled:          getEnvBool("SYNC_ENABLED", true),
			LockTTL:          getEnvDuration("SYNC_LOCK_TTL", 30*time.Minute),
			AutoSyncInterval: getEnvDuration("SYNC_AUTO_INTERVAL", 15*time.Minute),
			PruneOnAutoSync:  getEnvBool("SYNC_PRUNE_ON_AUTO_SYNC", false),
			DispatchWorkers:  getEnvInt("SYNC_DISPATCH_WORKERS", 4),
		},
		Temporal: TemporalConfig{
			HostPort:  getEnv("TEMPORAL_HOST_PORT", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnv("TEMPORAL_TASK_QUEUE", "possync"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("30s", "250ms").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	return fallback
}
