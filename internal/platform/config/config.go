package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Auth       AuthConfig       `yaml:"auth"`
	Geofence   GeofenceConfig   `yaml:"geofence"`
	Assignment AssignmentConfig `yaml:"assignment"`
	Import     ImportConfig     `yaml:"import"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"             env:"FIELDPROOF_ADDR"             env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"         env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"        env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"     env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// RedisConfig holds settings for the geocode result cache.
// Empty URL disables the cache.
type RedisConfig struct {
	URL          string        `yaml:"url"            env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size"      env:"REDIS_POOL_SIZE"      env-default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout"   env:"REDIS_DIAL_TIMEOUT"   env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout"   env:"REDIS_READ_TIMEOUT"   env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout"  env:"REDIS_WRITE_TIMEOUT"  env-default:"3s"`
	CacheTTL     time.Duration `yaml:"cache_ttl"      env:"REDIS_CACHE_TTL"      env-default:"24h"`
}

// KafkaConfig holds settings for the notification sink.
// Empty brokers disables outbound notifications.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic"   env:"KAFKA_NOTIFY_TOPIC" env-default:"fieldproof.notifications"`
}

// AuthConfig holds JWT validation settings for the claims middleware.
type AuthConfig struct {
	JWTSigningKey string `yaml:"jwt_signing_key" env:"JWT_SIGNING_KEY" env-default:"dev-secret-key-change-in-production"`
}

// GeofenceConfig holds the on-site confirmation constraint.
// RadiusMeters is deployment configuration; it is never taken from request input.
type GeofenceConfig struct {
	RadiusMeters float64 `yaml:"radius_meters" env:"GEOFENCE_RADIUS_METERS" env-default:"100"`
}

// AssignmentConfig holds the moderator workload policy.
// MaxOpenAssignments of 0 means unlimited.
type AssignmentConfig struct {
	MaxOpenAssignments int `yaml:"max_open_assignments" env:"ASSIGNMENT_MAX_OPEN" env-default:"0"`
}

// ImportConfig bounds the bulk import pipeline.
type ImportConfig struct {
	GeocodeParallelism int           `yaml:"geocode_parallelism" env:"IMPORT_GEOCODE_PARALLELISM" env-default:"8"`
	GeocodeTimeout     time.Duration `yaml:"geocode_timeout"     env:"IMPORT_GEOCODE_TIMEOUT"     env-default:"5s"`
	MaxRows            int           `yaml:"max_rows"            env:"IMPORT_MAX_ROWS"            env-default:"10000"`
}

// GeocoderConfig holds the external geocoding collaborator endpoint.
type GeocoderConfig struct {
	BaseURL string        `yaml:"base_url" env:"GEOCODER_BASE_URL"`
	Timeout time.Duration `yaml:"timeout"  env:"GEOCODER_TIMEOUT" env-default:"5s"`
}

// Load reads configuration from the optional YAML file and the environment.
// Environment variables win over file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
