package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	QR       QRConfig       `yaml:"qr"`
	Blob     BlobConfig     `yaml:"blob"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"                env:"ARMORY_ADDR"                env-default:":8080"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"ARMORY_READ_HEADER_TIMEOUT" env-default:"10s"`
	ReadTimeout       time.Duration `yaml:"read_timeout"        env:"ARMORY_READ_TIMEOUT"        env-default:"30s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"ARMORY_WRITE_TIMEOUT"       env-default:"60s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"        env:"ARMORY_IDLE_TIMEOUT"        env-default:"120s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"ARMORY_SHUTDOWN_TIMEOUT"    env-default:"5s"`
	TokenTTL          time.Duration `yaml:"token_ttl"           env:"ARMORY_TOKEN_TTL"           env-default:"24h"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"ARMORY_DB" env-default:"armory.sqlite3"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"ARMORY_LOG_LEVEL" env-default:"info"`
	Path  string `yaml:"path"  env:"ARMORY_LOG"`
}

// AdminConfig names the operator created on first run.
type AdminConfig struct {
	Username string `yaml:"username" env:"ARMORY_ADMIN_USER" env-default:"Admin"`
}

// QRConfig holds QR rendering settings.
type QRConfig struct {
	Size      int `yaml:"size"       env:"ARMORY_QR_SIZE"       env-default:"300"`
	Workers   int `yaml:"workers"    env:"ARMORY_QR_WORKERS"    env-default:"2"`
	QueueSize int `yaml:"queue_size" env:"ARMORY_QR_QUEUE_SIZE" env-default:"64"`
}

// BlobConfig selects where QR images are stored.
type BlobConfig struct {
	Driver string   `yaml:"driver"  env:"ARMORY_BLOB_DRIVER"  env-default:"fs"`
	FSRoot string   `yaml:"fs_root" env:"ARMORY_BLOB_FS_ROOT" env-default:"./blobdata"`
	S3     S3Config `yaml:"s3"`
}

// S3Config holds S3 driver settings. Credentials come from the AWS default
// chain unless both keys are set.
type S3Config struct {
	Bucket          string `yaml:"bucket"            env:"ARMORY_BLOB_S3_BUCKET"`
	Region          string `yaml:"region"            env:"ARMORY_BLOB_S3_REGION"     env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint"          env:"ARMORY_BLOB_S3_ENDPOINT"`
	PathStyle       bool   `yaml:"path_style"        env:"ARMORY_BLOB_S3_PATH_STYLE" env-default:"false"`
	AccessKeyID     string `yaml:"access_key_id"     env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ARMORY_METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path"    env:"ARMORY_METRICS_PATH"    env-default:"/metrics"`
}
