package config

import "time"

// StorageConfig points the object store at an S3 bucket.  Endpoint and
// UsePathStyle allow S3-compatible servers (MinIO, localstack) in development.
// PublicBaseURL, when set, replaces the virtual-host style URL in links
// returned to clients (for example a CDN in front of the bucket).
type StorageConfig struct {
	Driver        string // "s3" or "memory"
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
	UsePathStyle  bool
	AccessKey     string
	SecretKey     string
}

func LoadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:        envStr("STORAGE_DRIVER", "s3"),
		Bucket:        envStr("S3_BUCKET", "listings"),
		Region:        envStr("S3_REGION", "ap-south-1"),
		Endpoint:      envStr("S3_ENDPOINT", ""),
		PublicBaseURL: envStr("S3_PUBLIC_BASE_URL", ""),
		UsePathStyle:  envBool("S3_USE_PATH_STYLE", false),
		AccessKey:     envStr("S3_ACCESS_KEY_ID", ""),
		SecretKey:     envStr("S3_SECRET_ACCESS_KEY", ""),
	}
}

// UploadConfig bounds listing image uploads.  PendingTTL is how long an
// uploaded object may stay unclaimed by a saved listing before the sweeper
// removes it.
type UploadConfig struct {
	MaxImageBytes int64
	Concurrency   int
	PendingTTL    time.Duration
	SweepInterval time.Duration
	SubmitLockTTL time.Duration
}

func LoadUploadConfig() UploadConfig {
	c := UploadConfig{
		MaxImageBytes: int64(envInt("UPLOAD_MAX_IMAGE_BYTES", 5<<20)),
		Concurrency:   envInt("UPLOAD_CONCURRENCY", 4),
		PendingTTL:    envDur("UPLOAD_PENDING_TTL", time.Hour),
		SweepInterval: envDur("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),
		SubmitLockTTL: envDur("UPLOAD_SUBMIT_LOCK_TTL", 2*time.Minute),
	}
	if c.MaxImageBytes <= 0 { c.MaxImageBytes = 5 << 20 }
	if c.Concurrency < 1 { c.Concurrency = 1 }
	return c
}

// LogConfig selects the slog handlers.  Format is "text" (colourised by tint
// when Color is set) or "json".  The Fluent fields enable a second sink that
// ships every record to Fluent Bit.
type LogConfig struct {
	Level        string
	Format       string
	Color        bool
	AddSource    bool
	FluentOn     bool
	FluentHost   string
	FluentPort   int
	FluentPrefix string
}

func LoadLogConfig() LogConfig {
	return LogConfig{
		Level:        envStr("LOG_LEVEL", "info"),
		Format:       envStr("LOG_FORMAT", "text"),
		Color:        envBool("LOG_COLOR", true),
		AddSource:    envBool("LOG_ADD_SOURCE", false),
		FluentOn:     envBool("FLUENT_ENABLED", false),
		FluentHost:   envStr("FLUENT_HOST", "127.0.0.1"),
		FluentPort:   envInt("FLUENT_PORT", 24224),
		FluentPrefix: envStr("FLUENT_TAG_PREFIX", "dlink"),
	}
}
