package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Environment variable names.
const (
	EnvConfig            = "MINERALCATALOG_CONFIG"
	EnvAddr              = "MINERALCATALOG_ADDR"
	EnvReadHeaderTimeout = "MINERALCATALOG_READ_HEADER_TIMEOUT"
	EnvShutdownTimeout   = "MINERALCATALOG_SHUTDOWN_TIMEOUT"
	EnvLogLevel          = "MINERALCATALOG_LOG_LEVEL"
	EnvLogFormat         = "MINERALCATALOG_LOG_FORMAT"
	EnvStorageDriver     = "MINERALCATALOG_STORAGE_DRIVER"
	EnvSQLitePath        = "MINERALCATALOG_SQLITE_PATH"
	EnvPostgresDSN       = "MINERALCATALOG_POSTGRES_DSN"
	EnvBlobDriver        = "MINERALCATALOG_BLOB_DRIVER"
	EnvBlobFSRoot        = "MINERALCATALOG_BLOB_FS_ROOT"
	EnvS3Bucket          = "MINERALCATALOG_BLOB_S3_BUCKET"
	EnvS3Region          = "MINERALCATALOG_BLOB_S3_REGION"
	EnvS3Endpoint        = "MINERALCATALOG_BLOB_S3_ENDPOINT"
	EnvS3PathStyle       = "MINERALCATALOG_BLOB_S3_PATH_STYLE"
	EnvS3AccessKeyID     = "MINERALCATALOG_BLOB_S3_ACCESS_KEY_ID"
	EnvS3SecretKey       = "MINERALCATALOG_BLOB_S3_SECRET_ACCESS_KEY"
	EnvExportsEnabled    = "MINERALCATALOG_EXPORTS_ENABLED"
	EnvExportsQueueSize  = "MINERALCATALOG_EXPORTS_QUEUE_SIZE"
	EnvMetricsEnabled    = "MINERALCATALOG_METRICS_ENABLED"
	EnvMetricsPath       = "MINERALCATALOG_METRICS_PATH"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays every variable that is set onto cfg. Malformed numbers,
// booleans, and durations are reported together.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(EnvAddr, &cfg.Server.Addr)
	duration(EnvReadHeaderTimeout, &cfg.Server.ReadHeaderTimeout)
	duration(EnvShutdownTimeout, &cfg.Server.ShutdownTimeout)
	str(EnvLogLevel, &cfg.Log.Level)
	str(EnvLogFormat, &cfg.Log.Format)
	str(EnvStorageDriver, &cfg.Storage.Driver)
	str(EnvSQLitePath, &cfg.Storage.SQLitePath)
	str(EnvPostgresDSN, &cfg.Storage.PostgresDSN)
	str(EnvBlobDriver, &cfg.Blob.Driver)
	str(EnvBlobFSRoot, &cfg.Blob.FSRoot)
	str(EnvS3Bucket, &cfg.Blob.S3.Bucket)
	str(EnvS3Region, &cfg.Blob.S3.Region)
	str(EnvS3Endpoint, &cfg.Blob.S3.Endpoint)
	boolean(EnvS3PathStyle, &cfg.Blob.S3.PathStyle)
	str(EnvS3AccessKeyID, &cfg.Blob.S3.AccessKeyID)
	str(EnvS3SecretKey, &cfg.Blob.S3.SecretAccessKey)
	boolean(EnvExportsEnabled, &cfg.Exports.Enabled)
	integer(EnvExportsQueueSize, &cfg.Exports.QueueSize)
	boolean(EnvMetricsEnabled, &cfg.Metrics.Enabled)
	str(EnvMetricsPath, &cfg.Metrics.Path)

	return errors.Join(errs...)
}
