package config

const (
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultHashAlgorithm           = "md5"
	defaultHashChunkSize           = 8192
	defaultBusyTimeoutMillis       = 1000
	defaultWriteBatchSize          = 100
	defaultHashRetryAttempts       = 2
	defaultHashRetryBackoffMillis  = 1000
	defaultDedupWorkers            = 1
	defaultProgressIntervalSeconds = 5
)

var (
	defaultSystemFiles = []string{".DS_Store", "._.DS_Store", "Thumbs.db"}
	defaultSkipDirs    = []string{".git"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Hashing: Hashing{
			Algorithm: defaultHashAlgorithm,
			ChunkSize: defaultHashChunkSize,
		},
		Catalog: Catalog{
			BusyTimeoutMillis:      defaultBusyTimeoutMillis,
			WriteBatchSize:         defaultWriteBatchSize,
			HashRetryAttempts:      defaultHashRetryAttempts,
			HashRetryBackoffMillis: defaultHashRetryBackoffMillis,
		},
		Dedup: Dedup{
			Workers: defaultDedupWorkers,
		},
		Scan: Scan{
			SystemFiles: append([]string(nil), defaultSystemFiles...),
			SkipDirs:    append([]string(nil), defaultSkipDirs...),
		},
		Locate: Locate{
			ProgressIntervalSeconds: defaultProgressIntervalSeconds,
			ExcludeSelf:             true,
		},
	}
}
