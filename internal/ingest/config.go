package ingest

import "time"

// Config contains the options that control how Abode detects and
// ingests media files dropped on to the servers file system.
type Config struct {
	// The path to the drop directory the service monitors. Files are
	// expected one level down, inside a directory named with the UUID
	// of the listing they belong to: <path>/<listing-id>/photo.jpg
	IngestPath string `yaml:"path" env:"INGEST_PATH" env-required:"true"`

	// The service uses a directory watcher, but a 'force' sync is
	// performed on a regular interval to protect against the watcher
	// failing.
	ForceSyncSeconds int `yaml:"force_sync_seconds" env:"INGEST_FORCE_SYNC_SECONDS" env-default:"30"`

	// When a new file is detected it may still be mid-copy. As we
	// cannot KNOW when the copy is complete, we instead wait for the
	// 'modtime' of the file to be at least this long in the past
	// before processing.
	RequiredModTimeAgeSeconds int `yaml:"modtime_threshold_seconds" env:"INGEST_MODTIME_THRESHOLD_SECONDS" env-default:"10"`

	// Controls the number of workers performing ingestions, and so the
	// number of overlapping upload transport calls this service can
	// have in flight.
	IngestionParallelism int `yaml:"parallelism" env:"INGEST_PARALLELISM" env-default:"2"`
}

func (config *Config) RequiredModTimeAgeDuration() time.Duration {
	return time.Duration(config.RequiredModTimeAgeSeconds) * time.Second
}
