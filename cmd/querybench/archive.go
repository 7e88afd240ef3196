package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchperf/querybench/internal/archive"
	"github.com/searchperf/querybench/internal/config"
)

const archiveTimeout = 2 * time.Minute

// archiveFile uploads an artifact when an archive bucket is configured.
// Archival is best effort: the local run already succeeded.
func archiveFile(cfg *config.Config, log zerolog.Logger, path string) error {
	if cfg.Archive.S3Bucket == "" {
		return nil
	}
	up, err := newUploader(cfg, log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	return up.PutFile(ctx, path)
}

// archiveDir uploads a whole output directory (chart renders).
func archiveDir(cfg *config.Config, log zerolog.Logger, dir string) error {
	if cfg.Archive.S3Bucket == "" {
		return nil
	}
	up, err := newUploader(cfg, log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	return up.PutDir(ctx, dir)
}

func newUploader(cfg *config.Config, log zerolog.Logger) (*archive.Uploader, error) {
	// Artifacts from one invocation group under a timestamped prefix.
	prefix := cfg.Archive.Prefix + "/" + time.Now().UTC().Format("20060102-150405")
	return archive.New(archive.Config{
		Bucket:    cfg.Archive.S3Bucket,
		Region:    cfg.Archive.S3Region,
		Endpoint:  cfg.Archive.S3Endpoint,
		AccessKey: cfg.Archive.S3AccessKey,
		SecretKey: cfg.Archive.S3SecretKey,
		PathStyle: cfg.Archive.S3PathStyle,
		Prefix:    prefix,
	}, log)
}
