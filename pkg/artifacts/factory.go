package artifacts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStore builds the backend named by cfg.StorageType. The filesystem store lives
// under dataDir/artifacts.
func NewStore(ctx context.Context, cfg config.ArtifactConfig, dataDir string) (Store, error) {
	switch StoreType(cfg.StorageType) {
	case "", StoreTypeFS:
		return NewFileStore(filepath.Join(dataDir, "artifacts"))
	case StoreTypeS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("ARTIFACT_S3_BUCKET is required for S3 storage")
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	case StoreTypeGCS:
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("ARTIFACT_GCS_BUCKET is required for GCS storage")
		}
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported artifact storage type: %s", cfg.StorageType)
	}
}
