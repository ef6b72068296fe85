//go:build gcp

package artifacts

import (
	"context"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

func newGCSStore(ctx context.Context, cfg config.ArtifactConfig) (Store, error) {
	return NewGCSStore(ctx, GCSStoreConfig{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix})
}
