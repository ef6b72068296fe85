//go:build !gcp

package artifacts

import (
	"context"
	"errors"

	"github.com/surenss861/riskmate-sub004/pkg/config"
)

func newGCSStore(context.Context, config.ArtifactConfig) (Store, error) {
	return nil, errors.New("GCS storage is not enabled in this build (use -tags gcp)")
}
