package storage

import (
	"context"
	"fmt"
)

// NewClient creates a storage client. A non-empty bucket selects GCS;
// otherwise artifacts land on the local filesystem under outputDir.
func NewClient(ctx context.Context, bucket, outputDir string) (Client, error) {
	if bucket != "" {
		gcsClient, err := NewGCSClient(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS storage: %w", err)
		}
		return gcsClient, nil
	}

	if outputDir == "" {
		outputDir = "."
	}
	localClient, err := NewLocalClient(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}
	return localClient, nil
}
