package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"mineralcatalog/internal/config"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  config.BlobConfig
		want Driver
	}{
		{"default", config.BlobConfig{}, DriverMemory},
		{"memory", config.BlobConfig{Driver: config.BlobMemory}, DriverMemory},
		{"fs", config.BlobConfig{Driver: config.BlobFS, FSRoot: filepath.Join(t.TempDir(), "blobs")}, DriverFilesystem},
		{"s3", config.BlobConfig{Driver: config.BlobS3, S3: config.S3Config{Bucket: "minerals", Region: "eu-west-1"}}, DriverS3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if store.Driver() != tt.want {
				t.Fatalf("driver = %s, want %s", store.Driver(), tt.want)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, config.BlobConfig{Driver: "gcs"}); err == nil || !strings.Contains(err.Error(), "unknown blob driver gcs") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
	if _, err := Open(ctx, config.BlobConfig{Driver: config.BlobS3}); err == nil || !strings.Contains(err.Error(), "bucket required") {
		t.Fatalf("expected bucket error, got %v", err)
	}
}

func TestMockS3Exposed(t *testing.T) {
	if NewMockS3ForTests().Driver() != DriverS3 {
		t.Fatalf("expected s3 driver")
	}
}
