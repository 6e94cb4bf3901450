package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Compile-time interface checks for every backend.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FilesystemStore)(nil)
	_ Store = (*S3Store)(nil)
)

// Open selects a blob backend from process environment.
//
//	REEFSIM_BLOB_DRIVER=fs|s3|memory (default fs)
//	REEFSIM_BLOB_FS_ROOT=<dir> (fs driver, default ./data/archive)
func Open(ctx context.Context) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("REEFSIM_BLOB_DRIVER")))
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverFilesystem, Driver(""):
		root := os.Getenv("REEFSIM_BLOB_FS_ROOT")
		if root == "" {
			root = "data/archive"
		}
		return NewFilesystem(root)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
