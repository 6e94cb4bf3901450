package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// exerciseStore runs the shared Store contract against a backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "results/sim-1.json", bytes.NewReader([]byte(`{"score":70}`)), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"simulation_id": "sim-1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "results/sim-1.json" || info.Size != 12 {
		t.Fatalf("put info = %+v", info)
	}

	// Create-only semantics.
	if _, err := store.Put(ctx, "results/sim-1.json", bytes.NewReader([]byte("x")), PutOptions{}); err == nil {
		t.Fatalf("overwrite succeeded")
	}

	head, err := store.Head(ctx, "results/sim-1.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" || head.Metadata["simulation_id"] != "sim-1" {
		t.Fatalf("head info = %+v", head)
	}

	got, rc, err := store.Get(ctx, "results/sim-1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `{"score":70}` || got.Size != 12 {
		t.Fatalf("content = %q, info = %+v", data, got)
	}

	if _, err := store.Put(ctx, "results/sim-2.json", bytes.NewReader([]byte("{}")), PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if _, err := store.Put(ctx, "other/readme.txt", bytes.NewReader([]byte("hi")), PutOptions{}); err != nil {
		t.Fatalf("put third: %v", err)
	}

	infos, err := store.List(ctx, "results/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "results/sim-1.json" || infos[1].Key != "results/sim-2.json" {
		t.Fatalf("list = %+v", infos)
	}

	ok, err := store.Delete(ctx, "results/sim-2.json")
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	if _, err := store.Head(ctx, "results/sim-2.json"); err == nil {
		t.Fatalf("head after delete succeeded")
	}

	if _, _, err := store.Get(ctx, "results/absent.json"); err == nil {
		t.Fatalf("get of absent key succeeded")
	}
}

func TestMemoryStoreContract(t *testing.T) {
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}
	exerciseStore(t, store)

	if _, err := store.PresignURL(context.Background(), "k", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("presign = %v, want ErrUnsupported", err)
	}
}

func TestMemoryStoreNotFoundIsErrNotExist(t *testing.T) {
	store := NewMemory()
	_, _, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("get = %v, want os.ErrNotExist", err)
	}
}

func TestFilesystemStoreContract(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
	exerciseStore(t, store)
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	for _, key := range []string{"../escape", "/abs/path", ""} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader(nil), PutOptions{}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestFilesystemStoreComputesETag(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	info, err := store.Put(context.Background(), "a.json", bytes.NewReader([]byte("{}")), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(info.ETag) != 64 {
		t.Fatalf("etag = %q, want sha256 hex", info.ETag)
	}
}

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("REEFSIM_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}

	t.Setenv("REEFSIM_BLOB_DRIVER", "fs")
	t.Setenv("REEFSIM_BLOB_FS_ROOT", filepath.Join(t.TempDir(), "archive"))
	store, err = Open(context.Background())
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}

	t.Setenv("REEFSIM_BLOB_DRIVER", "carrier-pigeon")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("REEFSIM_BLOB_DRIVER", "s3")
	t.Setenv("REEFSIM_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("s3 driver without bucket accepted")
	}
}
