package media

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/workerpool"
)

type stubStore struct {
	objects map[string][]byte
	deleted []string
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string][]byte{}}
}

func (s *stubStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.objects[key] = bytes.Clone(data)
	return s.URLFor(key), nil
}

func (s *stubStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *stubStore) URLFor(key string) string {
	return "https://cdn.example.com/" + key
}

func newMediaTestService(t *testing.T, store ObjectStore, cfg config.MediaConfig) Service {
	t.Helper()

	pool := workerpool.New(2)
	t.Cleanup(pool.Shutdown)

	svc, err := NewService(ServiceParams{
		Store:  store,
		Config: cfg,
		Pool:   pool,
		Log:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func testMediaConfig() config.MediaConfig {
	return config.MediaConfig{MaxUploadBytes: 1024, MaxImagesPerUser: 3, UploadWorkers: 2}
}

func TestUploadStoresUnderSellerPrefix(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := newMediaTestService(t, store, testMediaConfig())

	result, err := svc.Upload(context.Background(), "tienda@example.com", []Upload{
		{Filename: "remera.webp", ContentType: "image/webp", Data: []byte("img")},
		{Filename: "gorra.png", Data: []byte("img2")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(result.Images) != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, img := range result.Images {
		if !strings.HasPrefix(img.Key, "usuarios/tienda@example.com/mini_") {
			t.Fatalf("key outside seller namespace: %q", img.Key)
		}
	}
	if !strings.HasSuffix(result.Images[1].Key, ".png") {
		t.Fatalf("original extension not kept: %q", result.Images[1].Key)
	}
}

func TestUploadRejectsOversizedFilePerFile(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	svc := newMediaTestService(t, store, testMediaConfig())

	big := make([]byte, 2048)
	result, err := svc.Upload(context.Background(), "tienda@example.com", []Upload{
		{Filename: "grande.webp", Data: big},
		{Filename: "chica.webp", Data: []byte("ok")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(result.Images) != 1 {
		t.Fatalf("small file should still upload: %+v", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "grande.webp") {
		t.Fatalf("oversize file not reported: %v", result.Errors)
	}
}

func TestUploadEnforcesImageQuota(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.objects["usuarios/tienda@example.com/mini_a.webp"] = []byte("x")
	store.objects["usuarios/tienda@example.com/mini_b.webp"] = []byte("x")

	svc := newMediaTestService(t, store, testMediaConfig())

	_, err := svc.Upload(context.Background(), "tienda@example.com", []Upload{
		{Filename: "c.webp", Data: []byte("x")},
		{Filename: "d.webp", Data: []byte("x")},
	})
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected quota validation error, got %v", err)
	}
}

func TestDeleteOutsideNamespaceForbidden(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.objects["usuarios/otra@example.com/mini_x.webp"] = []byte("x")

	svc := newMediaTestService(t, store, testMediaConfig())

	err := svc.Delete(context.Background(), "tienda@example.com", "usuarios/otra@example.com/mini_x.webp")
	if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatal("object outside the namespace was deleted")
	}

	store.objects["usuarios/tienda@example.com/mini_y.webp"] = []byte("x")
	if err := svc.Delete(context.Background(), "tienda@example.com", "usuarios/tienda@example.com/mini_y.webp"); err != nil {
		t.Fatalf("Delete own object: %v", err)
	}
}

func TestListReturnsPublicURLs(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.objects["usuarios/tienda@example.com/mini_z.webp"] = []byte("x")

	svc := newMediaTestService(t, store, testMediaConfig())

	urls, err := svc.List(context.Background(), "tienda@example.com")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(urls) != 1 || !strings.HasPrefix(urls[0], "https://cdn.example.com/usuarios/") {
		t.Fatalf("unexpected urls: %v", urls)
	}
}
