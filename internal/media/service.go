package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
	"github.com/jarafer/armatutienda-backend/pkg/workerpool"
)

// ObjectStore is the slice of the storage client the service uses.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	URLFor(key string) string
}

// Service handles product image uploads for a seller.
type Service interface {
	Upload(ctx context.Context, sellerID string, files []Upload) (*UploadResult, error)
	List(ctx context.Context, sellerID string) ([]string, error)
	Delete(ctx context.Context, sellerID, key string) error
}

// Upload is one incoming image.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadedImage is the stored result for one file.
type UploadedImage struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	URL      string `json:"url"`
}

// UploadResult summarizes a batch upload.
type UploadResult struct {
	Images []UploadedImage `json:"images"`
	Errors []string        `json:"errors,omitempty"`
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Store  ObjectStore
	Config config.MediaConfig
	Pool   *workerpool.Pool
	Log    *logger.Logger
}

type service struct {
	store ObjectStore
	cfg   config.MediaConfig
	pool  *workerpool.Pool
	log   *logger.Logger
}

// NewService constructs the media service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Pool == nil {
		return nil, fmt.Errorf("worker pool required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		store: params.Store,
		cfg:   params.Config,
		pool:  params.Pool,
		log:   params.Log,
	}, nil
}

func keyPrefix(sellerID string) string {
	return "usuarios/" + sellerID + "/"
}

// Upload stores a batch of images through the worker pool. Each file is
// independent; failures collect per file instead of aborting the batch.
func (s *service) Upload(ctx context.Context, sellerID string, files []Upload) (*UploadResult, error) {
	if sellerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no files supplied")
	}

	existing, err := s.store.List(ctx, keyPrefix(sellerID))
	if err != nil {
		return nil, err
	}
	if len(existing)+len(files) > s.cfg.MaxImagesPerUser {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("image limit exceeded (%d stored, limit %d)", len(existing), s.cfg.MaxImagesPerUser))
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result UploadResult
	)

	for i := range files {
		file := files[i]
		if int64(len(file.Data)) > s.cfg.MaxUploadBytes {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: exceeds %d byte limit", file.Filename, s.cfg.MaxUploadBytes))
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			key := keyPrefix(sellerID) + "mini_" + uuid.NewString() + extensionFor(file)
			url, putErr := s.store.Put(ctx, key, contentTypeFor(file), file.Data)

			mu.Lock()
			defer mu.Unlock()
			if putErr != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Filename, putErr))
				return
			}
			result.Images = append(result.Images, UploadedImage{
				Filename: file.Filename,
				Key:      key,
				URL:      url,
			})
		}
		if err := s.pool.SubmitWait(task); err != nil {
			wg.Done()
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Filename, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	logCtx := s.log.WithFields(ctx, map[string]any{
		"seller_id": sellerID,
		"uploaded":  len(result.Images),
		"failed":    len(result.Errors),
	})
	s.log.Info(logCtx, "image batch processed")
	return &result, nil
}

func (s *service) List(ctx context.Context, sellerID string) ([]string, error) {
	keys, err := s.store.List(ctx, keyPrefix(sellerID))
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, s.store.URLFor(key))
	}
	return urls, nil
}

// Delete removes one object. The key must live under the seller's prefix.
func (s *service) Delete(ctx context.Context, sellerID, key string) error {
	if !strings.HasPrefix(key, keyPrefix(sellerID)) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "key outside seller namespace")
	}
	return s.store.Delete(ctx, key)
}

func extensionFor(file Upload) string {
	if ext := path.Ext(file.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	return ".webp"
}

func contentTypeFor(file Upload) string {
	if file.ContentType != "" {
		return file.ContentType
	}
	return "image/webp"
}
