package mirror

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/github"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

type stubHosting struct {
	repos map[string]*github.Repo
	files map[string][]byte
}

func newStubHosting() *stubHosting {
	return &stubHosting{repos: map[string]*github.Repo{}, files: map[string][]byte{}}
}

func (s *stubHosting) EnsureRepo(ctx context.Context, name string) (*github.Repo, error) {
	if repo, ok := s.repos[name]; ok {
		return repo, nil
	}
	repo := &github.Repo{Name: name, HTMLURL: "https://github.com/test/" + name}
	s.repos[name] = repo
	return repo, nil
}

func (s *stubHosting) PutFile(ctx context.Context, repoName, path, message string, content []byte) error {
	s.files[repoName+"/"+path] = content
	return nil
}

type stubSellerSaver struct {
	updates []map[string]any
}

func (s *stubSellerSaver) UpdateFields(ctx context.Context, email string, fields map[string]any) error {
	s.updates = append(s.updates, fields)
	return nil
}

func TestRepoName(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)
	cases := map[string]string{
		"tienda@example.com":   "tienda_example_com_20250810",
		"Juan.Perez@Gmail.com": "juan_perez_gmail_com_20250810",
		"raro+tag@dominio.ar":  "raro_tag_dominio_ar_20250810",
	}
	for email, want := range cases {
		if got := RepoName(email, now); got != want {
			t.Errorf("RepoName(%q) = %q, want %q", email, got, want)
		}
	}
}

func TestPublishCreatesRepoAndPersistsMetadata(t *testing.T) {
	t.Parallel()

	hosting := newStubHosting()
	saver := &stubSellerSaver{}
	svc, err := NewService(ServiceParams{
		Hosting: hosting,
		Sellers: saver,
		Log:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	seller := &models.Seller{Email: "tienda@example.com", StoreName: "Mi Tienda"}
	url, err := svc.Publish(context.Background(), seller, []models.Product{
		{ID: "p1", Name: "Remera", Price: 5000},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url == "" {
		t.Fatal("empty repo url")
	}
	if len(hosting.repos) != 1 {
		t.Fatalf("expected 1 repo, got %d", len(hosting.repos))
	}
	found := false
	for key := range hosting.files {
		if len(hosting.files[key]) > 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("index.html not pushed")
	}
	if len(saver.updates) != 1 {
		t.Fatalf("repo metadata not persisted: %v", saver.updates)
	}
}

func TestPublishReusesStoredRepoName(t *testing.T) {
	t.Parallel()

	hosting := newStubHosting()
	svc, err := NewService(ServiceParams{
		Hosting: hosting,
		Sellers: &stubSellerSaver{},
		Log:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	seller := &models.Seller{
		Email:    "tienda@example.com",
		RepoName: "tienda_example_com_20240101",
		RepoURL:  "https://github.com/test/tienda_example_com_20240101",
	}
	if _, err := svc.Publish(context.Background(), seller, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, ok := hosting.repos["tienda_example_com_20240101"]; !ok {
		t.Fatal("stored repo name was not reused")
	}
}

func TestDisabledService(t *testing.T) {
	t.Parallel()

	svc, err := NewService(ServiceParams{
		Sellers: &stubSellerSaver{},
		Log:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.Enabled() {
		t.Fatal("service without hosting must report disabled")
	}
	if _, err := svc.Publish(context.Background(), &models.Seller{Email: "x@example.com"}, nil); err == nil {
		t.Fatal("publish on disabled service must fail")
	}
}
