// Package mirror publishes a static copy of the storefront to a GitHub
// repository. Everything here is best-effort: a mirror failure must never
// block checkout, reconciliation, or the wizard itself.
package mirror

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jarafer/armatutienda-backend/internal/sitegen"
	"github.com/jarafer/armatutienda-backend/pkg/db/models"
	"github.com/jarafer/armatutienda-backend/pkg/github"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

// Hosting is the slice of the GitHub client the mirror uses.
type Hosting interface {
	EnsureRepo(ctx context.Context, name string) (*github.Repo, error)
	PutFile(ctx context.Context, repoName, path, message string, content []byte) error
}

type sellerSaver interface {
	UpdateFields(ctx context.Context, email string, fields map[string]any) error
}

// Service mirrors storefronts.
type Service interface {
	Publish(ctx context.Context, seller *models.Seller, products []models.Product) (string, error)
	Enabled() bool
}

// ServiceParams lists the dependencies for NewService.
type ServiceParams struct {
	Hosting Hosting
	Sellers sellerSaver
	Log     *logger.Logger
}

type service struct {
	hosting Hosting
	sellers sellerSaver
	log     *logger.Logger
}

// NewService constructs the mirror service. Hosting may be nil, in which
// case the mirror reports itself disabled.
func NewService(params ServiceParams) (Service, error) {
	if params.Sellers == nil {
		return nil, fmt.Errorf("seller store required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		hosting: params.Hosting,
		sellers: params.Sellers,
		log:     params.Log,
	}, nil
}

func (s *service) Enabled() bool {
	return s.hosting != nil
}

var repoScrubRe = regexp.MustCompile(`[^a-z0-9]+`)

// RepoName builds the mirror repository name from the seller's email and
// the creation date: <email_mangled>_<yyyymmdd>.
func RepoName(email string, now time.Time) string {
	mangled := repoScrubRe.ReplaceAllString(strings.ToLower(email), "_")
	mangled = strings.Trim(mangled, "_")
	return fmt.Sprintf("%s_%s", mangled, now.Format("20060102"))
}

// Publish renders the storefront and pushes it to the seller's mirror
// repository, creating the repository on first use.
func (s *service) Publish(ctx context.Context, seller *models.Seller, products []models.Product) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("mirroring disabled")
	}
	if seller == nil {
		return "", fmt.Errorf("seller required")
	}

	ctx = s.log.WithSellerID(ctx, seller.Email)

	site, err := sitegen.Render(seller, products)
	if err != nil {
		return "", err
	}

	repoName := seller.RepoName
	if repoName == "" {
		repoName = RepoName(seller.Email, time.Now().UTC())
	}

	repo, err := s.hosting.EnsureRepo(ctx, repoName)
	if err != nil {
		return "", err
	}

	message := fmt.Sprintf("Publish storefront %s", time.Now().UTC().Format("2006-01-02 15:04"))
	if err := s.hosting.PutFile(ctx, repoName, "index.html", message, site.HTML); err != nil {
		return "", err
	}

	if seller.RepoName == "" || seller.RepoURL != repo.HTMLURL {
		if err := s.sellers.UpdateFields(ctx, seller.Email, map[string]any{
			"repo_name": repoName,
			"repo_url":  repo.HTMLURL,
		}); err != nil {
			s.log.Warn(ctx, "persisting mirror repo metadata failed")
		}
	}

	s.log.Info(s.log.WithField(ctx, "repo", repoName), "storefront mirrored")
	return repo.HTMLURL, nil
}
