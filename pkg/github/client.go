package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jarafer/armatutienda-backend/pkg/config"
	pkgerrors "github.com/jarafer/armatutienda-backend/pkg/errors"
	"github.com/jarafer/armatutienda-backend/pkg/logger"
)

const apiBase = "https://api.github.com"

// Client drives the GitHub contents API for the static storefront mirror.
type Client struct {
	cfg        config.GitHubConfig
	httpClient *http.Client
	log        *logger.Logger
}

// Repo is the subset of repository metadata the mirror cares about.
type Repo struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

type contentResponse struct {
	SHA string `json:"sha"`
}

// New builds the client. Returns nil when mirroring is disabled or no
// token is configured; callers treat a nil client as "mirroring off".
func New(cfg config.GitHubConfig, log *logger.Logger) *Client {
	if cfg.Disabled || cfg.Token == "" || cfg.Owner == "" {
		return nil
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// EnsureRepo creates the repository if it does not exist yet.
func (c *Client) EnsureRepo(ctx context.Context, name string) (*Repo, error) {
	repo, err := c.getRepo(ctx, name)
	if err == nil {
		return repo, nil
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	payload := map[string]any{
		"name":      name,
		"private":   false,
		"auto_init": true,
	}
	var created Repo
	if err := c.do(ctx, http.MethodPost, "/user/repos", payload, &created); err != nil {
		return nil, err
	}
	c.log.Info(c.log.WithField(ctx, "repo", name), "mirror repository created")
	return &created, nil
}

// PutFile creates or updates a file through the contents API. An existing
// file requires its current blob SHA, so one is looked up first.
func (c *Client) PutFile(ctx context.Context, repoName, path, message string, content []byte) error {
	sha, err := c.getFileSHA(ctx, repoName, path)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.cfg.Branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s", c.cfg.Owner, repoName, escapePath(path))
	return c.do(ctx, http.MethodPut, endpoint, payload, nil)
}

func (c *Client) getRepo(ctx context.Context, name string) (*Repo, error) {
	var repo Repo
	endpoint := fmt.Sprintf("/repos/%s/%s", c.cfg.Owner, name)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (c *Client) getFileSHA(ctx context.Context, repoName, path string) (string, error) {
	var content contentResponse
	endpoint := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", c.cfg.Owner, repoName, escapePath(path), url.QueryEscape(c.cfg.Branch))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &content)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return "", nil
		}
		return "", err
	}
	return content.SHA, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding github request")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiBase+endpoint, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building github request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling github")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading github response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "github resource not found")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "github rejected credentials")
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("github returned status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding github response")
		}
	}
	return nil
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
